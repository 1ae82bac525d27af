// cmd/preflight/main.go
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/rezdm/Argus/internal/config"
	"github.com/rezdm/Argus/internal/domain"
	"github.com/rezdm/Argus/internal/monitor"
	"github.com/rezdm/Argus/internal/probe"
)

var (
	okMark   = color.New(color.FgGreen).Sprint("✔")
	warnMark = color.New(color.FgYellow).Sprint("⚠")
	failMark = color.New(color.FgRed).Sprint("✖")
)

func main() {
	ok := func(msg string) { fmt.Println(okMark, msg) }
	warn := func(msg string) { fmt.Fprintln(os.Stderr, warnMark, msg) }
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, failMark, msg)
		os.Exit(1)
	}

	if err := godotenv.Load(); err == nil {
		ok(".env loaded")
	}

	cfg, err := config.FromEnv()
	if err != nil {
		fail(err.Error())
	}
	if len(os.Args) > 1 {
		cfg.ConfigPath = os.Args[1]
	}
	ok(fmt.Sprintf("environment: workers=%d queue=%d grace=%s log_dir=%s level=%s",
		cfg.Workers, cfg.QueueSize, cfg.ShutdownGrace, cfg.LogDir, cfg.LogLevel))

	file, groups, err := config.LoadDestinations(cfg.ConfigPath)
	if err != nil {
		for _, e := range multierr.Errors(errors.Unwrap(err)) {
			fmt.Fprintln(os.Stderr, failMark, e)
		}
		fail("destinations file " + cfg.ConfigPath + " rejected: " + err.Error())
	}
	ok(fmt.Sprintf("%s parsed (%q)", cfg.ConfigPath, file.Name))

	probes := probe.NewRegistry(probe.Options{PrivilegedPing: cfg.PingPrivileged})
	monitors, err := monitor.NewRegistry(groups, probes)
	if err != nil {
		for _, e := range multierr.Errors(err) {
			fmt.Fprintln(os.Stderr, failMark, e)
		}
		fail("destinations are invalid")
	}

	pings := 0
	for _, st := range monitors.States() {
		d := st.Destination()
		if d.Test.Kind == domain.KindReachability {
			pings++
		}
		ok(fmt.Sprintf("%-30s every %-6s %s", d.Key(), d.Interval, st.Description()))
	}

	addr := file.Listen
	if cfg.Addr != "" {
		addr = cfg.Addr
	}
	ok("listen=" + addr)

	if pings > 0 && !cfg.PingPrivileged {
		warn(fmt.Sprintf("%d ping monitors start with unprivileged ICMP; if net.ipv4.ping_group_range excludes this user they fall back to raw ICMP, then to a TCP connect on port 7", pings))
	}
	if len(cfg.AllowedOrigins) == 0 {
		warn("ALLOWED_ORIGINS empty; the API answers CORS requests from any origin.")
	}

	ok(fmt.Sprintf("preflight passed: %d monitors", monitors.Len()))
}
