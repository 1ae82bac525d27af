package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rezdm/Argus/internal/domain"
	"github.com/rezdm/Argus/internal/monitor"
)

var (
	apiBase string
	timeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "argusctl",
	Short: "Query a running Argus monitor",
	Long: `argusctl talks to the Argus JSON API and prints monitor status.

The API address defaults to $ARGUS_API or http://localhost:8080.`,
	SilenceUsage: true,
}

var statusCmd = &cobra.Command{
	Use:   "status [group:name]",
	Short: "Show all monitors, or one monitor with its recent history",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		if len(args) == 0 {
			var snaps []monitor.Snapshot
			if err := getJSON(ctx, "/api/status", &snaps); err != nil {
				return err
			}
			printTable(snaps)
			return nil
		}

		var detail struct {
			monitor.Snapshot
			History []domain.TestResult `json:"history"`
		}
		if err := getJSON(ctx, "/api/monitors/"+url.PathEscape(args[0]), &detail); err != nil {
			return err
		}
		printTable([]monitor.Snapshot{detail.Snapshot})
		printHistory(detail.History, 20)
		return nil
	},
}

func init() {
	def := os.Getenv("ARGUS_API")
	if def == "" {
		def = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVar(&apiBase, "api", def, "Argus API base URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(apiBase, "/")+path, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("contacting API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("no such monitor")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("API returned status: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func colorStatus(s domain.Status) string {
	switch s {
	case domain.StatusWarning:
		return color.YellowString(s.String())
	case domain.StatusFailure:
		return color.RedString(s.String())
	}
	return color.GreenString(s.String())
}

func printTable(snaps []monitor.Snapshot) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tSTATUS\tUPTIME\tLAST\tRESPONSE\tTEST")
	for _, s := range snaps {
		last, rt := "Never", "-"
		if s.LastResult != nil {
			last = s.LastResult.Timestamp.Local().Format("15:04:05")
			rt = fmt.Sprintf("%d ms", s.LastResult.DurationMS)
		}
		fmt.Fprintf(w, "%s\t%s\t%.1f%%\t%s\t%s\t%s\n", s.Key, colorStatus(s.Status), s.Uptime, last, rt, s.Description)
	}
	w.Flush()
}

func printHistory(h []domain.TestResult, n int) {
	if len(h) > n {
		h = h[len(h)-n:]
	}
	fmt.Printf("\nLast %d results:\n", len(h))
	for _, r := range h {
		mark := color.GreenString("✔")
		if !r.Success {
			mark = color.RedString("✖")
		}
		line := fmt.Sprintf("  %s %s %5d ms", mark, r.Timestamp.Local().Format("15:04:05"), r.DurationMS)
		if r.Error != "" {
			line += "  " + r.Error
		}
		fmt.Println(line)
	}
}
