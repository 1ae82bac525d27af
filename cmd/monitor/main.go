package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rezdm/Argus/internal/config"
	"github.com/rezdm/Argus/internal/httpapi"
	"github.com/rezdm/Argus/internal/logging"
	"github.com/rezdm/Argus/internal/monitor"
	"github.com/rezdm/Argus/internal/probe"
	"github.com/rezdm/Argus/internal/scheduler"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal(err)
	}
	if len(os.Args) > 1 {
		cfg.ConfigPath = os.Args[1]
	}

	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("argus_exit", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	file, groups, err := config.LoadDestinations(cfg.ConfigPath)
	if err != nil {
		return err
	}

	probes := probe.NewRegistry(probe.Options{PrivilegedPing: cfg.PingPrivileged})
	monitors, err := monitor.NewRegistry(groups, probes)
	if err != nil {
		return fmt.Errorf("invalid destinations in %s: %w", cfg.ConfigPath, err)
	}

	addr := file.Listen
	if cfg.Addr != "" {
		addr = cfg.Addr
	}

	sched := scheduler.New(logger, monitors, probes, scheduler.Options{
		Workers:       cfg.Workers,
		QueueSize:     cfg.QueueSize,
		ShutdownGrace: cfg.ShutdownGrace,
	})
	api := httpapi.NewServer(logger, monitors, httpapi.Options{
		Title:          file.Name,
		AllowedOrigins: cfg.AllowedOrigins,
		RatePerMin:     cfg.APIRatePerMin,
		Burst:          cfg.APIBurst,
	})
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	logger.Info("argus_starting",
		zap.String("name", file.Name),
		zap.String("config", cfg.ConfigPath),
		zap.Int("monitors", monitors.Len()),
	)
	sched.Start(gctx)

	g.Go(func() error {
		logger.Info("api_listen", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logging.RunMemoryReporter(gctx, logger, cfg.MemoryLogInterval)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown_started")

		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace+time.Second)
		defer cancel()

		stopErr := sched.Stop(sctx)
		if errors.Is(stopErr, scheduler.ErrForcedShutdown) {
			logger.Warn("probes_cancelled", zap.Duration("grace", cfg.ShutdownGrace))
			stopErr = nil
		}
		err := multierr.Combine(srv.Shutdown(sctx), stopErr)
		logger.Info("shutdown_complete")
		return err
	})

	return g.Wait()
}
