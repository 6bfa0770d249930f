package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/mobility/internal/config"
	"github.com/JonMunkholm/mobility/internal/logging"
	"github.com/JonMunkholm/mobility/internal/metrics"
	"github.com/JonMunkholm/mobility/internal/mobility"
	"github.com/JonMunkholm/mobility/internal/session"
	"github.com/JonMunkholm/mobility/internal/uploads"
	"github.com/JonMunkholm/mobility/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (default)",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config validation: %w", err)
		}
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"version", version,
		"port", cfg.Server.Port,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"session_ttl", cfg.Session.TTL,
		"filter_min_year", cfg.Filter.MinYear,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"metrics_enabled", cfg.Metrics.Enabled,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	for _, f := range mobility.Flows() {
		slog.Debug("flow registered", "key", f.Key, "variant", f.Variant, "required", f.Columns.Required())
	}

	store := session.NewStore(session.Config{
		TTL:         cfg.Session.TTL,
		MaxSessions: cfg.Session.MaxSessions,
	})
	limiter := uploads.NewLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)

	var rec *metrics.Recorder
	if cfg.Metrics.Enabled {
		rec = metrics.New(store.Len)
		limiter.OnWait(rec.ObserveUploadWait)
	}

	server := web.NewServer(cfg, store, limiter, rec)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()
	go store.RunSweeper(jobCtx, cfg.Session.SweepInterval)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Server.Addr())
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down...")
	cancelJobs()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if active := limiter.ActiveCount(); active > 0 {
		slog.Info("waiting for uploads to complete", "active", active)
		if err := limiter.WaitForDrain(shutdownCtx); err != nil {
			slog.Warn("uploads did not complete in time", "error", err)
		} else {
			slog.Info("all uploads completed")
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}
