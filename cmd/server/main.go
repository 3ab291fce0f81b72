package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/csvanomaly/internal/application"
	"github.com/JonMunkholm/csvanomaly/internal/config"
	"github.com/JonMunkholm/csvanomaly/internal/core"
	"github.com/JonMunkholm/csvanomaly/internal/logging"
	"github.com/JonMunkholm/csvanomaly/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"max_file_size_mb", cfg.Limits.MaxFileSizeMB,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"explainability", cfg.Detection.Explainability,
		"categorical", cfg.Detection.Categorical,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runs, closeRuns, err := application.OpenRunStore(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to open run history", "error", err)
		os.Exit(1)
	}
	defer closeRuns()

	pipeline, err := application.NewPipeline(cfg, runs)
	if err != nil {
		slog.Error("failed to create pipeline", "error", err)
		os.Exit(1)
	}

	limiter := core.NewRunLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	server := web.NewServer(pipeline, limiter, cfg)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(server.Start)

	g.Go(func() error {
		server.SweepLimiters(gctx)
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active runs to complete (with timeout)
		if status := limiter.Status(); status.Active > 0 {
			slog.Info("waiting for detection runs to complete", "active", status.Active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("detection runs did not complete in time", "error", err)
			} else {
				slog.Info("all detection runs completed")
			}
		}

		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server stopped", "error", err)
		closeRuns()
		os.Exit(1)
	}
	slog.Info("server stopped")
}
