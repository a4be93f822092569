package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/codeeasy/internal/api"
	"github.com/felixgeelhaar/codeeasy/internal/config"
	"github.com/felixgeelhaar/codeeasy/internal/daemon"
	mcpserver "github.com/felixgeelhaar/codeeasy/internal/mcp"
)

// cmdMCP serves the grading tools over stdio for editor integrations.
// It grades in-process and does not need the daemon.
func cmdMCP() error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// Stdio carries the protocol; jobs are never queued here
	cfg.Queue.Enabled = false

	if _, err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("setup data directory: %w", err)
	}

	logger, logFile, err := daemon.NewLogger(cfg, os.Stderr)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger = logger.With(slog.String("component", "mcp"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := api.NewApp(ctx, api.AppConfig{
		Config:  cfg,
		Logger:  logger,
		Version: Version,
	})
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer app.Close()

	srv := mcpserver.NewServer(mcpserver.Config{
		Grader:  app.Runner,
		Catalog: app.Catalog,
		Version: Version,
	})
	return srv.ServeStdio(ctx)
}
