// Package app provides the top-level application lifecycle. It wires the
// platform clients, stores, event bus, and notification channels, then runs
// the detection pipeline in the configured operating mode.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"streamarb/internal/config"
)

// App is the root application object. It owns the configuration, logger, and
// the cleanup functions run in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates an App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, starts the goroutines for the configured mode,
// and blocks until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("tracked_asset", a.cfg.Ledger.TrackedAsset),
		slog.String("pair", a.cfg.Venue.Pair),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	switch strings.ToLower(a.cfg.Mode) {
	case "watch":
		return a.WatchMode(ctx, deps)
	case "trade":
		return a.TradeMode(ctx, deps)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// Close tears down all resources in reverse registration order. Safe to call
// multiple times.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
