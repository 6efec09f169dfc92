package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"streamarb/internal/classify"
	"streamarb/internal/detect"
	"streamarb/internal/domain"
	"streamarb/internal/lifecycle"
	"streamarb/internal/planner"
	"streamarb/internal/poller"
	"streamarb/internal/server"
	"streamarb/internal/server/handler"
	"streamarb/internal/server/middleware"
	"streamarb/internal/server/ws"
)

// dedupWindowSize bounds the recently-seen transaction id set. Far larger
// than the ids a poll cycle can return, so eviction never races a pending
// re-fetch of the same transaction.
const dedupWindowSize = 4096

// serverShutdownTimeout bounds the HTTP server drain on shutdown.
const serverShutdownTimeout = 10 * time.Second

// WatchMode runs detection only: stream swaps are classified, validated, and
// published, but no orders are planned or placed.
func (a *App) WatchMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting watch mode")

	g, ctx := errgroup.WithContext(ctx)

	detector := a.buildDetector(deps)
	p := poller.New(deps.Midgard, detector, a.cfg.Ledger.PollInterval.Duration, a.cfg.Ledger.FetchLimit, a.logger)
	g.Go(func() error {
		return p.RunLoop(ctx)
	})

	if deps.Archiver != nil {
		g.Go(func() error {
			return deps.Archiver.RunLoop(ctx)
		})
	}

	if a.cfg.Server.Enabled {
		a.startServer(ctx, g, deps, nil)
	}

	return g.Wait()
}

// TradeMode runs the full pipeline: detection feeds the entry planner, and
// confirmed entries get a timed exit through the lifecycle manager. With
// dry_run set, orders are simulated against live depth instead of being
// placed.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode",
		slog.Bool("dry_run", deps.Params.DryRun()),
	)

	g, ctx := errgroup.WithContext(ctx)

	var exec lifecycle.OrderPlacer = deps.Venue
	if deps.Params.DryRun() {
		exec = planner.NewSimulator(deps.Venue, a.cfg.Venue.DepthCount, a.logger)
	}

	sched := lifecycle.NewScheduler()
	manager := lifecycle.NewManager(exec, sched, deps.Params, deps.Events, deps.TradeStore, a.cfg.Venue.Pair, a.logger)

	pl := planner.New(deps.Venue, exec, deps.Params, a.cfg.Venue.Pair, a.cfg.Venue.DepthCount, a.logger)

	detector := a.buildDetector(deps)
	detector.SetSink(func(ctx context.Context, opp domain.Opportunity) {
		fill, err := pl.Plan(ctx, opp)
		if err != nil {
			// Plan already logged the reason; a rejected opportunity is a
			// normal outcome.
			return
		}
		if err := manager.Open(ctx, opp, fill); err != nil {
			a.logger.ErrorContext(ctx, "open trade failed",
				slog.String("tx_id", opp.TxID),
				slog.String("error", err.Error()),
			)
		}
	})

	p := poller.New(deps.Midgard, detector, a.cfg.Ledger.PollInterval.Duration, a.cfg.Ledger.FetchLimit, a.logger)
	g.Go(func() error {
		return p.RunLoop(ctx)
	})

	if deps.Archiver != nil {
		g.Go(func() error {
			return deps.Archiver.RunLoop(ctx)
		})
	}

	if a.cfg.Server.Enabled {
		a.startServer(ctx, g, deps, manager)
	}

	err := g.Wait()
	manager.Shutdown()
	return err
}

// buildDetector assembles the classification and validation stages shared by
// both modes.
func (a *App) buildDetector(deps *Dependencies) *detect.Detector {
	classifier := classify.New(
		a.cfg.Ledger.TrackedAsset,
		a.cfg.Ledger.BlockSeconds,
		deps.Thornode,
		a.logger,
	)
	window := detect.NewDedupWindow(dedupWindowSize)
	return detect.New(classifier, window, deps.Params, deps.Events, a.logger)
}

// startServer adds the admin HTTP server and WebSocket hub to the errgroup.
// active may be nil in watch mode.
func (a *App) startServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, active handler.ActiveLister) {
	hub := ws.NewHub(deps.Events, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(a.logger),
		Status: handler.NewStatusHandler(
			a.cfg.Mode,
			a.cfg.Venue.Pair,
			a.cfg.Ledger.TrackedAsset,
			time.Now().UTC(),
			active,
			a.logger,
		),
		History: handler.NewHistoryHandler(deps.OpportunityStore, deps.TradeStore, a.logger),
		Params:  handler.NewParamsHandler(deps.Params, a.logger),
	}

	var limiter middleware.RateLimiter
	if deps.Limiter != nil {
		limiter = deps.Limiter
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
	}, handlers, hub, limiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("app: server shutdown: %w", err)
		}
		return ctx.Err()
	})
}
