// Package poller drives the detection pipeline: a fixed-cadence loop
// aligned with the ledger's nominal block time fetches recent swap actions
// and feeds them to the detector in ascending height order.
package poller

import (
	"context"
	"log/slog"
	"time"

	"streamarb/internal/detect"
	"streamarb/internal/domain"
)

// ActionSource fetches a window of recent swap actions, ordered ascending by
// height with ties in response order.
type ActionSource interface {
	GetSwapActions(ctx context.Context, limit int) ([]domain.RawAction, error)
}

// Poller polls the action source and forwards each batch to the detector.
// Batches are processed synchronously and in full before the next tick, so
// polls never overlap.
type Poller struct {
	source   ActionSource
	detector *detect.Detector
	interval time.Duration
	limit    int
	logger   *slog.Logger

	// lastHeight is the high-water mark of fully processed batches. Only the
	// poll goroutine touches it.
	lastHeight int64
}

// New creates a Poller. interval should match the ledger's nominal block
// time; limit should be sized with margin over the typical actions per
// block.
func New(source ActionSource, detector *detect.Detector, interval time.Duration, limit int, logger *slog.Logger) *Poller {
	return &Poller{
		source:   source,
		detector: detector,
		interval: interval,
		limit:    limit,
		logger:   logger.With(slog.String("component", "poller")),
	}
}

// RunLoop polls once immediately and then on every tick until the context is
// cancelled. Transport failures abandon the current cycle; the next tick is
// the retry mechanism.
func (p *Poller) RunLoop(ctx context.Context) error {
	p.logger.InfoContext(ctx, "poll loop starting",
		slog.Duration("interval", p.interval),
		slog.Int("fetch_limit", p.limit),
	)

	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poll loop stopping")
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll fetches one batch and processes it. The height watermark is computed
// over the whole batch and applied only after it finishes: advancing it
// inside the loop would skip same-height sibling actions later in the batch.
func (p *Poller) poll(ctx context.Context) {
	actions, err := p.source.GetSwapActions(ctx, p.limit)
	if err != nil {
		p.logger.WarnContext(ctx, "action fetch failed, skipping cycle",
			slog.String("error", err.Error()),
		)
		return
	}

	batchMax := p.lastHeight
	processed := 0

	for _, action := range actions {
		// Strictly below the watermark: heights equal to it may still hold
		// unseen siblings, which the dedup window separates from repeats.
		if action.Height < p.lastHeight {
			continue
		}
		p.detector.OnAction(ctx, action)
		processed++
		if action.Height > batchMax {
			batchMax = action.Height
		}
	}

	p.lastHeight = batchMax

	p.logger.DebugContext(ctx, "poll cycle complete",
		slog.Int("fetched", len(actions)),
		slog.Int("processed", processed),
		slog.Int64("height_watermark", p.lastHeight),
	)
}
