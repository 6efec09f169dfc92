// Package detect validates classified stream swaps into tradeable
// opportunities: it enforces exactly-once emission per transaction id via a
// bounded dedup window and applies the operator-tunable size and duration
// thresholds.
package detect

import (
	"context"
	"log/slog"
	"time"

	"streamarb/internal/bus"
	"streamarb/internal/classify"
	"streamarb/internal/config"
	"streamarb/internal/domain"
)

// Sink receives validated opportunities. In trade mode this is the planner;
// in watch mode it is nil and emission stops at the event bus.
type Sink func(ctx context.Context, opp domain.Opportunity)

// Detector consumes raw ledger actions and emits at most one Opportunity per
// transaction id.
type Detector struct {
	classifier *classify.Classifier
	window     *DedupWindow
	params     *config.Runtime
	events     *bus.Bus
	sink       Sink
	logger     *slog.Logger
}

// New creates a Detector.
func New(classifier *classify.Classifier, window *DedupWindow, params *config.Runtime, events *bus.Bus, logger *slog.Logger) *Detector {
	return &Detector{
		classifier: classifier,
		window:     window,
		params:     params,
		events:     events,
		logger:     logger.With(slog.String("component", "detector")),
	}
}

// SetSink registers the downstream consumer of validated opportunities. Must
// be called during wiring, before the poll loop starts.
func (d *Detector) SetSink(sink Sink) {
	d.sink = sink
}

// OnAction processes one raw action. Classification rejections and threshold
// drops are normal outcomes; only the first sighting of a qualifying pending
// stream swap produces an Opportunity.
func (d *Detector) OnAction(ctx context.Context, action domain.RawAction) {
	swap, err := d.classifier.Classify(ctx, action)
	if err != nil {
		// Non-stream swaps dominate the feed; the classifier already warns
		// on the data-quality cases worth surfacing.
		return
	}

	// Insert before threshold evaluation: a threshold-rejected transaction
	// must not be re-evaluated when a later poll returns the same action.
	if !d.window.Insert(swap.TxID) {
		return
	}

	d.events.Publish(ctx, bus.TopicActionDetected, swap.TxID, action)
	d.events.Publish(ctx, bus.TopicStreamSwapDetected, swap.TxID, swap)

	minSize := d.params.MinSizeUSD()
	minDuration := d.params.MinDurationSec()

	if swap.SizeUSD < minSize || swap.DurationSeconds < minDuration {
		d.logger.InfoContext(ctx, "stream swap below thresholds, dropping",
			slog.String("tx_id", swap.TxID),
			slog.Float64("size_usd", swap.SizeUSD),
			slog.Float64("min_size_usd", minSize),
			slog.Int64("duration_sec", swap.DurationSeconds),
			slog.Int64("min_duration_sec", minDuration),
		)
		return
	}

	if swap.Status != domain.ActionStatusPending {
		d.logger.InfoContext(ctx, "stream swap already finalized, dropping",
			slog.String("tx_id", swap.TxID),
			slog.String("status", string(swap.Status)),
		)
		return
	}

	opp := domain.Opportunity{
		TxID:            swap.TxID,
		DetectedAt:      time.Now().UTC(),
		FromAsset:       swap.FromAsset,
		ToAsset:         swap.ToAsset,
		Direction:       swap.Direction,
		InputAmount:     swap.InputAmount,
		SizeUSD:         swap.SizeUSD,
		DurationSeconds: swap.DurationSeconds,
		Pools:           swap.Pools,
		FromAddress:     swap.FromAddress,
		Height:          swap.Height,
		Status:          swap.Status,
	}

	d.logger.InfoContext(ctx, "valid opportunity detected",
		slog.String("tx_id", opp.TxID),
		slog.String("direction", string(opp.Direction)),
		slog.Float64("size_usd", opp.SizeUSD),
		slog.Int64("duration_sec", opp.DurationSeconds),
		slog.Int64("height", opp.Height),
	)

	d.events.Publish(ctx, bus.TopicValidOpportunity, opp.TxID, opp)

	if d.sink != nil {
		d.sink(ctx, opp)
	}
}
