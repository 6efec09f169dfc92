// Package classify turns raw ledger actions into structured stream-swap
// records: it filters non-streaming swaps, infers trade direction and
// notional size under missing or inconsistent data, and estimates how long
// the swap's sub-swaps will keep executing.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"streamarb/internal/domain"
)

// baseUnits is the fixed-point denominator for ledger amounts.
const baseUnits = 1e8

// StatusLookup is the authoritative per-transaction sizing source. It is
// optional; lookup failures fall back to feed-derived sizing.
type StatusLookup interface {
	GetTxStatus(ctx context.Context, txID string) (domain.TxStatus, error)
}

// Classifier classifies raw actions for a single tracked asset.
type Classifier struct {
	trackedAsset string
	blockSeconds int64
	status       StatusLookup
	resolvers    []DirectionResolver
	logger       *slog.Logger
}

// New creates a Classifier. status may be nil, in which case only the
// metadata sizing path is used.
func New(trackedAsset string, blockSeconds int, status StatusLookup, logger *slog.Logger) *Classifier {
	return &Classifier{
		trackedAsset: trackedAsset,
		blockSeconds: int64(blockSeconds),
		status:       status,
		resolvers:    DefaultResolvers(),
		logger:       logger.With(slog.String("component", "classifier")),
	}
}

// Classify returns the structured stream swap for the action, or a sentinel
// error describing why the action is not classifiable. Sentinels are normal
// outcomes, not faults: most actions on the feed are plain swaps.
func (c *Classifier) Classify(ctx context.Context, action domain.RawAction) (domain.StreamSwap, error) {
	if action.Type != "swap" {
		return domain.StreamSwap{}, domain.ErrNotSwap
	}
	if action.Swap == nil || !action.Swap.IsStreaming || action.Swap.Streaming == nil {
		return domain.StreamSwap{}, domain.ErrNotStreaming
	}

	txID := action.TxID()

	from, to, ok := c.resolveDirection(action)
	if !ok {
		c.logger.WarnContext(ctx, "could not infer swap direction, dropping action",
			slog.String("tx_id", txID),
			slog.Int64("height", action.Height),
		)
		return domain.StreamSwap{}, domain.ErrNoDirection
	}

	var direction domain.Direction
	switch c.trackedAsset {
	case to:
		direction = domain.DirectionLong
	case from:
		direction = domain.DirectionShort
	default:
		return domain.StreamSwap{}, domain.ErrNotTracked
	}

	sm := action.Swap.Streaming
	duration := sm.Count * sm.IntervalBlocks * c.blockSeconds

	inputAmount := firstInputAmount(action)
	sizeUSD := c.sizeUSD(ctx, txID, action)

	swap := domain.StreamSwap{
		TxID:            txID,
		FromAsset:       from,
		ToAsset:         to,
		Direction:       direction,
		InputAmount:     inputAmount,
		SizeUSD:         sizeUSD,
		DurationSeconds: duration,
		Pools:           action.Pools,
		FromAddress:     firstInputAddress(action),
		Height:          action.Height,
		Status:          action.Status,
	}

	c.logger.DebugContext(ctx, "classified stream swap",
		slog.String("tx_id", swap.TxID),
		slog.String("direction", string(swap.Direction)),
		slog.Float64("size_usd", swap.SizeUSD),
		slog.Int64("duration_sec", swap.DurationSeconds),
	)

	return swap, nil
}

func (c *Classifier) resolveDirection(action domain.RawAction) (string, string, bool) {
	for _, resolve := range c.resolvers {
		if from, to, ok := resolve(action); ok {
			return from, to, true
		}
	}
	return "", "", false
}

// sizeUSD computes the swap's notional size in USD. The authoritative node
// lookup is preferred because the batch feed under-reports the input amount
// while sub-swaps are still settling; when the lookup is unavailable the
// metadata fallback takes the larger of the deposited-side and
// estimated-output-side valuations.
func (c *Classifier) sizeUSD(ctx context.Context, txID string, action domain.RawAction) float64 {
	inPrice := action.Swap.InPriceUSD
	outPrice := action.Swap.OutPriceUSD

	if c.status != nil && txID != "" {
		status, err := c.status.GetTxStatus(ctx, txID)
		if err == nil && len(status.Coins) > 0 {
			size := float64(status.Coins[0].Amount) / baseUnits * inPrice
			if finitePositive(size) {
				return size
			}
		} else if err != nil {
			c.logger.DebugContext(ctx, "status lookup unavailable, using metadata sizing",
				slog.String("tx_id", txID),
				slog.String("error", fmt.Sprintf("%v", err)),
			)
		}
	}

	sm := action.Swap.Streaming
	deposited := float64(sm.DepositedCoin.Amount) / baseUnits * inPrice
	estimated := float64(sm.OutCoin.Amount) / baseUnits * outPrice

	size := math.Max(deposited, estimated)
	if !finitePositive(size) {
		return 0
	}
	return size
}

func finitePositive(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f > 0
}

func firstInputAmount(action domain.RawAction) int64 {
	for _, in := range action.In {
		for _, coin := range in.Coins {
			if coin.Amount > 0 {
				return coin.Amount
			}
		}
	}
	return 0
}

func firstInputAddress(action domain.RawAction) string {
	for _, in := range action.In {
		if in.Address != "" {
			return in.Address
		}
	}
	return ""
}
