// Package planner converts validated opportunities into entry orders: it
// sizes the position from the venue mid price, simulates the fill against
// the depth book, rejects plans with too little liquidity or too much
// slippage, and submits the entry market order.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"streamarb/internal/config"
	"streamarb/internal/domain"
)

// DepthProvider fetches an order book snapshot for a trading pair.
type DepthProvider interface {
	Depth(ctx context.Context, pair string, count int) (domain.DepthSnapshot, error)
}

// OrderPlacer submits market orders to the venue, or simulates them in
// dry-run mode.
type OrderPlacer interface {
	PlaceMarketOrder(ctx context.Context, pair string, side domain.OrderSide, qty float64) (domain.OrderFill, error)
}

// Planner plans and submits entry orders for one trading pair.
type Planner struct {
	depth      DepthProvider
	exec       OrderPlacer
	params     *config.Runtime
	pair       string
	depthCount int
	logger     *slog.Logger
}

// New creates a Planner.
func New(depth DepthProvider, exec OrderPlacer, params *config.Runtime, pair string, depthCount int, logger *slog.Logger) *Planner {
	return &Planner{
		depth:      depth,
		exec:       exec,
		params:     params,
		pair:       pair,
		depthCount: depthCount,
		logger:     logger.With(slog.String("component", "planner")),
	}
}

// Plan sizes, validates, and submits the entry order for an opportunity. A
// long opportunity buys the tracked asset on the venue; a short one sells
// it. Business-rule rejections come back as the domain sentinels; the caller
// treats them as normal outcomes.
func (p *Planner) Plan(ctx context.Context, opp domain.Opportunity) (domain.OrderFill, error) {
	side := domain.OrderSideBuy
	if opp.Direction == domain.DirectionShort {
		side = domain.OrderSideSell
	}

	// Check the exit window before committing capital: if the exit could not
	// be scheduled anyway there is no point entering.
	if opp.DurationSeconds-p.params.ExitBufferSec() <= 0 {
		p.logger.InfoContext(ctx, "exit window too short, skipping entry",
			slog.String("tx_id", opp.TxID),
			slog.Int64("duration_sec", opp.DurationSeconds),
			slog.Int64("exit_buffer_sec", p.params.ExitBufferSec()),
		)
		return domain.OrderFill{}, domain.ErrExitWindowTooShort
	}

	qty, err := p.targetQuantity(ctx, opp, side)
	if err != nil {
		return domain.OrderFill{}, err
	}

	fill, err := p.exec.PlaceMarketOrder(ctx, p.pair, side, qty)
	if err != nil {
		return domain.OrderFill{}, fmt.Errorf("planner: submit entry for %s: %w", opp.TxID, err)
	}

	p.logger.InfoContext(ctx, "entry order placed",
		slog.String("tx_id", opp.TxID),
		slog.String("order_id", fill.OrderID),
		slog.String("side", string(fill.Side)),
		slog.Float64("quantity", fill.Quantity),
		slog.Float64("price", fill.Price),
	)

	return fill, nil
}

// targetQuantity computes the order size and validates it against the book.
// When the depth snapshot cannot be fetched the configured fallback quantity
// is used unchecked, keeping the pipeline non-blocking; a zero fallback
// aborts the plan instead.
func (p *Planner) targetQuantity(ctx context.Context, opp domain.Opportunity, side domain.OrderSide) (float64, error) {
	snap, err := p.depth.Depth(ctx, p.pair, p.depthCount)
	if err != nil || snap.MidPrice() <= 0 {
		fb := p.params.FallbackQty()
		if fb <= 0 {
			if err == nil {
				err = domain.ErrEmptyBook
			}
			return 0, fmt.Errorf("planner: depth unavailable and no fallback quantity: %w", err)
		}
		p.logger.WarnContext(ctx, "depth unavailable, using fallback quantity",
			slog.String("tx_id", opp.TxID),
			slog.Float64("fallback_qty", fb),
		)
		return fb, nil
	}

	qty := p.params.NotionalUSD() / snap.MidPrice()

	est, err := SimulateFill(sideLevels(snap, side), qty, side)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientLiquidity) {
			p.logger.InfoContext(ctx, "plan rejected: insufficient liquidity",
				slog.String("tx_id", opp.TxID),
				slog.Float64("quantity", qty),
			)
		}
		return 0, err
	}

	maxSlippage := p.params.MaxSlippagePct()
	if est.SlippagePct > maxSlippage {
		p.logger.InfoContext(ctx, "plan rejected: slippage above maximum",
			slog.String("tx_id", opp.TxID),
			slog.Float64("slippage_pct", est.SlippagePct),
			slog.Float64("max_slippage_pct", maxSlippage),
		)
		return 0, domain.ErrSlippageExceeded
	}

	return qty, nil
}
