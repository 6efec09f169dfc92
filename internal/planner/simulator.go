package planner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"streamarb/internal/domain"
)

// Simulator implements OrderPlacer against the live depth book without
// sending anything to the venue. It reuses the same depth-walk logic as the
// planner's liquidity check, so dry-run fills carry realistic prices.
type Simulator struct {
	depth      DepthProvider
	depthCount int
	logger     *slog.Logger
}

// NewSimulator creates a dry-run order placer.
func NewSimulator(depth DepthProvider, depthCount int, logger *slog.Logger) *Simulator {
	return &Simulator{
		depth:      depth,
		depthCount: depthCount,
		logger:     logger.With(slog.String("component", "simulator")),
	}
}

// PlaceMarketOrder simulates a market order fill against the current book.
func (s *Simulator) PlaceMarketOrder(ctx context.Context, pair string, side domain.OrderSide, qty float64) (domain.OrderFill, error) {
	snap, err := s.depth.Depth(ctx, pair, s.depthCount)
	if err != nil {
		return domain.OrderFill{}, fmt.Errorf("simulator: fetch depth: %w", err)
	}

	est, err := SimulateFill(sideLevels(snap, side), qty, side)
	if err != nil {
		return domain.OrderFill{}, fmt.Errorf("simulator: fill %s %v %s: %w", pair, qty, side, err)
	}

	fill := domain.OrderFill{
		OrderID:  "sim-" + uuid.New().String(),
		Side:     side,
		Quantity: est.Quantity,
		Price:    est.AvgPrice,
		At:       time.Now().UTC(),
	}

	s.logger.InfoContext(ctx, "simulated order fill",
		slog.String("order_id", fill.OrderID),
		slog.String("side", string(side)),
		slog.Float64("quantity", fill.Quantity),
		slog.Float64("price", fill.Price),
	)

	return fill, nil
}
