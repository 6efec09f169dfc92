package planner

import (
	"fmt"

	"streamarb/internal/domain"
)

// SimulateFill walks the price levels of one book side for the requested
// quantity, accumulating filled volume and a volume-weighted average price.
// Levels must be ordered best-first (ascending asks, descending bids).
//
// Returns domain.ErrInsufficientLiquidity when the book is exhausted before
// the quantity is satisfied. Slippage is the signed percentage deviation of
// the average fill price from the best level, positive for adverse movement
// on either side.
func SimulateFill(levels []domain.PriceLevel, qty float64, side domain.OrderSide) (domain.FillEstimate, error) {
	if qty <= 0 {
		return domain.FillEstimate{}, fmt.Errorf("planner: quantity must be positive, got %v", qty)
	}
	if len(levels) == 0 {
		return domain.FillEstimate{}, domain.ErrEmptyBook
	}

	best := levels[0].Price

	var filled, cost float64
	remaining := qty
	for _, level := range levels {
		if remaining <= 0 {
			break
		}
		take := level.Volume
		if take > remaining {
			take = remaining
		}
		filled += take
		cost += take * level.Price
		remaining -= take
	}

	if remaining > 0 {
		return domain.FillEstimate{}, domain.ErrInsufficientLiquidity
	}

	avg := cost / filled

	var slippage float64
	if best > 0 {
		if side == domain.OrderSideBuy {
			slippage = (avg - best) / best * 100
		} else {
			slippage = (best - avg) / best * 100
		}
	}

	return domain.FillEstimate{
		Quantity:    filled,
		AvgPrice:    avg,
		BestPrice:   best,
		SlippagePct: slippage,
	}, nil
}

// sideLevels picks the book side an order of the given side consumes: buys
// walk the asks, sells walk the bids.
func sideLevels(snap domain.DepthSnapshot, side domain.OrderSide) []domain.PriceLevel {
	if side == domain.OrderSideBuy {
		return snap.Asks
	}
	return snap.Bids
}
