package domain

import "time"

// PriceLevel is a single price+volume entry in a venue depth book.
type PriceLevel struct {
	Price  float64
	Volume float64
}

// DepthSnapshot is a best-N view of both sides of the venue book for the
// hedging pair.
type DepthSnapshot struct {
	Pair      string
	Bids      []PriceLevel
	Asks      []PriceLevel
	Timestamp time.Time
}

// BestBid returns the highest bid price, or 0 when the bid side is empty.
func (d DepthSnapshot) BestBid() float64 {
	if len(d.Bids) == 0 {
		return 0
	}
	return d.Bids[0].Price
}

// BestAsk returns the lowest ask price, or 0 when the ask side is empty.
func (d DepthSnapshot) BestAsk() float64 {
	if len(d.Asks) == 0 {
		return 0
	}
	return d.Asks[0].Price
}

// MidPrice returns the average of best bid and best ask, or 0 when either
// side is empty.
func (d DepthSnapshot) MidPrice() float64 {
	bid, ask := d.BestBid(), d.BestAsk()
	if bid == 0 || ask == 0 {
		return 0
	}
	return (bid + ask) / 2
}

// FillEstimate is the result of walking the book for a requested quantity:
// the volume-weighted average price and the signed slippage versus the best
// level (positive means adverse movement).
type FillEstimate struct {
	Quantity    float64
	AvgPrice    float64
	BestPrice   float64
	SlippagePct float64
}
