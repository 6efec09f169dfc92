package domain

import "time"

// OrderSide indicates whether an order buys or sells the tracked asset on
// the venue.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Opposite returns the other side, used when placing the exit leg.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

// TradeState is the lifecycle state of a trade. Progression is strictly
// forward: detected → planned → submitted → confirmed → exiting → completed,
// with failed reachable from any non-terminal state.
type TradeState string

const (
	TradeStateDetected  TradeState = "detected"
	TradeStatePlanned   TradeState = "planned"
	TradeStateSubmitted TradeState = "submitted"
	TradeStateConfirmed TradeState = "confirmed"
	TradeStateExiting   TradeState = "exiting"
	TradeStateCompleted TradeState = "completed"
	TradeStateFailed    TradeState = "failed"
)

// Terminal reports whether the state admits no further transitions.
func (s TradeState) Terminal() bool {
	return s == TradeStateCompleted || s == TradeStateFailed
}

// OrderFill is a confirmed venue order: either the entry leg or the exit leg
// of a trade.
type OrderFill struct {
	OrderID  string
	Side     OrderSide
	Quantity float64
	Price    float64
	At       time.Time
}

// Trade is the mutable record of one hedging position, keyed by the
// originating opportunity's transaction id. The lifecycle manager owns it
// from creation until it reaches a terminal state.
type Trade struct {
	TxID      string
	Direction Direction
	State     TradeState
	Entry     OrderFill
	Exit      *OrderFill
	PnL       *float64
	FailedFor string
	OpenedAt  time.Time
	ClosedAt  *time.Time
}

// RealizedPnL computes profit for the given entry/exit fills. A buy entry
// profits when the exit price is higher; a sell entry profits when it is
// lower.
func RealizedPnL(entry OrderFill, exitPrice float64) float64 {
	if entry.Side == OrderSideBuy {
		return (exitPrice - entry.Price) * entry.Quantity
	}
	return (entry.Price - exitPrice) * entry.Quantity
}
