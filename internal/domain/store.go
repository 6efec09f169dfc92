package domain

import "context"

// OpportunityStore persists emitted opportunities. Insert must be idempotent
// on transaction id so a crash-restart replay cannot duplicate rows.
type OpportunityStore interface {
	Insert(ctx context.Context, opp Opportunity) error
	ListRecent(ctx context.Context, limit int) ([]Opportunity, error)
}

// TradeStore persists trades that reached a terminal state, including
// realized PnL for completed ones.
type TradeStore interface {
	Insert(ctx context.Context, trade Trade) error
	ListRecent(ctx context.Context, limit int) ([]Trade, error)
}
