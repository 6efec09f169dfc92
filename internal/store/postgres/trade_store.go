package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"streamarb/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL. Only terminal
// trades are persisted; the active set lives with the lifecycle manager.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a store backed by the given client.
func NewTradeStore(c *Client) *TradeStore {
	return &TradeStore{pool: c.Pool()}
}

// Insert stores one terminal trade, skipping duplicates by transaction id.
func (s *TradeStore) Insert(ctx context.Context, t domain.Trade) error {
	const query = `
		INSERT INTO trades (
			tx_id, direction, state,
			entry_order_id, entry_side, entry_qty, entry_price, entry_at,
			exit_order_id, exit_price, exit_at,
			pnl, failed_for, opened_at, closed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (tx_id) DO NOTHING`

	var exitOrderID *string
	var exitPrice *float64
	var exitAt *time.Time
	if t.Exit != nil {
		exitOrderID = &t.Exit.OrderID
		exitPrice = &t.Exit.Price
		exitAt = &t.Exit.At
	}

	_, err := s.pool.Exec(ctx, query,
		t.TxID, string(t.Direction), string(t.State),
		t.Entry.OrderID, string(t.Entry.Side), t.Entry.Quantity, t.Entry.Price, t.Entry.At,
		exitOrderID, exitPrice, exitAt,
		t.PnL, t.FailedFor, t.OpenedAt, t.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert trade %s: %w", t.TxID, err)
	}
	return nil
}

// ListRecent returns the most recently closed trades, newest first.
func (s *TradeStore) ListRecent(ctx context.Context, limit int) ([]domain.Trade, error) {
	const query = `
		SELECT tx_id, direction, state,
		       entry_order_id, entry_side, entry_qty, entry_price, entry_at,
		       exit_order_id, exit_price, exit_at,
		       pnl, failed_for, opened_at, closed_at
		FROM trades
		ORDER BY opened_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades: %w", err)
	}
	defer rows.Close()

	var out []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var direction, state, entrySide string
		var exitOrderID *string
		var exitPrice *float64
		var exitAt *time.Time
		if err := rows.Scan(
			&t.TxID, &direction, &state,
			&t.Entry.OrderID, &entrySide, &t.Entry.Quantity, &t.Entry.Price, &t.Entry.At,
			&exitOrderID, &exitPrice, &exitAt,
			&t.PnL, &t.FailedFor, &t.OpenedAt, &t.ClosedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		t.Direction = domain.Direction(direction)
		t.State = domain.TradeState(state)
		t.Entry.Side = domain.OrderSide(entrySide)
		if exitOrderID != nil {
			t.Exit = &domain.OrderFill{
				OrderID: *exitOrderID,
				Side:    t.Entry.Side.Opposite(),
			}
			if exitPrice != nil {
				t.Exit.Price = *exitPrice
			}
			if exitAt != nil {
				t.Exit.At = *exitAt
			}
			t.Exit.Quantity = t.Entry.Quantity
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
