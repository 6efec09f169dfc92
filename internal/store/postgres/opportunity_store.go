package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"streamarb/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates a store backed by the given client.
func NewOpportunityStore(c *Client) *OpportunityStore {
	return &OpportunityStore{pool: c.Pool()}
}

// Insert stores one opportunity. Duplicate transaction ids are silently
// skipped via ON CONFLICT DO NOTHING, keeping the operation idempotent
// across restarts.
func (s *OpportunityStore) Insert(ctx context.Context, opp domain.Opportunity) error {
	const query = `
		INSERT INTO opportunities (
			tx_id, detected_at, from_asset, to_asset, direction,
			input_amount, size_usd, duration_seconds, from_address, height, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (tx_id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		opp.TxID, opp.DetectedAt, opp.FromAsset, opp.ToAsset, string(opp.Direction),
		opp.InputAmount, opp.SizeUSD, opp.DurationSeconds, opp.FromAddress, opp.Height, string(opp.Status),
	)
	if err != nil {
		return fmt.Errorf("postgres: insert opportunity %s: %w", opp.TxID, err)
	}
	return nil
}

// ListRecent returns the most recently detected opportunities, newest first.
func (s *OpportunityStore) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	const query = `
		SELECT tx_id, detected_at, from_asset, to_asset, direction,
		       input_amount, size_usd, duration_seconds, from_address, height, status
		FROM opportunities
		ORDER BY detected_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities: %w", err)
	}
	defer rows.Close()

	var out []domain.Opportunity
	for rows.Next() {
		var opp domain.Opportunity
		var direction, status string
		if err := rows.Scan(
			&opp.TxID, &opp.DetectedAt, &opp.FromAsset, &opp.ToAsset, &direction,
			&opp.InputAmount, &opp.SizeUSD, &opp.DurationSeconds, &opp.FromAddress, &opp.Height, &status,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		opp.Direction = domain.Direction(direction)
		opp.Status = domain.ActionStatus(status)
		out = append(out, opp)
	}
	return out, rows.Err()
}
