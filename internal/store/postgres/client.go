// Package postgres implements the domain store interfaces using PostgreSQL
// via pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ClientConfig holds connection parameters for the PostgreSQL client.
type ClientConfig struct {
	DSN      string
	MaxConns int
	MinConns int
}

// Client wraps a pgxpool.Pool and bootstraps the schema.
type Client struct {
	pool *pgxpool.Pool
}

// schema creates the tables on first start. ON CONFLICT inserts depend on
// the tx_id primary keys declared here.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS opportunities (
		tx_id            TEXT PRIMARY KEY,
		detected_at      TIMESTAMPTZ NOT NULL,
		from_asset       TEXT NOT NULL,
		to_asset         TEXT NOT NULL,
		direction        TEXT NOT NULL,
		input_amount     BIGINT NOT NULL,
		size_usd         DOUBLE PRECISION NOT NULL,
		duration_seconds BIGINT NOT NULL,
		from_address     TEXT NOT NULL DEFAULT '',
		height           BIGINT NOT NULL,
		status           TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS trades (
		tx_id          TEXT PRIMARY KEY,
		direction      TEXT NOT NULL,
		state          TEXT NOT NULL,
		entry_order_id TEXT NOT NULL,
		entry_side     TEXT NOT NULL,
		entry_qty      DOUBLE PRECISION NOT NULL,
		entry_price    DOUBLE PRECISION NOT NULL,
		entry_at       TIMESTAMPTZ NOT NULL,
		exit_order_id  TEXT,
		exit_price     DOUBLE PRECISION,
		exit_at        TIMESTAMPTZ,
		pnl            DOUBLE PRECISION,
		failed_for     TEXT NOT NULL DEFAULT '',
		opened_at      TIMESTAMPTZ NOT NULL,
		closed_at      TIMESTAMPTZ
	)`,
}

// New creates a Client with a connection pool configured from cfg, verifies
// connectivity, and bootstraps the schema.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres: bootstrap schema: %w", err)
		}
	}

	return &Client{pool: pool}, nil
}

// Pool returns the underlying connection pool for the store types.
func (c *Client) Pool() *pgxpool.Pool {
	return c.pool
}

// Close closes the connection pool.
func (c *Client) Close() {
	c.pool.Close()
}
