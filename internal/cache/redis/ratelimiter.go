package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter implements fixed-window rate limiting on Redis, shared across
// replicas hitting the same instance.
type RateLimiter struct {
	rdb *redis.Client
}

// NewRateLimiter creates a RateLimiter backed by the given Client.
func NewRateLimiter(c *Client) *RateLimiter {
	return &RateLimiter{rdb: c.Underlying()}
}

// Allow counts one request against key and reports whether it is within
// limit for the current window. The window TTL is set when the counter is
// first created.
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: rate limit %s: %w", key, err)
	}
	return incr.Val() <= int64(limit), nil
}
