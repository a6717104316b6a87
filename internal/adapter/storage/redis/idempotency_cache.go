package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// IdempotencyCache implements ports.IdempotencyCache using Redis. Keys
// are gateway transaction references; values are serialized distribution
// results, so a replayed webhook can answer without touching PostgreSQL.
type IdempotencyCache struct {
	client *goredis.Client
	prefix string
}

// NewIdempotencyCache creates a new Redis-backed idempotency cache.
func NewIdempotencyCache(client *goredis.Client) *IdempotencyCache {
	return &IdempotencyCache{
		client: client,
		prefix: "distribution:",
	}
}

// Get retrieves a cached distribution result by gateway transaction
// reference. Returns nil, nil if the reference was never seen.
func (c *IdempotencyCache) Get(ctx context.Context, gatewayTxnRef string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+gatewayTxnRef).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis idempotency get: %w", err)
	}
	return val, nil
}

// Set stores a distribution result with TTL. Expiry is harmless: the
// database existence check behind the cache catches stale replays.
func (c *IdempotencyCache) Set(ctx context.Context, gatewayTxnRef string, value []byte, ttl time.Duration) error {
	err := c.client.Set(ctx, c.prefix+gatewayTxnRef, value, ttl).Err()
	if err != nil {
		return fmt.Errorf("redis idempotency set: %w", err)
	}
	return nil
}
