package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const defaultCacheTTL = 5 * time.Minute

// Cache keeps mapped catalog payloads in Redis so replicas share one copy.
// Mapped products already carry fallback prices, so the TTL also bounds how
// long a bad backend price stays visible.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache builds a Cache. A nil client yields a cache that never hits.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool { return c != nil && c.client != nil }

// readThrough returns the cached value under key or loads, stores and
// returns a fresh one. Cache failures are logged and never fail the read.
func readThrough[T any](ctx context.Context, c *Cache, logger zerolog.Logger, key string, load func(context.Context) (T, error)) (T, error) {
	if c.enabled() {
		raw, err := c.client.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var v T
			if err := json.Unmarshal(raw, &v); err == nil {
				return v, nil
			}
			logger.Warn().Str("key", key).Msg("catalog cache entry unreadable")
		case !errors.Is(err, redis.Nil):
			logger.Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
		}
	}

	v, err := load(ctx)
	if err != nil || !c.enabled() {
		return v, err
	}
	raw, err := json.Marshal(v)
	if err == nil {
		err = c.client.Set(ctx, key, raw, c.ttl).Err()
	}
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
	}
	return v, nil
}
