package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const statsVersionKey = "billing:stats:version"

// StatsCache caches dashboard stats in Redis behind a per-user version
// counter. Invalidation bumps the version, leaving stale entries to expire.
// A nil cache is a no-op so tests and degraded deployments skip Redis.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatsCache instantiates the cache helper.
func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

func (c *StatsCache) version(ctx context.Context, userID int64) (int64, error) {
	key := fmt.Sprintf("%s:%d", statsVersionKey, userID)
	ver, err := c.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, key, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

func (c *StatsCache) key(ctx context.Context, userID int64) (string, error) {
	ver, err := c.version(ctx, userID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("billing:stats:%d:%d", userID, ver), nil
}

// Fetch loads cached stats or populates them using the loader.
func (c *StatsCache) Fetch(ctx context.Context, userID int64, loader func(context.Context) (*Stats, error)) (*Stats, error) {
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	key, err := c.key(ctx, userID)
	if err != nil {
		return loader(ctx)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var s Stats
		if err := json.Unmarshal(payload, &s); err == nil {
			return &s, nil
		}
	}
	stats, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(stats); err == nil {
		_ = c.client.Set(ctx, key, raw, c.ttl).Err()
	}
	return stats, nil
}

// Invalidate bumps the user's version so the next Fetch misses.
func (c *StatsCache) Invalidate(ctx context.Context, userID int64) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Incr(ctx, fmt.Sprintf("%s:%d", statsVersionKey, userID)).Err()
}
