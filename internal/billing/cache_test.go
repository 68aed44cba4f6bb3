package billing

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *StatsCache {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStatsCache(client, time.Minute)
}

func TestStatsCacheFetchAndInvalidate(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (*Stats, error) {
		calls++
		return &Stats{TotalInvoices: calls}, nil
	}

	first, err := cache.Fetch(ctx, 7, loader)
	require.NoError(t, err)
	assert.Equal(t, 1, first.TotalInvoices)

	second, err := cache.Fetch(ctx, 7, loader)
	require.NoError(t, err)
	assert.Equal(t, 1, second.TotalInvoices, "second fetch is served from cache")
	assert.Equal(t, 1, calls)

	cache.Invalidate(ctx, 7)
	third, err := cache.Fetch(ctx, 7, loader)
	require.NoError(t, err)
	assert.Equal(t, 2, third.TotalInvoices, "invalidation forces a reload")
}

func TestStatsCachePerUser(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	_, err := cache.Fetch(ctx, 7, func(context.Context) (*Stats, error) {
		return &Stats{TotalInvoices: 10}, nil
	})
	require.NoError(t, err)

	cache.Invalidate(ctx, 8)
	cached, err := cache.Fetch(ctx, 7, func(context.Context) (*Stats, error) {
		return &Stats{TotalInvoices: 99}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 10, cached.TotalInvoices, "another user's invalidation does not evict")
}

func TestStatsCacheNilIsPassthrough(t *testing.T) {
	var cache *StatsCache
	stats, err := cache.Fetch(context.Background(), 7, func(context.Context) (*Stats, error) {
		return &Stats{TotalInvoices: 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalInvoices)
	cache.Invalidate(context.Background(), 7)
}
