package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), srv
}

func TestCacheFetchJSONPopulatesOnce(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "dashboard", "charts", "42")
	require.NoError(t, err)

	calls := 0
	loader := func(context.Context) (interface{}, error) {
		calls++
		return ChartData{Sales: []SalesPoint{{Day: "2026-03-10", TotalRevenue: 150, OrderCount: 2}}}, nil
	}

	var first ChartData
	require.NoError(t, cache.FetchJSON(ctx, key, &first, loader))
	var second ChartData
	require.NoError(t, cache.FetchJSON(ctx, key, &second, loader))

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

func TestCacheBumpInvalidatesKeys(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	before, err := cache.BuildKey(ctx, "dashboard", "charts", "42")
	require.NoError(t, err)

	calls := 0
	loader := func(context.Context) (interface{}, error) {
		calls++
		return ChartData{}, nil
	}
	var data ChartData
	require.NoError(t, cache.FetchJSON(ctx, before, &data, loader))

	require.NoError(t, cache.Bump(ctx))

	after, err := cache.BuildKey(ctx, "dashboard", "charts", "42")
	require.NoError(t, err)
	assert.NotEqual(t, before, after)

	require.NoError(t, cache.FetchJSON(ctx, after, &data, loader))
	assert.Equal(t, 2, calls)
}

func TestCacheDegradesWithoutClient(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "dashboard", "charts", "42")
	require.NoError(t, err)

	calls := 0
	var data ChartData
	loader := func(context.Context) (interface{}, error) {
		calls++
		return ChartData{}, nil
	}
	require.NoError(t, cache.FetchJSON(ctx, key, &data, loader))
	require.NoError(t, cache.FetchJSON(ctx, key, &data, loader))
	assert.Equal(t, 2, calls)
	require.NoError(t, cache.Bump(ctx))
}
