package inventory

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*BalanceCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewBalanceCache(client, time.Minute), mr
}

func TestBalanceCacheReadThrough(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(ctx context.Context) (float64, error) {
		loads++
		return 42.5, nil
	}

	got, err := cache.Get(ctx, "BOLT-M8", "MAIN", loader)
	require.NoError(t, err)
	require.InDelta(t, 42.5, got, 1e-9)
	require.Equal(t, 1, loads)

	// Second read is served from Redis.
	got, err = cache.Get(ctx, "BOLT-M8", "MAIN", loader)
	require.NoError(t, err)
	require.InDelta(t, 42.5, got, 1e-9)
	require.Equal(t, 1, loads)
}

func TestBalanceCacheInvalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	value := 10.0
	loads := 0
	loader := func(ctx context.Context) (float64, error) {
		loads++
		return value, nil
	}

	got, err := cache.Get(ctx, "BOLT-M8", "MAIN", loader)
	require.NoError(t, err)
	require.InDelta(t, 10.0, got, 1e-9)

	value = 7.0
	require.NoError(t, cache.Invalidate(ctx, "BOLT-M8", "MAIN"))

	got, err = cache.Get(ctx, "BOLT-M8", "MAIN", loader)
	require.NoError(t, err)
	require.InDelta(t, 7.0, got, 1e-9)
	require.Equal(t, 2, loads)
}

func TestBalanceCacheKeysAreScopedPerPair(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	got, err := cache.Get(ctx, "BOLT-M8", "MAIN", func(ctx context.Context) (float64, error) { return 1, nil })
	require.NoError(t, err)
	require.InDelta(t, 1.0, got, 1e-9)

	got, err = cache.Get(ctx, "BOLT-M8", "STORE-2", func(ctx context.Context) (float64, error) { return 2, nil })
	require.NoError(t, err)
	require.InDelta(t, 2.0, got, 1e-9)
}

func TestBalanceCacheOutageFallsBackToLoader(t *testing.T) {
	cache, mr := newTestCache(t)
	mr.Close()

	got, err := cache.Get(context.Background(), "BOLT-M8", "MAIN", func(ctx context.Context) (float64, error) { return 3, nil })
	require.NoError(t, err)
	require.InDelta(t, 3.0, got, 1e-9)
}

func TestPostMovementLogsFailedInvalidation(t *testing.T) {
	cache, mr := newTestCache(t)
	var logged bytes.Buffer
	svc := NewService(newMemoryLedger(), cache, nil, nil, nil, ServiceConfig{
		Logger: slog.New(slog.NewTextHandler(&logged, nil)),
	})
	ctx := context.Background()

	// Posting still succeeds when the cache is unreachable, but the stale
	// key must be reported.
	mr.Close()
	entries, err := svc.PostMovement(ctx, Movement{ItemCode: "BOLT-M8", ToWarehouse: "MAIN", Qty: 5, VoucherRef: "PR-001"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Contains(t, logged.String(), "invalidate balance cache")
}

func TestNilCacheDelegatesToLoader(t *testing.T) {
	var cache *BalanceCache
	got, err := cache.Get(context.Background(), "BOLT-M8", "MAIN", func(ctx context.Context) (float64, error) { return 9, nil })
	require.NoError(t, err)
	require.InDelta(t, 9.0, got, 1e-9)
	require.NoError(t, cache.Invalidate(context.Background(), "BOLT-M8", "MAIN"))
}
