package inventory

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// BalanceCache is a read-through Redis cache for stock balances. Concurrent
// reads of the same key are collapsed into one loader call.
type BalanceCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewBalanceCache builds a cache with the given TTL.
func NewBalanceCache(client *redis.Client, ttl time.Duration) *BalanceCache {
	return &BalanceCache{client: client, ttl: ttl}
}

func balanceKey(itemCode, warehouse string) string {
	return fmt.Sprintf("stock:balance:%s:%s", itemCode, warehouse)
}

// Get returns the cached balance or loads and stores it. A cache outage
// falls back to the loader.
func (c *BalanceCache) Get(ctx context.Context, itemCode, warehouse string, loader func(context.Context) (float64, error)) (float64, error) {
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	key := balanceKey(itemCode, warehouse)
	if raw, err := c.client.Get(ctx, key).Result(); err == nil {
		if qty, perr := strconv.ParseFloat(raw, 64); perr == nil {
			return qty, nil
		}
	}
	res, err, _ := c.group.Do(key, func() (any, error) {
		qty, err := loader(ctx)
		if err != nil {
			return 0.0, err
		}
		_ = c.client.Set(ctx, key, strconv.FormatFloat(qty, 'f', -1, 64), c.ttl).Err()
		return qty, nil
	})
	if err != nil {
		return 0, err
	}
	return res.(float64), nil
}

// Invalidate drops the cached balance after a posting.
func (c *BalanceCache) Invalidate(ctx context.Context, itemCode, warehouse string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, balanceKey(itemCode, warehouse)).Err()
}
