// Package redis layers a Redis-backed ownership cache over another store.
// Everything except the three ownership-cache methods delegates to the
// wrapped store, so a mongo store keeps its transactional commits while
// ownership checks hit Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	storefront "github.com/xraph/storefront"
	"github.com/xraph/storefront/store"
)

const keyPrefix = "storefront:own:"

// compile-time interface check
var _ store.Store = (*Cache)(nil)

// Cache wraps a store.Store, replacing its ownership cache with Redis.
type Cache struct {
	store.Store
	client *redis.Client
}

// New wraps inner with a Redis ownership cache.
func New(inner store.Store, client *redis.Client) *Cache {
	return &Cache{Store: inner, client: client}
}

func cacheKey(userID, targetKey string) string {
	return keyPrefix + userID + ":" + targetKey
}

func (c *Cache) GetCachedOwnership(ctx context.Context, userID, targetKey string) (bool, error) {
	val, err := c.client.Get(ctx, cacheKey(userID, targetKey)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, storefront.ErrCacheMiss
		}
		return false, fmt.Errorf("storefront/redis: cache get: %w", err)
	}
	return val == "1", nil
}

func (c *Cache) SetCachedOwnership(ctx context.Context, userID, targetKey string, owned bool, ttl time.Duration) error {
	val := "0"
	if owned {
		val = "1"
	}
	if err := c.client.Set(ctx, cacheKey(userID, targetKey), val, ttl).Err(); err != nil {
		return fmt.Errorf("storefront/redis: cache set: %w", err)
	}
	return nil
}

// InvalidateOwnership removes every cached answer for the user via a
// cursor scan, so it stays safe on large keyspaces.
func (c *Cache) InvalidateOwnership(ctx context.Context, userID string) error {
	pattern := keyPrefix + userID + ":*"

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("storefront/redis: cache invalidate: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("storefront/redis: cache invalidate: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Ping checks both the wrapped store and Redis.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.Store.Ping(ctx); err != nil {
		return err
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("storefront/redis: ping: %w", err)
	}
	return nil
}

// Close closes the wrapped store and the Redis client.
func (c *Cache) Close() error {
	storeErr := c.Store.Close()
	if err := c.client.Close(); err != nil && storeErr == nil {
		storeErr = fmt.Errorf("storefront/redis: close: %w", err)
	}
	return storeErr
}
