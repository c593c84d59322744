package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"orderservice/internal/domain"
	"orderservice/internal/platform/observability"
)

const productIDsKey = "product:ids"

// Cache is a best-effort read-through product cache on redis. Every method
// is safe on a nil receiver, so the cache can be absent in tests and local
// runs without the callers caring.
type Cache struct {
	client *redis.Client
	logger observability.Logger
}

// NewCache connects to redis and verifies the connection with a ping.
func NewCache(ctx context.Context, addr string, logger observability.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &Cache{client: client, logger: logger}, nil
}

func productKey(id string) string { return "product:" + id }

// Get returns the cached product, or ok=false on miss or error.
func (c *Cache) Get(ctx context.Context, id string) (*domain.Product, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, productKey(id)).Bytes()
	if err != nil {
		return nil, false
	}
	var p domain.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		c.logger.Warn("Corrupt product cache entry", zap.String("product_id", id), zap.Error(err))
		c.Remove(ctx, id)
		return nil, false
	}
	return &p, true
}

// Put stores the product under its id key and adds it to the id set.
func (c *Cache) Put(ctx context.Context, p domain.Product) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		c.logger.Warn("Failed to marshal product for cache", zap.String("product_id", p.ID), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, productKey(p.ID), raw, 0).Err(); err != nil {
		c.logger.Warn("Failed to cache product", zap.String("product_id", p.ID), zap.Error(err))
		return
	}
	if err := c.client.SAdd(ctx, productIDsKey, p.ID).Err(); err != nil {
		c.logger.Warn("Failed to index cached product", zap.String("product_id", p.ID), zap.Error(err))
	}
}

// Remove drops the product from the cache. Also used as the coordinator's
// post-commit invalidation hook.
func (c *Cache) Remove(ctx context.Context, id string) {
	if c == nil {
		return
	}
	c.client.Del(ctx, productKey(id))
	c.client.SRem(ctx, productIDsKey, id)
}

// IDs returns the cached product id set, or ok=false when unavailable.
func (c *Cache) IDs(ctx context.Context) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	ids, err := c.client.SMembers(ctx, productIDsKey).Result()
	if err != nil || len(ids) == 0 {
		return nil, false
	}
	return ids, true
}

// Close releases the redis connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
