package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const snapshotKey = "catalog:snapshot"

// Cache keeps the full pricing snapshot in Redis so quote traffic does not
// hit Postgres on every request. One key holds the latest snapshot: a
// publish drops it, and the TTL bounds staleness if that drop fails.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a snapshot cache. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached snapshot, or nil on a miss.
func (c *Cache) Get(ctx context.Context) (*Catalog, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	data, err := c.client.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("catalog cache get: %w", err)
	}
	var cat Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("catalog cache decode: %w", err)
	}
	return &cat, nil
}

// Set stores a snapshot with the configured TTL.
func (c *Cache) Set(ctx context.Context, cat *Catalog) error {
	if c == nil || c.client == nil || cat == nil {
		return nil
	}
	data, err := json.Marshal(cat)
	if err != nil {
		return fmt.Errorf("catalog cache encode: %w", err)
	}
	return c.client.Set(ctx, snapshotKey, data, c.ttl).Err()
}

// Invalidate drops the cached snapshot, forcing the next load to hit the
// store. Called after a catalog publish.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, snapshotKey).Err()
}
