package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// JSONCache is a small read-through helper for caching JSON-serializable
// values. A nil client disables caching entirely, which keeps handlers usable
// in tests without Redis.
type JSONCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewJSONCache(rdb *redis.Client, ttl time.Duration) *JSONCache {
	return &JSONCache{rdb: rdb, ttl: ttl}
}

// Get unmarshals the cached value for key into dest. Returns false on miss or
// any cache error; cache errors are logged, never propagated.
func (c *JSONCache) Get(ctx context.Context, key string, dest interface{}) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("WARN: cache get %s: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		log.Printf("WARN: cache decode %s: %v", key, err)
		return false
	}
	return true
}

// Set stores value under key with the configured TTL. Best-effort.
func (c *JSONCache) Set(ctx context.Context, key string, value interface{}) {
	if c == nil || c.rdb == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("WARN: cache encode %s: %v", key, err)
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("WARN: cache set %s: %v", key, err)
	}
}

// Invalidate removes keys. Best-effort.
func (c *JSONCache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || c.rdb == nil || len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		log.Printf("WARN: cache invalidate %v: %v", keys, err)
	}
}

// ListingKey builds the cache key for a single listing.
func ListingKey(id string) string {
	return fmt.Sprintf("listing:%s", id)
}
