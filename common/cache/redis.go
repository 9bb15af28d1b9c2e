package cache

import (
	"context"
	"time"

	rediscommon "github.com/lyzr/recipes/common/redis"
)

// RedisCache stores entries in Redis under a key prefix so several services
// can share one database.
type RedisCache struct {
	client *rediscommon.Client
	prefix string
}

// NewRedisCache creates a cache backed by client
func NewRedisCache(client *rediscommon.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

// Get retrieves a value from Redis
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return c.client.Get(ctx, c.prefix+key)
}

// Set stores a value with TTL
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.SetWithExpiry(ctx, c.prefix+key, value, ttl)
}

// Delete removes a value
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Delete(ctx, c.prefix+key)
}

// Close is a no-op; the shared client is closed by bootstrap.
func (c *RedisCache) Close() error {
	return nil
}
