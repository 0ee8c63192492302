// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"insight-agent/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient wraps the Redis client
type RedisClient struct {
	Client *redis.Client
}

// NewRedis creates a new Redis client
func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	return &RedisClient{Client: rdb}, nil
}

// Ping tests the Redis connection
func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}

// Get retrieves a value by key
func (c *RedisClient) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

// Set sets a value with optional expiration
func (c *RedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.Client.Set(ctx, key, value, expiration).Err()
}

// Del deletes one or more keys
func (c *RedisClient) Del(ctx context.Context, keys ...string) error {
	return c.Client.Del(ctx, keys...).Err()
}

// incrWindowScript increments a window counter and arms its expiry on
// first hit, atomically with respect to concurrent callers. Returns the
// post-increment count and the key's remaining TTL in milliseconds.
var incrWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
    redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`)

// IncrWindow atomically increments the counter at key, starting a new
// window of the given length when the key is fresh.
func (c *RedisClient) IncrWindow(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error) {
	res, err := incrWindowScript.Run(ctx, c.Client, []string{key}, window.Milliseconds()).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis incr window failed: %w", err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return 0, 0, fmt.Errorf("redis incr window: unexpected reply %v", res)
	}
	count, _ = vals[0].(int64)
	ttlMs, _ := vals[1].(int64)
	return count, time.Duration(ttlMs) * time.Millisecond, nil
}

// GetClient returns the underlying *redis.Client for compatibility
func (c *RedisClient) GetClient() *redis.Client {
	return c.Client
}
