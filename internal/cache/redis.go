package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ebuka1017/Robin/internal/config"
	"github.com/ebuka1017/Robin/internal/logging"
)

// RedisCache implements Cache on a Redis backend.
type RedisCache struct {
	client *redis.Client
	log    *logging.Logger
}

// NewRedis creates a Redis-backed cache from config.
func NewRedis(cfg config.RedisConfig, log *logging.Logger) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	return &RedisCache{client: client, log: log.Sub("cache")}
}

// Ping verifies connectivity to the Redis backend.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string, dest any) bool {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.log.Error().Err(err).Str("key", key).Msg("redis get error")
		}
		return false
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		c.log.Error().Err(err).Str("key", key).Msg("cached value unmarshal error")
		return false
	}
	return true
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		c.log.Error().Err(err).Str("key", key).Msg("cache value marshal error")
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.log.Error().Err(err).Str("key", key).Msg("redis set error")
	}
}

// Delete implements Cache.
func (c *RedisCache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.log.Error().Err(err).Str("key", key).Msg("redis delete error")
	}
}

// Exists implements Cache.
func (c *RedisCache) Exists(ctx context.Context, key string) bool {
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		c.log.Error().Err(err).Str("key", key).Msg("redis exists error")
		return false
	}
	return n > 0
}

// Close implements Cache.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
