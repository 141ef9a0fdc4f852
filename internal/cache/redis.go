// Package cache is a read-through Redis cache whose misses are collapsed with singleflight.
// A nil *Cache is valid and always calls the loader, which is how caching is disabled.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"docrepo/internal/config"
)

type Cache struct {
	rdb redis.UniversalClient
	sf  singleflight.Group
	log *zap.Logger
}

func New(rdb redis.UniversalClient, log *zap.Logger) *Cache {
	return &Cache{rdb: rdb, log: log.With(zap.String("component", "cache"))}
}

// FromConfig returns nil when no Redis address is configured.
func FromConfig(cfg config.RedisConfig, log *zap.Logger) *Cache {
	if cfg.Addr == "" {
		return nil
	}
	return New(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), log)
}

// GetOrLoad returns the cached bytes for key, or loads, stores and returns them.
// Redis failures are logged and degrade to a direct load; only loader errors are returned.
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	if c == nil {
		return load(ctx)
	}

	b, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, redis.Nil) {
		c.log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}

	v, err, _ := c.sf.Do(key, func() (any, error) {
		b, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.rdb.Set(ctx, key, b, ttl).Err(); err != nil {
			c.log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// invalidate drops keys so the next read reloads them.
func (c *Cache) invalidate(ctx context.Context, keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// Ping reports whether Redis is reachable. A nil cache is always healthy.
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
