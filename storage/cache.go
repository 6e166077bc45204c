package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedKV wraps a KV with a redis read-through cache. Redis failures never
// fail a call; the backing store answers instead.
type CachedKV struct {
	base  KV
	redis *redis.Client
	ttl   time.Duration
}

// NewCachedKV puts a redis read-through cache with the given ttl in front of base.
func NewCachedKV(base KV, client *redis.Client, ttl time.Duration) *CachedKV {
	if base == nil {
		panic("storage.NewCachedKV: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &CachedKV{base: base, redis: client, ttl: ttl}
}

func (c *CachedKV) Get(ctx context.Context, key string) ([]byte, error) {
	if data, ok := c.load(ctx, key); ok {
		return data, nil
	}
	data, err := c.base.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, data)
	return data, nil
}

func (c *CachedKV) Set(ctx context.Context, key string, value []byte) error {
	if err := c.base.Set(ctx, key, value); err != nil {
		return err
	}
	c.evict(ctx, key)
	return nil
}

func (c *CachedKV) Delete(ctx context.Context, key string) error {
	if err := c.base.Delete(ctx, key); err != nil {
		return err
	}
	c.evict(ctx, key)
	return nil
}

func (c *CachedKV) load(ctx context.Context, key string) ([]byte, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, cacheKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			_ = c.redis.Del(ctx, cacheKey(key)).Err()
		}
		return nil, false
	}
	return data, true
}

func (c *CachedKV) store(ctx context.Context, key string, data []byte) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	_ = c.redis.Set(ctx, cacheKey(key), data, c.ttl).Err()
}

func (c *CachedKV) evict(ctx context.Context, key string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, cacheKey(key)).Err()
}

func cacheKey(key string) string {
	return "cache:" + key
}
