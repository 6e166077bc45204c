package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"kanban/config"
)

// Backend is an opened KV together with whatever must be released on exit.
type Backend struct {
	KV
	// Redis is the shared client when one is configured, nil otherwise.
	Redis   *redis.Client
	closers []func() error
}

// Close releases clients in reverse order of opening.
func (b *Backend) Close() error {
	var first error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open builds the configured backend. When a redis connection string and a
// cache TTL are both set, non-redis backends get a read-through cache.
func Open(ctx context.Context, cfg config.Storage) (*Backend, error) {
	b := &Backend{}
	if cfg.Redis != "" {
		opts, err := config.RedisOptions(cfg.Redis)
		if err != nil {
			return nil, err
		}
		b.Redis = redis.NewClient(opts)
		b.closers = append(b.closers, b.Redis.Close)
	}

	switch cfg.Backend {
	case config.BackendMemory:
		b.KV = NewMemoryKV()
	case config.BackendFile:
		b.KV = NewFileKV(cfg.DataDir)
	case config.BackendRedis:
		if b.Redis == nil {
			return nil, fmt.Errorf("redis backend without connection string")
		}
		b.KV = NewRedisKV(b.Redis, "kanban:")
	case config.BackendTables:
		kv, err := NewTableKV(cfg.Tables, cfg.Table)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("tables: %w", err)
		}
		b.KV = kv
	case config.BackendMySQL:
		kv, err := OpenSQLKV(ctx, cfg.MySQL)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		b.KV = kv
		b.closers = append(b.closers, kv.Close)
	default:
		_ = b.Close()
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	cached := b.Redis != nil && cfg.CacheTTL > 0 && cfg.Backend != config.BackendRedis
	if cached {
		b.KV = NewCachedKV(b.KV, b.Redis, cfg.CacheTTL)
	}
	log.WithFields(log.Fields{"backend": cfg.Backend, "cached": cached}).Debug("storage opened")
	return b, nil
}
