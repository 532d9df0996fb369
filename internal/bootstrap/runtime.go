// Package bootstrap assembles the storage runtime (store, codec, Redis and
// SQL connections) from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"opcdiary/internal/cache"
	"opcdiary/internal/codec"
	"opcdiary/internal/config"
	"opcdiary/internal/database"
	"opcdiary/internal/kvstore"
	"opcdiary/internal/repository"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Runtime holds the connections a process shares.
type Runtime struct {
	Store kvstore.Store
	Codec codec.Codec
	Repos *repository.Repositories
	// Redis is nil when no REDIS_URL is configured or it is unreachable and
	// not required by the store driver.
	Redis *redis.Client
	// DB is set only for the SQL store drivers.
	DB *gorm.DB
}

// InitRuntime connects the configured store driver. Redis is optional unless
// it backs the store.
func InitRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	c, err := codec.New(cfg.StoreCodec)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Codec: c}

	if cfg.RedisURL != "" {
		rt.Redis, err = cache.Connect(cfg.RedisURL, cfg.StoreDriver == config.DriverRedis)
		if err != nil {
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
	}

	opts := kvstore.Options{Namespace: cfg.StoreNamespace, Quota: cfg.StoreQuotaBytes}
	switch cfg.StoreDriver {
	case config.DriverMemory:
		rt.Store = kvstore.NewMemoryStore(opts)
	case config.DriverRedis:
		if rt.Redis == nil {
			return nil, errors.New("redis store requires REDIS_URL")
		}
		rt.Store = kvstore.NewRedisStore(rt.Redis, opts)
	case config.DriverPostgres, config.DriverSQLite:
		rt.DB, err = database.Connect(ctx, cfg)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		rt.Store = kvstore.NewSQLStore(rt.DB, opts)
	default:
		rt.Close()
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	rt.Repos = repository.New(rt.Store, rt.Codec)
	slog.Info("storage runtime ready",
		slog.String("driver", cfg.StoreDriver),
		slog.String("codec", rt.Codec.Name()),
		slog.Int64("quota_bytes", cfg.StoreQuotaBytes),
		slog.Bool("redis", rt.Redis != nil),
	)
	return rt, nil
}

// Ping checks the store backend, when it can be pinged.
func (rt *Runtime) Ping(ctx context.Context) error {
	if p, ok := rt.Store.(kvstore.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the connections.
func (rt *Runtime) Close() {
	if rt.Redis != nil {
		_ = rt.Redis.Close()
	}
	if rt.DB != nil {
		if sqlDB, err := rt.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
