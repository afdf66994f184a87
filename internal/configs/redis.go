package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/rueidis"

	"task-manager.com/task-manager/internal/cache"
)

const redisDialTimeout = 3 * time.Second

func NewRedisClient(redisURL string) (rueidis.Client, error) {
	opt, err := rueidis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opt.DisableCache = true
	opt.Dialer.Timeout = redisDialTimeout

	client, err := rueidis.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("create redis client: %w", err)
	}
	return client, nil
}

// NewCacheBackend picks the list cache backend for cfg. A Redis that cannot
// be reached is logged and yields a nil backend, so the service starts with
// caching disabled instead of failing. The returned close func is never nil.
func NewCacheBackend(ctx context.Context, cfg Config, logger *slog.Logger) (cache.Backend, func()) {
	switch cfg.CacheDriver {
	case CacheDriverNone:
		logger.Info("task list cache disabled")
		return nil, func() {}
	case CacheDriverMemory:
		logger.Info("task list cache using in-process memory")
		return cache.NewMemoryBackend(), func() {}
	}

	client, err := NewRedisClient(cfg.CacheURL())
	if err != nil {
		logger.Warn("redis unavailable, task list cache disabled", "error", err)
		return nil, func() {}
	}

	pingCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		logger.Warn("redis ping failed, task list cache disabled", "error", err)
		client.Close()
		return nil, func() {}
	}

	logger.Info("task list cache using redis")
	return cache.NewRedisBackend(client), client.Close
}
