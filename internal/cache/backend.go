package cache

import (
	"context"
	"errors"
	"time"
)

// Backend is the key/value store behind the task list cache. Any replacement
// must support deleting every key under a prefix, since owner invalidation
// depends on it, and a per-owner generation counter checked atomically with
// the write in SetIfGeneration.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)

	// SetIfGeneration stores value under key only while the counter at
	// genKey still equals gen. It reports whether the value was stored.
	SetIfGeneration(ctx context.Context, genKey string, gen int64, key string, value []byte, ttl time.Duration) (bool, error)

	// Generation returns the counter at genKey, zero when it was never bumped.
	Generation(ctx context.Context, genKey string) (int64, error)

	IncrGeneration(ctx context.Context, genKey string) (int64, error)

	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

var ErrMiss = errors.New("cache miss")
