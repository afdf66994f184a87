// Package cache holds the read-through, write-invalidate cache for task lists.
// It is best-effort: backend failures are logged and read as misses, and never
// reach the caller.
//
// Every owner has a generation counter that invalidation bumps before deleting
// the owner's keys. A miss records the generation it saw, and the matching Put
// is dropped when an invalidation ran in between, so a list read from the store
// before a mutation is never cached after it.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"task-manager.com/task-manager/internal/constants"
)

const (
	DefaultTTL = 60 * time.Second

	keyNamespace        = "tasks"
	generationNamespace = "tasks_gen"
	keySeparator        = ":"
	allStatuses         = "all"
)

// ListKey is the normalized filter tuple a list request is cached under.
type ListKey struct {
	Owner     string
	Status    string
	DueBefore *time.Time
	DueAfter  *time.Time
}

// String renders tasks:<owner>:<status|all>_<dueBefore>_<dueAfter>. Bounds are
// formatted in UTC so equal instants sent with different offsets share a key.
func (k ListKey) String() string {
	status := allStatuses
	if s, ok := constants.ParseTaskStatus(k.Status); ok {
		status = string(s)
	}

	filter := strings.Join([]string{status, formatBound(k.DueBefore), formatBound(k.DueAfter)}, "_")
	return OwnerPrefix(k.Owner) + filter
}

// OwnerPrefix is the prefix shared by every list key of owner.
func OwnerPrefix(owner string) string {
	return keyNamespace + keySeparator + owner + keySeparator
}

// GenerationKey names owner's invalidation counter. It lies outside
// OwnerPrefix so deleting an owner's lists leaves it in place.
func GenerationKey(owner string) string {
	return generationNamespace + keySeparator + owner
}

func formatBound(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

type Stats struct {
	Hits          uint64 `json:"hits"`
	Misses        uint64 `json:"misses"`
	Sets          uint64 `json:"sets"`
	Invalidations uint64 `json:"invalidations"`
	// Discarded counts fills dropped because the owner was invalidated while
	// the list was being read.
	Discarded uint64 `json:"discarded"`
	Errors    uint64 `json:"errors"`
}

// Fill is handed out by a miss and carries what Put needs to store the
// freshly read list.
type Fill struct {
	key        ListKey
	generation int64
	valid      bool
}

type TaskListCache struct {
	backend Backend
	ttl     time.Duration
	logger  *slog.Logger

	hits          atomic.Uint64
	misses        atomic.Uint64
	sets          atomic.Uint64
	invalidations atomic.Uint64
	discarded     atomic.Uint64
	errors        atomic.Uint64
}

// NewTaskListCache wraps backend. A nil backend yields a cache that always
// misses, which is how the service runs when no cache is configured.
func NewTaskListCache(backend Backend, ttl time.Duration, logger *slog.Logger) *TaskListCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &TaskListCache{
		backend: backend,
		ttl:     ttl,
		logger:  logger.With("component", "task_list_cache"),
	}
}

func (c *TaskListCache) Enabled() bool {
	return c != nil && c.backend != nil
}

// Get looks key up. On a miss the returned Fill must be passed to Put
// with the list read from the store.
func (c *TaskListCache) Get(ctx context.Context, key ListKey) ([]byte, Fill, bool) {
	if !c.Enabled() {
		return nil, Fill{}, false
	}

	k := key.String()
	value, err := c.backend.Get(ctx, k)
	if err == nil {
		c.hits.Add(1)
		return value, Fill{}, true
	}

	if !errors.Is(err, ErrMiss) {
		c.errors.Add(1)
		c.logger.Warn("cache read failed, treating as miss", "key", k, "error", err)
	}
	c.misses.Add(1)

	gen, err := c.backend.Generation(ctx, GenerationKey(key.Owner))
	if err != nil {
		c.errors.Add(1)
		c.logger.Warn("cache generation read failed, skipping fill", "owner", key.Owner, "error", err)
		return nil, Fill{}, false
	}

	return nil, Fill{key: key, generation: gen, valid: true}, false
}

// Put stores value for the miss that produced fill, unless the owner was
// invalidated since.
func (c *TaskListCache) Put(ctx context.Context, fill Fill, value []byte) {
	if !c.Enabled() || !fill.valid {
		return
	}

	k := fill.key.String()
	stored, err := c.backend.SetIfGeneration(ctx, GenerationKey(fill.key.Owner), fill.generation, k, value, c.ttl)
	if err != nil {
		c.errors.Add(1)
		c.logger.Warn("cache write failed", "key", k, "error", err)
		return
	}
	if !stored {
		c.discarded.Add(1)
		c.logger.Debug("cache fill discarded, owner invalidated during read", "key", k)
		return
	}
	c.sets.Add(1)
}

// InvalidateOwner drops every cached list of owner, whatever its filters.
func (c *TaskListCache) InvalidateOwner(ctx context.Context, owner string) {
	if !c.Enabled() {
		return
	}

	// The bump must precede the delete: a fill that lands before the bump is
	// removed by the delete, one that lands after it fails its generation check.
	if _, err := c.backend.IncrGeneration(ctx, GenerationKey(owner)); err != nil {
		c.errors.Add(1)
		c.logger.Warn("cache generation bump failed", "owner", owner, "error", err)
	}

	prefix := OwnerPrefix(owner)
	deleted, err := c.backend.DeletePrefix(ctx, prefix)
	if err != nil {
		c.errors.Add(1)
		c.logger.Warn("cache invalidation failed", "owner", owner, "deleted", deleted, "error", err)
		return
	}

	c.invalidations.Add(1)
	c.logger.Debug("cache invalidated", "owner", owner, "deleted", deleted)
}

func (c *TaskListCache) Stats() Stats {
	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Sets:          c.sets.Load(),
		Invalidations: c.invalidations.Load(),
		Discarded:     c.discarded.Load(),
		Errors:        c.errors.Load(),
	}
}
