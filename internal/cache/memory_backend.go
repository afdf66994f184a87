package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

const memorySweepInterval = time.Minute

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryBackend is a process-local Backend. It serves single-instance
// deployments without Redis and tests. Expired entries are dropped on read
// and swept on write at most once per memorySweepInterval.
type MemoryBackend struct {
	mu          sync.Mutex
	entries     map[string]memoryEntry
	generations map[string]int64
	lastSweep   time.Time
	now         func() time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries:     make(map[string]memoryEntry),
		generations: make(map[string]int64),
		now:         time.Now,
	}
}

func (m *MemoryBackend) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil, ErrMiss
	}

	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (m *MemoryBackend) SetIfGeneration(ctx context.Context, genKey string, gen int64, key string, value []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generations[genKey] != gen {
		return false, nil
	}

	now := m.now()
	m.sweepLocked(now)

	stored := make([]byte, len(value))
	copy(stored, value)
	m.entries[key] = memoryEntry{value: stored, expiresAt: now.Add(ttl)}
	return true, nil
}

func (m *MemoryBackend) Generation(ctx context.Context, genKey string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generations[genKey], nil
}

func (m *MemoryBackend) IncrGeneration(ctx context.Context, genKey string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generations[genKey]++
	return m.generations[genKey], nil
}

func (m *MemoryBackend) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

// Len reports the number of stored entries, expired ones not yet swept included.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryBackend) sweepLocked(now time.Time) {
	if now.Sub(m.lastSweep) < memorySweepInterval {
		return
	}
	for key, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, key)
		}
	}
	m.lastSweep = now
}
