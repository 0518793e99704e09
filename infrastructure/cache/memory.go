// Package cache provides ports.CacheStore implementations for evaluation
// results: an in-process map for single binaries and Redis for shared use.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ahrav/go-essay-judge/internal/ports"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore is a mutex-guarded map with per-entry expiry. When maxEntries
// is reached, expired entries are swept and, if still full, the entry
// closest to expiry is evicted.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	maxEntries int
	now        func() time.Time
}

var _ ports.CacheStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store. maxEntries <= 0 means unbounded.
func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns a copy of the stored value.
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, ports.NewCacheError(key, "get", err)
	}
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || e.expired(m.now()) {
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

// Set stores a copy of value.
func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return ports.NewCacheError(key, "set", err)
	}
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[key]; !exists && m.maxEntries > 0 && len(m.entries) >= m.maxEntries {
		m.evictLocked()
	}
	m.entries[key] = e
	return nil
}

// Delete removes key.
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return ports.NewCacheError(key, "delete", err)
	}
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryStore) evictLocked() {
	now := m.now()
	for k, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, k)
		}
	}
	if len(m.entries) < m.maxEntries {
		return
	}

	var (
		victim string
		oldest time.Time
		found  bool
	)
	for k, e := range m.entries {
		// Entries without expiry sort after everything else.
		exp := e.expiresAt
		if exp.IsZero() {
			exp = now.Add(100 * 365 * 24 * time.Hour)
		}
		if !found || exp.Before(oldest) || (exp.Equal(oldest) && k < victim) {
			victim, oldest, found = k, exp, true
		}
	}
	if found {
		delete(m.entries, victim)
	}
}
