package blacklist

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a bounded in-process Store. When full it first drops
// expired entries, then the tenth of entries closest to expiry.
type MemoryStore struct {
	// keys maps the revocation key to its expiry for O(1) lookup
	keys map[string]time.Time

	mu      sync.RWMutex
	maxSize int
	now     func() time.Time
	closed  bool
}

// NewMemoryStore creates an in-memory store. maxSize <= 0 means unbounded.
// now defaults to the system clock.
func NewMemoryStore(maxSize int, now func() time.Time) *MemoryStore {
	if now == nil {
		now = systemNow
	}

	capacity := 64
	if maxSize > 0 && maxSize/2 < capacity {
		capacity = maxSize / 2
	}

	return &MemoryStore{
		keys:    make(map[string]time.Time, capacity),
		maxSize: maxSize,
		now:     now,
	}
}

func (m *MemoryStore) Add(_ context.Context, key string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	now := m.now()
	if !expiresAt.After(now) {
		return nil
	}

	if _, exists := m.keys[key]; !exists && m.maxSize > 0 && len(m.keys) >= m.maxSize {
		m.cleanupExpiredUnsafe(now)

		if len(m.keys) >= m.maxSize {
			m.evictSoonestUnsafe(max(m.maxSize/10, 1))
		}
	}

	m.keys[key] = expiresAt
	return nil
}

func (m *MemoryStore) Contains(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, ErrStoreClosed
	}

	expiresAt, exists := m.keys[key]
	if !exists {
		return false, nil
	}

	// Expired entries are left for Cleanup to avoid taking the write lock.
	return expiresAt.After(m.now()), nil
}

func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.keys, key)
	return nil
}

func (m *MemoryStore) Cleanup(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrStoreClosed
	}

	return m.cleanupExpiredUnsafe(m.now()), nil
}

func (m *MemoryStore) Size(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrStoreClosed
	}

	return len(m.keys), nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.keys = nil
	return nil
}

// cleanupExpiredUnsafe must be called with the write lock held.
func (m *MemoryStore) cleanupExpiredUnsafe(now time.Time) int {
	cleaned := 0
	for key, expiresAt := range m.keys {
		if !expiresAt.After(now) {
			delete(m.keys, key)
			cleaned++
		}
	}
	return cleaned
}

// evictSoonestUnsafe must be called with the write lock held.
func (m *MemoryStore) evictSoonestUnsafe(count int) {
	type entry struct {
		key       string
		expiresAt time.Time
	}

	entries := make([]entry, 0, len(m.keys))
	for key, expiresAt := range m.keys {
		entries = append(entries, entry{key, expiresAt})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].expiresAt.Before(entries[j].expiresAt)
	})

	for i := 0; i < len(entries) && i < count; i++ {
		delete(m.keys, entries[i].key)
	}
}
