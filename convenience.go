package minijwt

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

type cacheEntry struct {
	processor  *Processor
	lastAccess atomic.Int64
	refCount   atomic.Int32
}

type processorCache struct {
	entries     map[string]*cacheEntry
	mu          sync.RWMutex
	lastCleanup atomic.Int64
}

var cache = &processorCache{
	entries: make(map[string]*cacheEntry, 16),
}

// Issue signs claims with secretKey using a cached processor. ttlMinutes
// must be positive.
func Issue(secretKey string, claims Claims, ttlMinutes int) (string, error) {
	processor, release, err := getProcessor(secretKey)
	if err != nil {
		return "", err
	}
	defer release()

	return processor.Issue(claims, ttlMinutes)
}

// Parse judges token against the current time using a cached processor for
// secretKey. Cached processors carry an in-memory blacklist, so tokens
// revoked through Revoke report IsRevoked. A processor holding revocations
// is never evicted from the cache.
func Parse(secretKey, token string) ParsingInfo {
	processor, release, err := getProcessor(secretKey)
	if err != nil {
		return ParsingInfo{}
	}
	defer release()

	return processor.Parse(token)
}

// Revoke blacklists token in the cached processor for secretKey.
func Revoke(secretKey, token string) error {
	processor, release, err := getProcessor(secretKey)
	if err != nil {
		return err
	}
	defer release()

	return processor.Revoke(context.Background(), token)
}

// Unrevoke lifts a revocation made through Revoke.
func Unrevoke(secretKey, token string) error {
	processor, release, err := getProcessor(secretKey)
	if err != nil {
		return err
	}
	defer release()

	return processor.Unrevoke(context.Background(), token)
}

// NewSnapshot wraps token for inspection against the current time, frozen
// at this call.
func NewSnapshot(secretKey, token string) (*Snapshot, error) {
	processor, release, err := getProcessor(secretKey)
	if err != nil {
		return nil, err
	}
	defer release()

	return processor.NewSnapshot(token), nil
}

func getProcessor(secretKey string) (*Processor, func(), error) {
	return cache.acquire(secretKey)
}

const (
	maxCachedProcessors  = 100
	cacheCleanupInterval = 5 * time.Minute
	cacheMaxIdleTime     = time.Hour
)

// acquire returns the processor for secretKey, creating it on first use. The
// returned release func must be called once the caller is done with it.
func (c *processorCache) acquire(secretKey string) (*Processor, func(), error) {
	if secretKey == "" {
		return nil, func() {}, ErrInvalidSecretKey
	}

	now := time.Now().UnixNano()

	c.mu.RLock()
	entry, ok := c.entries[secretKey]
	if ok {
		entry.hold(now)
	}
	c.mu.RUnlock()
	if ok {
		return entry.processor, entry.release, nil
	}

	processor, err := New(secretKey, WithBlacklist(DefaultBlacklistConfig()))
	if err != nil {
		return nil, func() {}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have won the race while the lock was released.
	if entry, ok := c.entries[secretKey]; ok {
		_ = processor.Close()
		entry.hold(now)
		return entry.processor, entry.release, nil
	}

	if len(c.entries) >= maxCachedProcessors {
		c.evictLeastRecentLocked()
	}

	entry = &cacheEntry{processor: processor}
	entry.hold(now)
	c.entries[secretKey] = entry

	c.evictIdleLocked(now)

	return processor, entry.release, nil
}

func (e *cacheEntry) hold(now int64) {
	e.lastAccess.Store(now)
	e.refCount.Add(1)
}

func (e *cacheEntry) release() {
	e.refCount.Add(-1)
}

func (e *cacheEntry) idle() bool {
	return e.refCount.Load() <= 0
}

// evictable reports whether dropping the entry loses nothing: it is not in
// use and its blacklist is empty.
func (e *cacheEntry) evictable() bool {
	if !e.idle() {
		return false
	}
	revoked, err := e.processor.RevokedCount(context.Background())
	return err != nil || revoked == 0
}

// evictLeastRecentLocked drops the evictable entry accessed longest ago. The
// write lock must be held.
func (c *processorCache) evictLeastRecentLocked() {
	var (
		oldestKey  string
		oldestTime int64 = math.MaxInt64
	)

	for key, entry := range c.entries {
		if !entry.evictable() {
			continue
		}
		if last := entry.lastAccess.Load(); last < oldestTime {
			oldestKey, oldestTime = key, last
		}
	}

	if oldestTime != math.MaxInt64 {
		c.dropLocked(oldestKey)
	}
}

// evictIdleLocked drops entries unused for cacheMaxIdleTime, at most once
// per cacheCleanupInterval. The write lock must be held.
func (c *processorCache) evictIdleLocked(now int64) {
	last := c.lastCleanup.Load()
	if now-last < int64(cacheCleanupInterval) || !c.lastCleanup.CompareAndSwap(last, now) {
		return
	}

	for key, entry := range c.entries {
		if now-entry.lastAccess.Load() > int64(cacheMaxIdleTime) && entry.evictable() {
			c.dropLocked(key)
		}
	}
}

func (c *processorCache) dropLocked(key string) {
	if entry, ok := c.entries[key]; ok {
		_ = entry.processor.Close()
		delete(c.entries, key)
	}
}

// ClearCache closes all cached processors. Later package-level calls create
// new ones, with empty blacklists.
func ClearCache() {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	for key := range cache.entries {
		cache.dropLocked(key)
	}
}
