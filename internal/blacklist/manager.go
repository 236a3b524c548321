package blacklist

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Manager fronts a Store with closed-state tracking and optional periodic
// cleanup.
type Manager struct {
	store  Store
	config Config
	logger *zap.Logger
	mu     sync.RWMutex

	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	cleanupWg     sync.WaitGroup

	closed bool
}

// NewManager takes ownership of store; Close closes it.
func NewManager(store Store, config Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		store:       store,
		config:      config,
		logger:      logger,
		stopCleanup: make(chan struct{}),
	}

	if config.EnableAutoCleanup && config.CleanupInterval > 0 {
		m.startAutoCleanup()
	}

	return m
}

// Revoke records key until expiresAt.
func (m *Manager) Revoke(ctx context.Context, key string, expiresAt time.Time) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrManagerClosed
	}
	if key == "" {
		return ErrEmptyKey
	}

	return m.store.Add(ctx, key, expiresAt)
}

// Restore drops key from the store, undoing Revoke.
func (m *Manager) Restore(ctx context.Context, key string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrManagerClosed
	}
	if key == "" {
		return ErrEmptyKey
	}

	return m.store.Remove(ctx, key)
}

func (m *Manager) IsRevoked(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, ErrManagerClosed
	}
	if key == "" {
		return false, nil
	}

	return m.store.Contains(ctx, key)
}

// Size counts stored keys. Expired keys not yet cleaned up are included.
func (m *Manager) Size(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrManagerClosed
	}

	return m.store.Size(ctx)
}

// Close stops cleanup and closes the store. It is idempotent.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true

	if m.cleanupTicker != nil {
		m.cleanupTicker.Stop()
		close(m.stopCleanup)
		m.cleanupWg.Wait()
	}

	return m.store.Close()
}

func (m *Manager) startAutoCleanup() {
	m.cleanupTicker = time.NewTicker(m.config.CleanupInterval)
	m.cleanupWg.Add(1)

	go func() {
		defer m.cleanupWg.Done()

		for {
			select {
			case <-m.cleanupTicker.C:
				m.performCleanup()
			case <-m.stopCleanup:
				return
			}
		}
	}()
}

func (m *Manager) performCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), m.config.CleanupInterval)
	defer cancel()

	cleaned, err := m.store.Cleanup(ctx)
	if err != nil {
		m.logger.Warn("blacklist cleanup failed", zap.Error(err))
		return
	}
	if cleaned > 0 {
		m.logger.Debug("blacklist cleanup", zap.Int("removed", cleaned))
	}
}
