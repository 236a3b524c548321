package blacklist

import (
	"context"
	"errors"
	"time"
)

var (
	ErrStoreClosed   = errors.New("blacklist store is closed")
	ErrManagerClosed = errors.New("blacklist manager is closed")
	ErrEmptyKey      = errors.New("blacklist key cannot be empty")
)

// Store holds revoked token keys until their expiry.
type Store interface {
	// Add records key until expiresAt. Entries already past expiresAt are
	// not stored.
	Add(ctx context.Context, key string, expiresAt time.Time) error

	// Contains reports whether key is present and not yet expired.
	Contains(ctx context.Context, key string) (bool, error)

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// Cleanup removes expired entries and returns how many were dropped.
	Cleanup(ctx context.Context) (int, error)

	Size(ctx context.Context) (int, error)

	Close() error
}

// Config controls the manager's background cleanup.
type Config struct {
	// CleanupInterval defines how often expired entries are purged.
	CleanupInterval time.Duration

	// EnableAutoCleanup starts the cleanup goroutine.
	EnableAutoCleanup bool
}

func systemNow() time.Time {
	return time.Now().UTC()
}
