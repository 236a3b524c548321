package blacklist

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "minijwt:revoked"

// RedisStore keeps revocation keys in Redis. Each key carries a TTL equal
// to the remaining token lifetime, so Redis performs expiry itself.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	now       func() time.Time
	closed    atomic.Bool
}

type RedisStoreOption func(*RedisStore)

// WithKeyPrefix sets the namespace for revocation keys.
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.keyPrefix = prefix
		}
	}
}

// WithStoreClock sets the time source used to compute key TTLs.
func WithStoreClock(now func() time.Time) RedisStoreOption {
	return func(s *RedisStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewRedisStore wraps client. The caller keeps ownership of the client;
// Close does not close it.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	s := &RedisStore{
		client:    client,
		keyPrefix: defaultKeyPrefix,
		now:       systemNow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *RedisStore) key(key string) string {
	return fmt.Sprintf("%s:%s", s.keyPrefix, key)
}

func (s *RedisStore) Add(ctx context.Context, key string, expiresAt time.Time) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}

	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	if err := s.client.Set(ctx, s.key(key), expiresAt.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to store revocation: %w", err)
	}
	return nil
}

func (s *RedisStore) Contains(ctx context.Context, key string) (bool, error) {
	if s.closed.Load() {
		return false, ErrStoreClosed
	}

	n, err := s.client.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to query revocation: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}

	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to remove revocation: %w", err)
	}
	return nil
}

// Cleanup is a no-op: Redis expires keys on its own.
func (s *RedisStore) Cleanup(_ context.Context) (int, error) {
	if s.closed.Load() {
		return 0, ErrStoreClosed
	}
	return 0, nil
}

func (s *RedisStore) Size(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, ErrStoreClosed
	}

	count := 0
	iter := s.client.Scan(ctx, 0, s.keyPrefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to scan revocations: %w", err)
	}
	return count, nil
}

func (s *RedisStore) Close() error {
	s.closed.Store(true)
	return nil
}
