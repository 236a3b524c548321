package minijwt

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cybergodev/minijwt/internal/blacklist"
	"github.com/cybergodev/minijwt/internal/core"
	"github.com/cybergodev/minijwt/internal/signing"
)

const maxTTLMinutes = math.MaxInt64 / int64(time.Minute)

// Processor issues and parses tokens against the clock at call time. It is
// safe for concurrent use.
type Processor struct {
	engine    *core.Engine
	clock     Clock
	logger    *zap.Logger
	metrics   *collector
	blacklist *blacklist.Manager

	// ownedRedis is set when the processor dialed Redis itself.
	ownedRedis redis.UniversalClient

	mu     sync.RWMutex
	closed bool
}

// New creates a Processor signing with secretKey.
func New(secretKey string, opts ...Option) (*Processor, error) {
	if secretKey == "" {
		return nil, ErrInvalidSecretKey
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return newProcessor([]byte(secretKey), o)
}

// NewFromConfig validates cfg and creates a Processor from it. Options
// override what the configuration sets.
func NewFromConfig(cfg Config, opts ...Option) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	o := defaultOptions()
	o.logger = NewLogger(cfg.Log)
	o.maxTokenSize = cfg.MaxTokenSize
	if cfg.Metrics.Enabled {
		o.registerer = prometheus.DefaultRegisterer
		o.metricsNamespace = cfg.Metrics.Namespace
	}
	if cfg.Blacklist.Enabled {
		bl := cfg.Blacklist
		o.blacklist = &bl
	}

	for _, opt := range opts {
		opt(o)
	}

	return newProcessor([]byte(cfg.SecretKey), o)
}

func newProcessor(secret []byte, o *options) (*Processor, error) {
	signer, err := signing.NewHMAC(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecretKey, err)
	}

	engine, err := core.NewEngine(signer, o.maxTokenSize)
	if err != nil {
		return nil, err
	}

	metrics, err := newCollector(o.registerer, o.metricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	p := &Processor{
		engine:  engine,
		clock:   o.clock,
		logger:  o.logger,
		metrics: metrics,
	}

	if err := p.setupBlacklist(o); err != nil {
		return nil, err
	}

	runtime.SetFinalizer(p, (*Processor).finalize)
	return p, nil
}

func (p *Processor) setupBlacklist(o *options) error {
	cfg := DefaultBlacklistConfig()
	if o.blacklist != nil {
		cfg = *o.blacklist
	}

	var store blacklist.Store
	switch {
	case o.store != nil:
		store = o.store
	case o.redisClient != nil:
		rs, err := blacklist.NewRedisStore(o.redisClient,
			blacklist.WithKeyPrefix(cfg.Redis.KeyPrefix),
			blacklist.WithStoreClock(p.clock.Now))
		if err != nil {
			return err
		}
		store = rs
	case o.blacklist == nil:
		return nil
	case cfg.StoreType == StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rs, err := blacklist.NewRedisStore(client,
			blacklist.WithKeyPrefix(cfg.Redis.KeyPrefix),
			blacklist.WithStoreClock(p.clock.Now))
		if err != nil {
			_ = client.Close()
			return err
		}
		p.ownedRedis = client
		store = rs
	default:
		store = blacklist.NewMemoryStore(cfg.MaxSize, p.clock.Now)
	}

	p.blacklist = blacklist.NewManager(store, blacklist.Config{
		CleanupInterval:   cfg.CleanupInterval,
		EnableAutoCleanup: cfg.EnableAutoCleanup,
	}, p.logger)
	return nil
}

// Issue signs claims with an expiry ttlMinutes after the current time.
// ttlMinutes must be positive.
func (p *Processor) Issue(claims Claims, ttlMinutes int) (string, error) {
	if ttlMinutes <= 0 || int64(ttlMinutes) > maxTTLMinutes {
		return "", fmt.Errorf("%w: ttl must be a positive number of minutes, got %d", ErrInvalidDuration, ttlMinutes)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return "", ErrProcessorClosed
	}

	token, err := p.engine.Issue(claims, time.Duration(ttlMinutes)*time.Minute, p.clock.Now())
	if err != nil {
		p.logger.Debug("token issuance failed", zap.Error(err))
		return "", err
	}

	p.metrics.tokenIssued(shapeLive)
	p.logger.Debug("token issued", zap.Int("ttl_minutes", ttlMinutes), zap.Int("claims", len(claims)))
	return token, nil
}

// Parse judges token against the current time. It never fails; the flags of
// the result report every outcome.
func (p *Processor) Parse(token string) ParsingInfo {
	return p.ParseContext(context.Background(), token)
}

// ParseContext is Parse with a context for the revocation lookup. A lookup
// failure reports the token as not valid.
func (p *Processor) ParseContext(ctx context.Context, token string) ParsingInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ParsingInfo{}
	}

	in := p.engine.Inspect(token, p.clock.Now())
	info := ParsingInfo{
		IsValid:        in.Valid,
		HasExpired:     in.Expired,
		ExpiredByInSec: in.ExpiredBySec,
	}

	if in.Valid && !in.Expired {
		info.Claims = Claims(in.Claims)

		if p.blacklist != nil {
			revoked, err := p.blacklist.IsRevoked(ctx, in.Signature)
			switch {
			case err != nil:
				p.logger.Error("revocation lookup failed", tokenRef(in.Signature), zap.Error(err))
				info = ParsingInfo{}
			case revoked:
				info.IsRevoked = true
				info.Claims = nil
			}
		}
	}

	p.metrics.tokenParsed(info)
	p.logger.Debug("token parsed",
		zap.String("outcome", parseOutcome(info)),
		tokenRef(in.Signature))
	return info
}

// NewSnapshot wraps token with the current time as its fixed reference.
func (p *Processor) NewSnapshot(token string) *Snapshot {
	return &Snapshot{
		engine:  p.engine,
		token:   token,
		ref:     p.clock.Now(),
		metrics: p.metrics,
	}
}

// Revoke blacklists token until its expiry. The token must be valid.
func (p *Processor) Revoke(ctx context.Context, token string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrProcessorClosed
	}
	if p.blacklist == nil {
		return ErrBlacklistDisabled
	}
	if token == "" {
		return ErrEmptyToken
	}

	expiresAt, signature, err := p.engine.Expiration(token)
	if err != nil {
		return err
	}

	if err := p.blacklist.Revoke(ctx, signature, expiresAt); err != nil {
		p.logger.Warn("token revocation failed", tokenRef(signature), zap.Error(err))
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	p.metrics.tokenRevoked()
	p.logger.Info("token revoked", tokenRef(signature), zap.Time("expires_at", expiresAt))
	return nil
}

// IsRevoked reports whether a valid token has been revoked. It is always
// false when revocation is not configured.
func (p *Processor) IsRevoked(ctx context.Context, token string) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return false, ErrProcessorClosed
	}
	if token == "" {
		return false, ErrEmptyToken
	}

	_, signature, err := p.engine.Expiration(token)
	if err != nil {
		return false, err
	}

	if p.blacklist == nil {
		return false, nil
	}
	return p.blacklist.IsRevoked(ctx, signature)
}

// Unrevoke lifts the revocation of a valid token. Unrevoking a token that
// was never revoked is not an error.
func (p *Processor) Unrevoke(ctx context.Context, token string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrProcessorClosed
	}
	if p.blacklist == nil {
		return ErrBlacklistDisabled
	}
	if token == "" {
		return ErrEmptyToken
	}

	_, signature, err := p.engine.Expiration(token)
	if err != nil {
		return err
	}

	if err := p.blacklist.Restore(ctx, signature); err != nil {
		return fmt.Errorf("failed to unrevoke token: %w", err)
	}

	p.logger.Info("token unrevoked", tokenRef(signature))
	return nil
}

// RevokedCount returns the number of revocations held by the blacklist,
// including expired ones awaiting cleanup. It is 0 without a blacklist.
func (p *Processor) RevokedCount(ctx context.Context) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrProcessorClosed
	}
	if p.blacklist == nil {
		return 0, nil
	}
	return p.blacklist.Size(ctx)
}

// Close releases the blacklist and any Redis connection the processor
// opened. Later calls are no-ops.
func (p *Processor) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	runtime.SetFinalizer(p, nil)

	var errs []error
	if p.blacklist != nil {
		if err := p.blacklist.Close(); err != nil {
			errs = append(errs, fmt.Errorf("blacklist manager close failed: %w", err))
		}
	}
	if p.ownedRedis != nil {
		if err := p.ownedRedis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis client close failed: %w", err))
		}
	}

	return errors.Join(errs...)
}

// IsClosed returns true if the processor has been closed
func (p *Processor) IsClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// finalize is called by the garbage collector to ensure resources are cleaned up
func (p *Processor) finalize() {
	_ = p.Close()
}
