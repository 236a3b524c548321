package minijwt

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cybergodev/minijwt/internal/blacklist"
)

// BlacklistStore persists revoked token keys. Implementations must be safe
// for concurrent use.
type BlacklistStore = blacklist.Store

// Option configures a Processor.
type Option func(*options)

type options struct {
	logger           *zap.Logger
	clock            Clock
	registerer       prometheus.Registerer
	metricsNamespace string
	maxTokenSize     int
	blacklist        *BlacklistConfig
	store            BlacklistStore
	redisClient      redis.UniversalClient
}

func defaultOptions() *options {
	return &options{
		logger:       zap.NewNop(),
		clock:        systemClock{},
		maxTokenSize: DefaultMaxTokenSize,
	}
}

// WithLogger sets the structured logger. A nil logger is ignored.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock sets the time source. A nil clock is ignored.
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithRegisterer enables Prometheus counters registered on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithMetricsNamespace sets the namespace of the Prometheus counters.
func WithMetricsNamespace(namespace string) Option {
	return func(o *options) {
		o.metricsNamespace = namespace
	}
}

// WithMaxTokenSize bounds token length in bytes; 0 disables the limit.
func WithMaxTokenSize(size int) Option {
	return func(o *options) {
		if size >= 0 {
			o.maxTokenSize = size
		}
	}
}

// WithBlacklist enables revocation with the given settings.
func WithBlacklist(cfg BlacklistConfig) Option {
	return func(o *options) {
		cfg.Enabled = true
		o.blacklist = &cfg
	}
}

// WithBlacklistStore enables revocation backed by store. The processor takes
// ownership of store and closes it.
func WithBlacklistStore(store BlacklistStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithRedisClient enables revocation backed by Redis. The client stays owned
// by the caller.
func WithRedisClient(client redis.UniversalClient) Option {
	return func(o *options) {
		o.redisClient = client
	}
}
