package minijwt

import (
	"time"
)

// Blacklist store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// BlacklistConfig represents blacklist configuration for token revocation management
type BlacklistConfig struct {
	// Enabled turns revocation on for processors built from configuration
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`

	// StoreType selects the backend: memory or redis
	StoreType string `mapstructure:"store_type" yaml:"store_type" json:"store_type" validate:"omitempty,oneof=memory redis"`

	// MaxSize defines the maximum number of revocations kept by the memory store
	MaxSize int `mapstructure:"max_size" yaml:"max_size" json:"max_size" validate:"gte=0"`

	// CleanupInterval specifies how often expired revocations are removed
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" yaml:"cleanup_interval" json:"cleanup_interval" validate:"gte=0"`

	// EnableAutoCleanup enables automatic cleanup of expired revocations
	EnableAutoCleanup bool `mapstructure:"enable_auto_cleanup" yaml:"enable_auto_cleanup" json:"enable_auto_cleanup"`

	Redis RedisConfig `mapstructure:"redis" yaml:"redis" json:"redis"`
}

// RedisConfig addresses the Redis server backing the redis store.
type RedisConfig struct {
	Addr      string `mapstructure:"addr" yaml:"addr" json:"addr"`
	Password  string `mapstructure:"password" yaml:"password" json:"-"`
	DB        int    `mapstructure:"db" yaml:"db" json:"db" validate:"gte=0"`
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix" json:"key_prefix"`
}

// DefaultBlacklistConfig returns a default blacklist configuration for production use
func DefaultBlacklistConfig() BlacklistConfig {
	return BlacklistConfig{
		Enabled:           false,
		StoreType:         StoreMemory,
		MaxSize:           100000,
		CleanupInterval:   5 * time.Minute,
		EnableAutoCleanup: true,
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "minijwt:revoked",
		},
	}
}
