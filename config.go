package minijwt

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// DefaultEnvPrefix prefixes environment overrides, e.g. MINIJWT_SECRET_KEY.
const DefaultEnvPrefix = "MINIJWT"

// Config represents processor configuration
type Config struct {
	// SecretKey is the HMAC signing secret; it must not be empty
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key" json:"-" validate:"required"`

	// MaxTokenSize bounds issued and accepted tokens in bytes; 0 disables the limit
	MaxTokenSize int `mapstructure:"max_token_size" yaml:"max_token_size" json:"max_token_size" validate:"gte=0"`

	Log       LogConfig       `mapstructure:"log" yaml:"log" json:"log"`
	Blacklist BlacklistConfig `mapstructure:"blacklist" yaml:"blacklist" json:"blacklist"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
}

// DefaultConfig returns the default configuration. SecretKey is left empty
// and must be supplied.
func DefaultConfig() Config {
	return Config{
		MaxTokenSize: DefaultMaxTokenSize,
		Log: LogConfig{
			Level:  LevelInfo,
			Format: FormatJSON,
		},
		Blacklist: DefaultBlacklistConfig(),
		Metrics: MetricsConfig{
			Namespace: defaultMetricsNamespace,
		},
	}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func configValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Validate reports the first invalid field as a *ValidationError.
func (c *Config) Validate() error {
	if c == nil {
		return ErrInvalidConfig
	}

	if err := configValidator().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}

		fe := fieldErrs[0]
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		cause := ErrInvalidConfig
		if field == "secret_key" {
			cause = ErrInvalidSecretKey
		}
		return &ValidationError{
			Field:   field,
			Message: validationMessage(fe),
			Err:     cause,
		}
	}

	if c.Blacklist.Enabled && c.Blacklist.StoreType == StoreRedis && c.Blacklist.Redis.Addr == "" {
		return &ValidationError{
			Field:   "blacklist.redis.addr",
			Message: "is required when store_type is redis",
			Err:     ErrInvalidConfig,
		}
	}

	return nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}

type loadOptions struct {
	envPrefix  string
	configType string
}

// LoadOption customizes LoadConfig.
type LoadOption func(*loadOptions)

// WithEnvPrefix replaces the MINIJWT environment prefix.
func WithEnvPrefix(prefix string) LoadOption {
	return func(o *loadOptions) {
		o.envPrefix = prefix
	}
}

// WithConfigType forces the file format (yaml, json, toml) instead of
// deriving it from the extension.
func WithConfigType(configType string) LoadOption {
	return func(o *loadOptions) {
		o.configType = configType
	}
}

// LoadConfig reads configuration from path, applies environment overrides
// and validates the result. An empty path loads defaults and environment
// only.
func LoadConfig(path string, opts ...LoadOption) (*Config, error) {
	options := &loadOptions{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(options)
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	if options.envPrefix != "" {
		v.SetEnvPrefix(options.envPrefix)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: config file %s: %v", ErrInvalidConfig, path, err)
		}
		v.SetConfigFile(path)
		if options.configType != "" {
			v.SetConfigType(options.configType)
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: failed to read config: %v", ErrInvalidConfig, err)
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to decode config: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults registers every key so environment overrides apply to keys
// missing from the file.
func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("secret_key", cfg.SecretKey)
	v.SetDefault("max_token_size", cfg.MaxTokenSize)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("blacklist.enabled", cfg.Blacklist.Enabled)
	v.SetDefault("blacklist.store_type", cfg.Blacklist.StoreType)
	v.SetDefault("blacklist.max_size", cfg.Blacklist.MaxSize)
	v.SetDefault("blacklist.cleanup_interval", cfg.Blacklist.CleanupInterval)
	v.SetDefault("blacklist.enable_auto_cleanup", cfg.Blacklist.EnableAutoCleanup)
	v.SetDefault("blacklist.redis.addr", cfg.Blacklist.Redis.Addr)
	v.SetDefault("blacklist.redis.password", cfg.Blacklist.Redis.Password)
	v.SetDefault("blacklist.redis.db", cfg.Blacklist.Redis.DB)
	v.SetDefault("blacklist.redis.key_prefix", cfg.Blacklist.Redis.KeyPrefix)
	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.namespace", cfg.Metrics.Namespace)
}
