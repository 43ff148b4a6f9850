package redisregistry

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds configuration for a Redis-backed registry.
type Config struct {
	// Redis client for coordination
	Redis redis.UniversalClient

	// KeyPrefix is the Redis key prefix for this registry
	KeyPrefix string

	// RedisTimeout is the timeout for Redis operations
	RedisTimeout time.Duration

	// KeyTTL is how long the entry hash should live without refresh
	// (defaults to 1 hour)
	KeyTTL time.Duration
}

// DefaultConfig returns a default Redis registry configuration.
func DefaultConfig() Config {
	return Config{
		KeyPrefix:    "liveflow:registry",
		RedisTimeout: 500 * time.Millisecond,
		KeyTTL:       time.Hour,
	}
}

// validateConfig validates the registry configuration.
func validateConfig(config Config) error {
	if config.Redis == nil {
		return &ConfigError{"redis client is required"}
	}
	return nil
}

// applyConfigDefaults sets default values for unspecified config fields.
func applyConfigDefaults(config Config) Config {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "liveflow:registry"
	}
	if config.RedisTimeout == 0 {
		config.RedisTimeout = 500 * time.Millisecond
	}
	if config.KeyTTL == 0 {
		config.KeyTTL = time.Hour
	}
	return config
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return "redis registry config error: " + e.Message
}

// RedisError represents a Redis operation error.
type RedisError struct {
	Operation string
	Err       error
}

func (e *RedisError) Error() string {
	return "redis error in " + e.Operation + ": " + e.Err.Error()
}

func (e *RedisError) Unwrap() error {
	return e.Err
}
