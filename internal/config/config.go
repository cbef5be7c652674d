package config

import (
	"fmt"
	"time"
)

// Config is the complete application configuration, merged from defaults,
// an optional config file, environment variables, and flags.
type Config struct {
	Batch     BatchConfig               `mapstructure:"batch"`
	Retry     RetryConfig               `mapstructure:"retry"`
	Cache     CacheConfig               `mapstructure:"cache"`
	Store     StoreConfig               `mapstructure:"store"`
	Output    OutputConfig              `mapstructure:"output"`
	Status    StatusConfig              `mapstructure:"status"`
	Platforms map[string]PlatformConfig `mapstructure:"platforms"`
}

// BatchConfig controls how the roster is split and dispatched.
type BatchConfig struct {
	Size        int           `mapstructure:"size"`
	Concurrency int           `mapstructure:"concurrency"`
	Pause       time.Duration `mapstructure:"pause"`
}

// RetryConfig controls transient-failure retries for platform calls.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
}

// CacheConfig controls response caching.
type CacheConfig struct {
	TTL          time.Duration `mapstructure:"ttl"`
	SnapshotPath string        `mapstructure:"snapshot_path"`
}

// StoreConfig selects the cache backend. Driver is "memory" or "libsql".
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// OutputConfig controls where and how results are written.
type OutputConfig struct {
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"`
}

// StatusConfig controls the optional in-run HTTP status endpoint.
type StatusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// PlatformConfig carries per-platform tuning. Token is only meaningful for
// platforms that accept one (github).
type PlatformConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MinInterval time.Duration `mapstructure:"min_interval"`
	Token       string        `mapstructure:"token"`
}

// Platform returns the config block for a platform name, falling back to a
// zero value when nothing was configured for it.
func (c *Config) Platform(name string) PlatformConfig {
	if c == nil || c.Platforms == nil {
		return PlatformConfig{}
	}
	return c.Platforms[name]
}

// Validate rejects values that would make a run misbehave rather than fail
// outright, so mistakes surface before any network calls happen.
func (c *Config) Validate() error {
	if c.Batch.Size <= 0 {
		return fmt.Errorf("batch.size must be positive, got %d", c.Batch.Size)
	}
	if c.Batch.Concurrency <= 0 {
		return fmt.Errorf("batch.concurrency must be positive, got %d", c.Batch.Concurrency)
	}
	if c.Batch.Pause < 0 {
		return fmt.Errorf("batch.pause must not be negative, got %s", c.Batch.Pause)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BaseDelay < 0 {
		return fmt.Errorf("retry.base_delay must not be negative, got %s", c.Retry.BaseDelay)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	switch c.Store.Driver {
	case "memory", "libsql":
	default:
		return fmt.Errorf("store.driver must be memory or libsql, got %q", c.Store.Driver)
	}
	if c.Store.Driver == "libsql" && c.Store.Path == "" {
		return fmt.Errorf("store.path is required when store.driver is libsql")
	}
	for name, platform := range c.Platforms {
		if platform.Timeout < 0 {
			return fmt.Errorf("platforms.%s.timeout must not be negative, got %s", name, platform.Timeout)
		}
		if platform.MinInterval < 0 {
			return fmt.Errorf("platforms.%s.min_interval must not be negative, got %s", name, platform.MinInterval)
		}
	}
	return nil
}
