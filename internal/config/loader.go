// Package config provides layered configuration: built-in defaults, an
// optional YAML config file, and COHORTLENS_* environment variables, merged
// in that order.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// SetDefaults installs the built-in defaults on a viper instance. They are
// tuned for a cohort of around ten thousand entities against public APIs.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("batch.size", 100)
	v.SetDefault("batch.concurrency", 10)
	v.SetDefault("batch.pause", "2s")

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", "2s")

	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.snapshot_path", "")

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.path", "")

	v.SetDefault("output.path", "results.json")
	v.SetDefault("output.format", "table")

	v.SetDefault("status.enabled", false)
	v.SetDefault("status.addr", "localhost:8750")

	v.SetDefault("platforms.leetcode.base_url", "https://leetcode.com/graphql")
	v.SetDefault("platforms.leetcode.timeout", "15s")
	v.SetDefault("platforms.leetcode.min_interval", "1s")

	v.SetDefault("platforms.codeforces.base_url", "https://codeforces.com/api")
	v.SetDefault("platforms.codeforces.timeout", "15s")
	v.SetDefault("platforms.codeforces.min_interval", "2s")

	v.SetDefault("platforms.codechef.base_url", "https://www.codechef.com")
	v.SetDefault("platforms.codechef.timeout", "15s")
	v.SetDefault("platforms.codechef.min_interval", "2s")

	v.SetDefault("platforms.github.base_url", "https://api.github.com")
	v.SetDefault("platforms.github.timeout", "15s")
	v.SetDefault("platforms.github.min_interval", "1s")
	v.SetDefault("platforms.github.token", "")
}

// Load reads the configuration from the given file (optional; empty means
// search the working directory), applies environment overrides, and
// validates the result.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.SetConfigName("cohortlens")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("COHORTLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine when none was requested explicitly.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
