package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 100, cfg.Batch.Size)
	require.Equal(t, 10, cfg.Batch.Concurrency)
	require.Equal(t, 2*time.Second, cfg.Batch.Pause)
	require.Equal(t, 3, cfg.Retry.MaxAttempts)
	require.Equal(t, 2*time.Second, cfg.Retry.BaseDelay)
	require.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	require.Equal(t, "memory", cfg.Store.Driver)
	require.Equal(t, "table", cfg.Output.Format)
	require.False(t, cfg.Status.Enabled)

	leetcode := cfg.Platform("leetcode")
	require.Equal(t, "https://leetcode.com/graphql", leetcode.BaseURL)
	require.Equal(t, 15*time.Second, leetcode.Timeout)
	require.Equal(t, time.Second, leetcode.MinInterval)

	codeforces := cfg.Platform("codeforces")
	require.Equal(t, 2*time.Second, codeforces.MinInterval)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cohortlens.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
batch:
  size: 50
  concurrency: 5
  pause: 500ms
cache:
  ttl: 1h
store:
  driver: libsql
  path: ./data/cache.db
platforms:
  github:
    token: secret-token
    min_interval: 3s
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 50, cfg.Batch.Size)
	require.Equal(t, 5, cfg.Batch.Concurrency)
	require.Equal(t, 500*time.Millisecond, cfg.Batch.Pause)
	require.Equal(t, time.Hour, cfg.Cache.TTL)
	require.Equal(t, "libsql", cfg.Store.Driver)
	require.Equal(t, "./data/cache.db", cfg.Store.Path)

	github := cfg.Platform("github")
	require.Equal(t, "secret-token", github.Token)
	require.Equal(t, 3*time.Second, github.MinInterval)
	// Untouched defaults survive a partial override.
	require.Equal(t, "https://api.github.com", github.BaseURL)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("COHORTLENS_BATCH_SIZE", "25")
	t.Setenv("COHORTLENS_RETRY_MAX_ATTEMPTS", "5")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 25, cfg.Batch.Size)
	require.Equal(t, 5, cfg.Retry.MaxAttempts)
}

func TestLoadRejectsMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Batch: BatchConfig{Size: 100, Concurrency: 10, Pause: time.Second},
			Retry: RetryConfig{MaxAttempts: 3, BaseDelay: time.Second},
			Cache: CacheConfig{TTL: time.Hour},
			Store: StoreConfig{Driver: "memory"},
		}
	}

	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.Batch.Size = 0
	require.ErrorContains(t, cfg.Validate(), "batch.size")

	cfg = valid()
	cfg.Batch.Concurrency = -1
	require.ErrorContains(t, cfg.Validate(), "batch.concurrency")

	cfg = valid()
	cfg.Retry.MaxAttempts = 0
	require.ErrorContains(t, cfg.Validate(), "retry.max_attempts")

	cfg = valid()
	cfg.Cache.TTL = 0
	require.ErrorContains(t, cfg.Validate(), "cache.ttl")

	cfg = valid()
	cfg.Store.Driver = "postgres"
	require.ErrorContains(t, cfg.Validate(), "store.driver")

	cfg = valid()
	cfg.Store.Driver = "libsql"
	require.ErrorContains(t, cfg.Validate(), "store.path")

	cfg = valid()
	cfg.Platforms = map[string]PlatformConfig{"github": {MinInterval: -time.Second}}
	require.ErrorContains(t, cfg.Validate(), "platforms.github.min_interval")
}
