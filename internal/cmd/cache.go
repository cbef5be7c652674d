package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cohortlens/cohortlens/internal/config"
	"github.com/cohortlens/cohortlens/internal/core/cache"
	"github.com/cohortlens/cohortlens/internal/core/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the metrics cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show live and expired cache entry counts",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached entry",
	RunE:  runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

// openAdminCache opens the configured cache for offline inspection. Unlike
// a run, a memory driver without a snapshot path has nothing to inspect.
func openAdminCache(ctx context.Context, cfg *config.Config) (*cache.Cache, func(), error) {
	switch cfg.Store.Driver {
	case "libsql":
		st, err := store.Open(ctx, cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return cache.New(st, cfg.Cache.TTL), func() { _ = st.Close() }, nil
	case "memory":
		if cfg.Cache.SnapshotPath == "" {
			return nil, nil, errors.New("memory driver has no persistent cache; set cache.snapshot_path or store.driver=libsql")
		}
		backend := cache.LoadSnapshot(cfg.Cache.SnapshotPath)
		return cache.New(backend, cfg.Cache.TTL), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	metricsCache, closeCache, err := openAdminCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	live, expired, err := metricsCache.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("live entries:    %d\n", live)
	fmt.Printf("expired entries: %d\n", expired)
	fmt.Printf("ttl:             %s\n", cfg.Cache.TTL)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	metricsCache, closeCache, err := openAdminCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	if err := metricsCache.Clear(ctx); err != nil {
		return err
	}

	// For the snapshot-backed memory driver the cleared state has to be
	// written back out.
	if cfg.Store.Driver == "memory" && cfg.Cache.SnapshotPath != "" {
		if backend, ok := metricsCache.Backend.(*cache.Memory); ok {
			if err := backend.WriteSnapshot(cfg.Cache.SnapshotPath); err != nil {
				return err
			}
		}
	}

	fmt.Println("cache cleared")
	return nil
}
