package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cohortlens/cohortlens/internal/config"
	"github.com/cohortlens/cohortlens/internal/core"
	"github.com/cohortlens/cohortlens/internal/core/aggregate"
	"github.com/cohortlens/cohortlens/internal/core/cache"
	"github.com/cohortlens/cohortlens/internal/core/engine"
	"github.com/cohortlens/cohortlens/internal/core/fetcher"
	"github.com/cohortlens/cohortlens/internal/core/roster"
	"github.com/cohortlens/cohortlens/internal/core/store"
	"github.com/cohortlens/cohortlens/internal/metrics"
	"github.com/cohortlens/cohortlens/internal/output"
	"github.com/cohortlens/cohortlens/internal/server"
)

var runCmd = &cobra.Command{
	Use:   "run <roster-file>",
	Short: "Collect metrics for every entity in a roster",
	Long: `Read a roster file (JSON or YAML), fetch each entity's metrics from
every configured platform, and write the aggregated results. Individual
platform failures never fail the run; they degrade to zero-valued metrics.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("output", "", "results file path (overrides output.path)")
	runCmd.Flags().String("format", "", "stdout rendering: table, json (overrides output.format)")
	runCmd.Flags().Int("batch-size", 0, "entities per batch (overrides batch.size)")
	runCmd.Flags().Int("concurrency", 0, "parallel entities per batch (overrides batch.concurrency)")
	runCmd.Flags().Bool("status", false, "serve progress and metrics over HTTP during the run")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyRunFlags(cmd, cfg); err != nil {
		return err
	}

	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	logger := newLogger()
	defer logger.Sync() // nolint:errcheck // best-effort flush on exit

	entities, err := roster.Load(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	startedAt := time.Now()

	registry := prometheus.NewRegistry()
	sink := metrics.NewPrometheusSink(registry)

	metricsCache, closeCache, flushCache, err := openCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	processor := &engine.Processor{
		Fetchers: buildFetchers(cfg, metricsCache, sink),
		Logger:   logger,
		Metrics:  sink,
	}

	pipeline := &engine.Pipeline{
		Processor:   processor,
		BatchSize:   cfg.Batch.Size,
		Concurrency: cfg.Batch.Concurrency,
		Pause:       cfg.Batch.Pause,
		Checkpoint: func(ctx context.Context, results []core.AggregateResult) error {
			return output.WriteSnapshot(cfg.Output.Path, results)
		},
		FlushCache: flushCache,
		Logger:     logger,
		Metrics:    sink,
	}

	if statusEnabled(cmd, cfg) {
		statusServer := &server.Server{
			Addr:     cfg.Status.Addr,
			Source:   pipeline,
			Registry: registry,
			Logger:   logger,
		}
		statusServer.Start()
		defer statusServer.Shutdown(ctx) // nolint:errcheck // best-effort cleanup
		logger.Info("status server listening", zap.String("addr", cfg.Status.Addr))
	}

	logger.Info("starting collection",
		zap.Int("entities", len(entities)),
		zap.Int("batch_size", cfg.Batch.Size),
		zap.Int("concurrency", cfg.Batch.Concurrency),
	)

	results, err := pipeline.Run(ctx, entities)
	if err != nil {
		return err
	}

	if err := renderResults(format, results); err != nil {
		return err
	}

	summary := aggregate.Summarize(results)
	if format == output.FormatTable {
		fmt.Println(output.FormatSummaryTable(summary))
	}

	logger.Info("collection complete",
		zap.Int("entities", summary.Entities),
		zap.Int("errors", summary.Errors),
		zap.Int("solved_total", summary.SolvedTotal),
		zap.Duration("elapsed", time.Since(startedAt)),
		zap.String("output", cfg.Output.Path),
	)
	return nil
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	if value, err := cmd.Flags().GetString("output"); err != nil {
		return err
	} else if strings.TrimSpace(value) != "" {
		cfg.Output.Path = value
	}
	if value, err := cmd.Flags().GetString("format"); err != nil {
		return err
	} else if strings.TrimSpace(value) != "" {
		cfg.Output.Format = value
	}
	if value, err := cmd.Flags().GetInt("batch-size"); err != nil {
		return err
	} else if value > 0 {
		cfg.Batch.Size = value
	}
	if value, err := cmd.Flags().GetInt("concurrency"); err != nil {
		return err
	} else if value > 0 {
		cfg.Batch.Concurrency = value
	}
	return nil
}

func statusEnabled(cmd *cobra.Command, cfg *config.Config) bool {
	if enabled, err := cmd.Flags().GetBool("status"); err == nil && enabled {
		return true
	}
	return cfg.Status.Enabled
}

// openCache builds the metrics cache on the configured backend. It returns
// the cache, a close func for the backend, and an optional flush func the
// pipeline invokes at run completion.
func openCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*cache.Cache, func(), func(ctx context.Context) error, error) {
	switch cfg.Store.Driver {
	case "libsql":
		st, err := store.Open(ctx, cfg.Store.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		closeStore := func() {
			_ = st.Close()
		}
		return cache.New(st, cfg.Cache.TTL), closeStore, nil, nil

	case "memory":
		var backend *cache.Memory
		if cfg.Cache.SnapshotPath != "" {
			backend = cache.LoadSnapshot(cfg.Cache.SnapshotPath)
		} else {
			backend = cache.NewMemory()
		}

		var flush func(ctx context.Context) error
		if cfg.Cache.SnapshotPath != "" {
			flush = func(context.Context) error {
				return backend.WriteSnapshot(cfg.Cache.SnapshotPath)
			}
		}
		return cache.New(backend, cfg.Cache.TTL), func() {}, flush, nil

	default:
		return nil, nil, nil, errors.New("unsupported store driver " + cfg.Store.Driver)
	}
}

// buildFetchers wires one fetcher per platform, each with its own rate
// limiter and HTTP client but a shared cache and metrics sink.
func buildFetchers(cfg *config.Config, metricsCache *cache.Cache, sink metrics.Sink) map[core.Platform]engine.Fetcher {
	deps := func(platform core.Platform) fetcher.Deps {
		pc := cfg.Platform(string(platform))
		timeout := pc.Timeout
		if timeout <= 0 {
			timeout = fetcher.DefaultTimeout
		}
		return fetcher.Deps{
			Cache:   metricsCache,
			Limiter: &engine.RateLimiter{MinInterval: pc.MinInterval},
			Retry: engine.Retryer{
				MaxAttempts: cfg.Retry.MaxAttempts,
				BaseDelay:   cfg.Retry.BaseDelay,
			},
			Client:  &http.Client{Timeout: timeout},
			Metrics: sink,
		}
	}

	return map[core.Platform]engine.Fetcher{
		core.PlatformLeetCode: &fetcher.LeetCodeFetcher{
			Deps:    deps(core.PlatformLeetCode),
			BaseURL: cfg.Platform(string(core.PlatformLeetCode)).BaseURL,
		},
		core.PlatformCodeforces: &fetcher.CodeforcesFetcher{
			Deps:    deps(core.PlatformCodeforces),
			BaseURL: cfg.Platform(string(core.PlatformCodeforces)).BaseURL,
		},
		core.PlatformCodeChef: &fetcher.CodeChefFetcher{
			Deps:    deps(core.PlatformCodeChef),
			BaseURL: cfg.Platform(string(core.PlatformCodeChef)).BaseURL,
		},
		core.PlatformGitHub: &fetcher.GitHubFetcher{
			Deps:    deps(core.PlatformGitHub),
			BaseURL: cfg.Platform(string(core.PlatformGitHub)).BaseURL,
			Token:   cfg.Platform(string(core.PlatformGitHub)).Token,
		},
	}
}

func renderResults(format output.Format, results []core.AggregateResult) error {
	switch format {
	case output.FormatJSON:
		rendered, err := output.FormatResultsJSON(results)
		if err != nil {
			return err
		}
		fmt.Println(rendered)
	default:
		fmt.Println(output.FormatResultsTable(results))
	}
	return nil
}
