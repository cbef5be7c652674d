package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cohortlens/cohortlens/internal/core"
	"github.com/cohortlens/cohortlens/internal/metrics"
)

// Defaults for the batch driver.
const (
	DefaultBatchSize   = 100
	DefaultConcurrency = 10
	DefaultPause       = 2 * time.Second
)

// Pipeline drives the full cohort through sequential batches. Each batch is
// split into concurrency-bounded chunks; a chunk's entities are processed
// in parallel and the chunk joins before the next one starts, so in-flight
// work never exceeds Concurrency. Results are appended in input order, a
// snapshot checkpoint is written after every batch, and a fixed pause
// separates batches.
type Pipeline struct {
	Processor   *Processor
	BatchSize   int
	Concurrency int
	Pause       time.Duration

	// Checkpoint persists all results accumulated so far. A checkpoint
	// failure aborts the run: an unwritable output destination is fatal.
	Checkpoint func(ctx context.Context, results []core.AggregateResult) error

	// FlushCache persists the cache snapshot at run completion. Optional;
	// failures are logged, never fatal.
	FlushCache func(ctx context.Context) error

	Logger  *zap.Logger
	Metrics metrics.Sink
	Sleep   func(ctx context.Context, d time.Duration)

	done  atomic.Int64
	total atomic.Int64
	batch atomic.Int64
}

// Run processes every entity and returns one result per entity, in input
// order, regardless of how many individual platform calls failed.
func (pl *Pipeline) Run(ctx context.Context, entities []core.Entity) ([]core.AggregateResult, error) {
	if pl == nil || pl.Processor == nil {
		return nil, fmt.Errorf("pipeline is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	batchSize := pl.BatchSize
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	concurrency := pl.Concurrency
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	pl.total.Store(int64(len(entities)))
	pl.done.Store(0)

	batches := (len(entities) + batchSize - 1) / batchSize
	results := make([]core.AggregateResult, 0, len(entities))

	for start := 0; start < len(entities); start += batchSize {
		end := start + batchSize
		if end > len(entities) {
			end = len(entities)
		}
		batchNum := start/batchSize + 1
		pl.batch.Store(int64(batchNum))

		if pl.Logger != nil {
			pl.Logger.Info("batch started",
				zap.Int("batch", batchNum),
				zap.Int("of", batches),
				zap.Int("entities", end-start))
		}

		results = pl.runBatch(ctx, entities[start:end], concurrency, results)

		if pl.Checkpoint != nil {
			if err := pl.Checkpoint(ctx, results); err != nil {
				return results, fmt.Errorf("checkpoint after batch %d: %w", batchNum, err)
			}
			if pl.Metrics != nil {
				pl.Metrics.BatchCheckpointed(len(results))
			}
		}

		if pl.Pause > 0 && end < len(entities) {
			pl.sleep(ctx, pl.Pause)
		}
	}

	if pl.FlushCache != nil {
		if err := pl.FlushCache(ctx); err != nil && pl.Logger != nil {
			pl.Logger.Warn("cache flush failed", zap.Error(err))
		}
	}
	return results, nil
}

// runBatch processes one batch chunk by chunk and appends its results, in
// input order, to acc.
func (pl *Pipeline) runBatch(ctx context.Context, batch []core.Entity, concurrency int, acc []core.AggregateResult) []core.AggregateResult {
	for start := 0; start < len(batch); start += concurrency {
		end := start + concurrency
		if end > len(batch) {
			end = len(batch)
		}
		chunk := batch[start:end]

		chunkResults := make([]core.AggregateResult, len(chunk))
		var wg sync.WaitGroup
		for i, entity := range chunk {
			wg.Add(1)
			go func(i int, entity core.Entity) {
				defer wg.Done()
				chunkResults[i] = pl.Processor.Process(ctx, entity)
			}(i, entity)
		}
		wg.Wait()

		acc = append(acc, chunkResults...)
		pl.done.Add(int64(len(chunk)))
	}
	return acc
}

// Progress reports entities completed, the cohort size, and the current
// batch number. Safe to call from other goroutines while Run is active.
func (pl *Pipeline) Progress() (done, total, batch int) {
	if pl == nil {
		return 0, 0, 0
	}
	return int(pl.done.Load()), int(pl.total.Load()), int(pl.batch.Load())
}

func (pl *Pipeline) sleep(ctx context.Context, d time.Duration) {
	if pl != nil && pl.Sleep != nil {
		pl.Sleep(ctx, d)
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
