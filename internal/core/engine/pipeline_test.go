package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cohortlens/cohortlens/internal/core"
)

func makeCohort(n int) []core.Entity {
	entities := make([]core.Entity, n)
	for i := range entities {
		entities[i] = core.Entity{
			ID:   fmt.Sprintf("e%03d", i),
			Name: fmt.Sprintf("Entity %d", i),
			Handles: map[core.Platform]core.Identity{
				core.PlatformLeetCode: {Handle: fmt.Sprintf("user%d", i)},
			},
		}
	}
	return entities
}

func testProcessor() *Processor {
	return &Processor{
		Fetchers: map[core.Platform]Fetcher{
			core.PlatformLeetCode: &stubFetcher{
				platform: core.PlatformLeetCode,
				fetch: func(_ context.Context, identity core.Identity) core.PlatformMetrics {
					return core.PlatformMetrics{Solved: 1}
				},
			},
		},
	}
}

func TestPipelineCheckpointsEveryBatch(t *testing.T) {
	var checkpointSizes []int
	var pauses []time.Duration
	pipeline := &Pipeline{
		Processor:   testProcessor(),
		BatchSize:   100,
		Concurrency: 10,
		Pause:       2 * time.Second,
		Checkpoint: func(_ context.Context, results []core.AggregateResult) error {
			checkpointSizes = append(checkpointSizes, len(results))
			return nil
		},
		Sleep: func(_ context.Context, d time.Duration) { pauses = append(pauses, d) },
	}

	results, err := pipeline.Run(context.Background(), makeCohort(250))
	require.NoError(t, err)
	require.Len(t, results, 250)

	// A partial last batch still checkpoints, and the snapshot grows with
	// the full accumulated result set each time.
	require.Equal(t, []int{100, 200, 250}, checkpointSizes)

	// The pause separates batches; there is none after the last.
	require.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, pauses)
}

func TestPipelinePreservesInputOrder(t *testing.T) {
	entities := makeCohort(37)
	pipeline := &Pipeline{
		Processor:   testProcessor(),
		BatchSize:   10,
		Concurrency: 4,
	}

	results, err := pipeline.Run(context.Background(), entities)
	require.NoError(t, err)
	require.Len(t, results, len(entities))
	for i, result := range results {
		require.Equal(t, entities[i].ID, result.EntityID)
	}
}

func TestPipelineCheckpointFailureIsFatal(t *testing.T) {
	calls := 0
	pipeline := &Pipeline{
		Processor:   testProcessor(),
		BatchSize:   5,
		Concurrency: 2,
		Checkpoint: func(context.Context, []core.AggregateResult) error {
			calls++
			if calls == 2 {
				return errors.New("disk full")
			}
			return nil
		},
	}

	results, err := pipeline.Run(context.Background(), makeCohort(20))
	require.Error(t, err)
	require.Contains(t, err.Error(), "checkpoint after batch 2")
	require.ErrorContains(t, err, "disk full")
	// Results up to the failed checkpoint are still handed back.
	require.Len(t, results, 10)
}

func TestPipelineFlushFailureIsNotFatal(t *testing.T) {
	pipeline := &Pipeline{
		Processor:   testProcessor(),
		BatchSize:   10,
		Concurrency: 2,
		FlushCache: func(context.Context) error {
			return errors.New("snapshot unwritable")
		},
	}

	results, err := pipeline.Run(context.Background(), makeCohort(8))
	require.NoError(t, err)
	require.Len(t, results, 8)
}

func TestPipelineProgress(t *testing.T) {
	pipeline := &Pipeline{
		Processor:   testProcessor(),
		BatchSize:   10,
		Concurrency: 5,
	}

	done, total, batch := pipeline.Progress()
	require.Zero(t, done)
	require.Zero(t, total)
	require.Zero(t, batch)

	_, err := pipeline.Run(context.Background(), makeCohort(25))
	require.NoError(t, err)

	done, total, batch = pipeline.Progress()
	require.Equal(t, 25, done)
	require.Equal(t, 25, total)
	require.Equal(t, 3, batch)
}

func TestPipelineEmptyCohort(t *testing.T) {
	pipeline := &Pipeline{Processor: testProcessor()}
	results, err := pipeline.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, results)
}
