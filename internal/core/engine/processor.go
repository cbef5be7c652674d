package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cohortlens/cohortlens/internal/core"
	"github.com/cohortlens/cohortlens/internal/metrics"
)

// Fetcher is one platform's fetch capability. Implementations never
// propagate failures past their boundary; on any unrecoverable error they
// return the platform's zero-valued metrics.
type Fetcher interface {
	Platform() core.Platform
	Fetch(ctx context.Context, identity core.Identity) core.PlatformMetrics
}

// Processor merges one entity's activity across all configured platforms.
// Every platform fetch is dispatched concurrently and joined with default
// substitution: a failed or missing platform contributes zero metrics and
// never aborts the entity. Process never fails its caller.
type Processor struct {
	Fetchers map[core.Platform]Fetcher
	Logger   *zap.Logger
	Metrics  metrics.Sink
	Clock    func() time.Time
}

// Process fetches all platform metrics for entity and derives the combined
// solved total. Exactly one AggregateResult comes back no matter how many
// platform calls fail; an unexpected fault during the join is recorded on
// the result instead of propagating.
func (p *Processor) Process(ctx context.Context, entity core.Entity) core.AggregateResult {
	if ctx == nil {
		ctx = context.Background()
	}

	started := p.now()
	if p.Metrics != nil {
		p.Metrics.EntitiesInFlightIncr()
		defer p.Metrics.EntitiesInFlightDecr()
	}

	result := core.AggregateResult{
		EntityID: entity.ID,
		Name:     entity.Name,
	}
	result.Data, result.Error = p.join(ctx, entity)

	// All platform keys must be present even after a join fault, and the
	// solved total is always recomputed from the emitted data.
	if result.Data == nil {
		result.Data = make(map[core.Platform]core.PlatformMetrics, len(p.Fetchers))
	}
	for platform := range p.Fetchers {
		if _, ok := result.Data[platform]; !ok {
			result.Data[platform] = core.PlatformMetrics{}
		}
	}
	for platform, m := range result.Data {
		if platform.CountsTowardSolvedTotal() {
			result.SolvedTotal += m.Solved
		}
	}

	completed := p.now()
	result.CompletedAt = completed
	result.ProcessingMs = completed.Sub(started).Milliseconds()

	if p.Metrics != nil {
		p.Metrics.EntityProcessed(result.Error != "")
	}
	if result.Error != "" && p.Logger != nil {
		p.Logger.Warn("entity processed with fault",
			zap.String("entity", entity.ID),
			zap.String("error", result.Error))
	}
	return result
}

// join fans out one fetch per configured platform and waits for all of
// them. A recovered panic is converted to an error message; the partial
// data collected so far is kept.
func (p *Processor) join(ctx context.Context, entity core.Entity) (data map[core.Platform]core.PlatformMetrics, errMsg string) {
	data = make(map[core.Platform]core.PlatformMetrics, len(p.Fetchers))

	defer func() {
		if r := recover(); r != nil {
			errMsg = fmt.Sprintf("join fault: %v", r)
		}
	}()

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for platform, fetcher := range p.Fetchers {
		wg.Add(1)
		go func(platform core.Platform, fetcher Fetcher) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					data[platform] = core.PlatformMetrics{}
					if errMsg == "" {
						errMsg = fmt.Sprintf("%s fetch fault: %v", platform, r)
					}
					mu.Unlock()
				}
			}()

			// A missing or empty handle short-circuits to zero without a call.
			identity, ok := entity.Identity(platform)
			var value core.PlatformMetrics
			if ok && identity.Handle != "" {
				value = fetcher.Fetch(ctx, identity)
			}

			mu.Lock()
			data[platform] = value
			mu.Unlock()
		}(platform, fetcher)
	}
	wg.Wait()

	return data, errMsg
}

func (p *Processor) now() time.Time {
	if p != nil && p.Clock != nil {
		return p.Clock()
	}
	return time.Now().UTC()
}
