// Package metrics defines the instrumentation sink for the fetch pipeline.
package metrics

import "time"

// Sink records pipeline instrumentation. All methods are fire-and-forget:
// implementations must not block or propagate errors.
type Sink interface {
	// Fetcher metrics
	FetchCompleted(platform string, statusClass string, duration time.Duration)
	RetryAttempt(platform string)
	CacheHit(platform string)
	CacheMiss(platform string)

	// Pipeline metrics
	EntityProcessed(errored bool)
	BatchCheckpointed(records int)
	EntitiesInFlightIncr()
	EntitiesInFlightDecr()
}

// Status classes for FetchCompleted. Bounded cardinality.
const (
	StatusClassOK              = "ok"
	StatusClassZero            = "zero"
	StatusClassTimeout         = "timeout"
	StatusClassConnectionError = "connection_error"
	StatusClassOtherError      = "other_error"
)
