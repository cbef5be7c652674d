package metrics

import "time"

// NoopSink discards all metrics. Used when instrumentation is disabled.
type NoopSink struct{}

func (NoopSink) FetchCompleted(string, string, time.Duration) {}
func (NoopSink) RetryAttempt(string)                          {}
func (NoopSink) CacheHit(string)                              {}
func (NoopSink) CacheMiss(string)                             {}
func (NoopSink) EntityProcessed(bool)                         {}
func (NoopSink) BatchCheckpointed(int)                        {}
func (NoopSink) EntitiesInFlightIncr()                        {}
func (NoopSink) EntitiesInFlightDecr()                        {}
