package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink using the Prometheus client library.
// Registration errors are ignored; a duplicate registration only means the
// collector already exists, and instrumentation must never fail a run.
type PrometheusSink struct {
	fetchesTotal      *prometheus.CounterVec
	fetchDuration     *prometheus.HistogramVec
	retriesTotal      *prometheus.CounterVec
	cacheHitsTotal    *prometheus.CounterVec
	cacheMissesTotal  *prometheus.CounterVec
	entitiesTotal     *prometheus.CounterVec
	checkpointsTotal  prometheus.Counter
	checkpointRecords prometheus.Gauge
	entitiesInFlight  prometheus.Gauge
}

// NewPrometheusSink creates a sink registered against reg.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{
		fetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cohortlens_fetches_total",
			Help: "Platform fetches by platform and status class.",
		}, []string{"platform", "status"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cohortlens_fetch_duration_seconds",
			Help:    "Platform fetch duration, including retries and rate-limit waits.",
			Buckets: prometheus.DefBuckets,
		}, []string{"platform"}),
		retriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cohortlens_fetch_retries_total",
			Help: "Retry attempts by platform.",
		}, []string{"platform"}),
		cacheHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cohortlens_cache_hits_total",
			Help: "Cache hits by platform.",
		}, []string{"platform"}),
		cacheMissesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cohortlens_cache_misses_total",
			Help: "Cache misses by platform.",
		}, []string{"platform"}),
		entitiesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cohortlens_entities_processed_total",
			Help: "Entities processed, by outcome.",
		}, []string{"outcome"}),
		checkpointsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cohortlens_checkpoints_total",
			Help: "Snapshot checkpoints written.",
		}),
		checkpointRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cohortlens_checkpoint_records",
			Help: "Records contained in the most recent checkpoint.",
		}),
		entitiesInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cohortlens_entities_in_flight",
			Help: "Entities currently being processed.",
		}),
	}

	for _, c := range []prometheus.Collector{
		s.fetchesTotal, s.fetchDuration, s.retriesTotal,
		s.cacheHitsTotal, s.cacheMissesTotal, s.entitiesTotal,
		s.checkpointsTotal, s.checkpointRecords, s.entitiesInFlight,
	} {
		_ = reg.Register(c)
	}
	return s
}

func (s *PrometheusSink) FetchCompleted(platform string, statusClass string, duration time.Duration) {
	s.fetchesTotal.WithLabelValues(platform, statusClass).Inc()
	s.fetchDuration.WithLabelValues(platform).Observe(duration.Seconds())
}

func (s *PrometheusSink) RetryAttempt(platform string) {
	s.retriesTotal.WithLabelValues(platform).Inc()
}

func (s *PrometheusSink) CacheHit(platform string) {
	s.cacheHitsTotal.WithLabelValues(platform).Inc()
}

func (s *PrometheusSink) CacheMiss(platform string) {
	s.cacheMissesTotal.WithLabelValues(platform).Inc()
}

func (s *PrometheusSink) EntityProcessed(errored bool) {
	outcome := "ok"
	if errored {
		outcome = "error"
	}
	s.entitiesTotal.WithLabelValues(outcome).Inc()
}

func (s *PrometheusSink) BatchCheckpointed(records int) {
	s.checkpointsTotal.Inc()
	s.checkpointRecords.Set(float64(records))
}

func (s *PrometheusSink) EntitiesInFlightIncr() { s.entitiesInFlight.Inc() }
func (s *PrometheusSink) EntitiesInFlightDecr() { s.entitiesInFlight.Dec() }
