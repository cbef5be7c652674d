// Package fetcher contains the per-platform metric fetchers. Each fetcher
// normalizes one entity's identity into that platform's metrics, going
// through the shared cache, the platform's rate limiter, and the retry
// policy. Fetchers never propagate failures past their own boundary: any
// unrecoverable failure degrades to the platform's zero-valued metrics.
package fetcher

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cohortlens/cohortlens/internal/core"
	"github.com/cohortlens/cohortlens/internal/core/cache"
	"github.com/cohortlens/cohortlens/internal/core/engine"
	"github.com/cohortlens/cohortlens/internal/metrics"
)

// DefaultTimeout bounds a single platform request when no client is
// configured.
const DefaultTimeout = 15 * time.Second

// DefaultRetry matches the pipeline-wide retry policy: three attempts with
// a doubling two-second backoff.
var DefaultRetry = engine.Retryer{MaxAttempts: 3, BaseDelay: 2 * time.Second}

// Deps is the wiring shared by every fetcher.
type Deps struct {
	Cache   *cache.Cache
	Limiter *engine.RateLimiter
	Retry   engine.Retryer
	Client  *http.Client
	Metrics metrics.Sink
	Clock   func() time.Time
}

// cachedMetrics returns a fresh cache hit for key, if any.
func (d *Deps) cachedMetrics(ctx context.Context, platform core.Platform, key string) *core.PlatformMetrics {
	if d.Cache == nil {
		return nil
	}
	value, err := d.Cache.Get(ctx, key)
	if err == nil && value != nil {
		if d.Metrics != nil {
			d.Metrics.CacheHit(string(platform))
		}
		return value
	}
	if d.Metrics != nil {
		d.Metrics.CacheMiss(string(platform))
	}
	return nil
}

// storeMetrics writes a successfully normalized value into the cache.
// Failures and zero substitutions are never cached.
func (d *Deps) storeMetrics(ctx context.Context, key string, value core.PlatformMetrics) {
	if d.Cache == nil {
		return
	}
	_ = d.Cache.Set(ctx, key, value)
}

func (d *Deps) httpClient() *http.Client {
	if d.Client != nil {
		return d.Client
	}
	return &http.Client{Timeout: DefaultTimeout}
}

func (d *Deps) retryer(platform core.Platform) engine.Retryer {
	r := d.Retry
	if r.MaxAttempts == 0 && r.BaseDelay == 0 {
		r = DefaultRetry
	}
	if d.Metrics != nil {
		sink := d.Metrics
		r.OnRetry = func(int, error) { sink.RetryAttempt(string(platform)) }
	}
	return r
}

func (d *Deps) waitLimiter(ctx context.Context) {
	if d.Limiter != nil {
		d.Limiter.Wait(ctx)
	}
}

func (d *Deps) recordFetch(platform core.Platform, statusClass string, started time.Time) {
	if d.Metrics != nil {
		d.Metrics.FetchCompleted(string(platform), statusClass, d.now().Sub(started))
	}
}

func (d *Deps) provenance() core.Provenance {
	return core.Provenance{FetchID: uuid.New().String(), FetchedAt: d.now()}
}

func (d *Deps) now() time.Time {
	if d != nil && d.Clock != nil {
		return d.Clock()
	}
	return time.Now().UTC()
}

// classifyFailure maps a fetch error to a bounded metrics status class.
func classifyFailure(err error) string {
	if err == nil {
		return metrics.StatusClassOK
	}
	if engine.IsPermanent(err) {
		return metrics.StatusClassZero
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return metrics.StatusClassTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return metrics.StatusClassTimeout
	case strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "network is unreachable"):
		return metrics.StatusClassConnectionError
	default:
		return metrics.StatusClassOtherError
	}
}

// transientStatus reports whether an HTTP status is worth retrying. Rate
// and auth rejections count as transient: they may clear within the retry
// window, and exhaustion degrades to zero anyway.
func transientStatus(code int) bool {
	switch {
	case code == http.StatusTooManyRequests,
		code == http.StatusUnauthorized,
		code == http.StatusForbidden:
		return true
	case code >= 500:
		return true
	default:
		return false
	}
}
