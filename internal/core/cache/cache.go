// Package cache provides the time-boxed metrics cache shared by all
// platform fetchers. Expiry is evaluated here, at lookup time; backends
// store entries verbatim and never reason about TTLs.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cohortlens/cohortlens/internal/core"
)

// DefaultTTL is how long a fetched metrics value stays usable.
const DefaultTTL = 24 * time.Hour

// Entry is a stored metrics value with its insertion time.
type Entry struct {
	Value    core.PlatformMetrics `json:"value"`
	StoredAt time.Time            `json:"stored_at"`
}

// Backend persists entries by key. Implementations must tolerate concurrent
// Get/Set on distinct keys; same-key races are last-write-wins.
type Backend interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, entry Entry) error
	Keys(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}

// Key builds the cache key for a platform identity.
func Key(platform core.Platform, handle string) string {
	return string(platform) + ":" + strings.ToLower(strings.TrimSpace(handle))
}

// Cache applies a TTL policy over a Backend.
type Cache struct {
	Backend Backend
	TTL     time.Duration
	Clock   func() time.Time
}

// New returns a cache over the given backend. A non-positive ttl falls back
// to DefaultTTL.
func New(backend Backend, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{Backend: backend, TTL: ttl}
}

// Get returns the cached metrics for key, or nil on a miss. An entry older
// than the TTL is treated identically to a miss; it is not evicted eagerly.
// Backend failures degrade to a miss so a broken cache never blocks a fetch.
func (c *Cache) Get(ctx context.Context, key string) (*core.PlatformMetrics, error) {
	if c == nil || c.Backend == nil {
		return nil, errors.New("cache is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	entry, err := c.Backend.Get(ctx, key)
	if err != nil || entry == nil {
		return nil, nil
	}
	if c.now().Sub(entry.StoredAt) >= c.ttl() {
		return nil, nil
	}

	value := entry.Value
	value.Provenance.FromCache = true
	return &value, nil
}

// Set unconditionally overwrites any existing entry with the new value and
// the current timestamp.
func (c *Cache) Set(ctx context.Context, key string, value core.PlatformMetrics) error {
	if c == nil || c.Backend == nil {
		return errors.New("cache is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return c.Backend.Set(ctx, key, Entry{Value: value, StoredAt: c.now()})
}

// Stats reports the number of live and expired entries.
func (c *Cache) Stats(ctx context.Context) (live int, expired int, err error) {
	if c == nil || c.Backend == nil {
		return 0, 0, errors.New("cache is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	keys, err := c.Backend.Keys(ctx)
	if err != nil {
		return 0, 0, err
	}
	now := c.now()
	for _, key := range keys {
		entry, err := c.Backend.Get(ctx, key)
		if err != nil || entry == nil {
			continue
		}
		if now.Sub(entry.StoredAt) >= c.ttl() {
			expired++
		} else {
			live++
		}
	}
	return live, expired, nil
}

// Clear removes every entry.
func (c *Cache) Clear(ctx context.Context) error {
	if c == nil || c.Backend == nil {
		return errors.New("cache is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return c.Backend.Clear(ctx)
}

func (c *Cache) ttl() time.Duration {
	if c != nil && c.TTL > 0 {
		return c.TTL
	}
	return DefaultTTL
}

func (c *Cache) now() time.Time {
	if c != nil && c.Clock != nil {
		return c.Clock()
	}
	return time.Now().UTC()
}
