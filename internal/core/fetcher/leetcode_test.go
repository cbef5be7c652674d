package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cohortlens/cohortlens/internal/core"
	"github.com/cohortlens/cohortlens/internal/core/cache"
	"github.com/cohortlens/cohortlens/internal/core/engine"
)

func testDeps(metricsCache *cache.Cache) Deps {
	return Deps{
		Cache: metricsCache,
		Retry: engine.Retryer{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			Sleep:       func(context.Context, time.Duration) {},
		},
	}
}

const leetcodeSolvedBody = `{
	"data": {
		"matchedUser": {
			"submitStats": {
				"acSubmissionNum": [
					{"difficulty": "All", "count": 120},
					{"difficulty": "Easy", "count": 50},
					{"difficulty": "Medium", "count": 50},
					{"difficulty": "Hard", "count": 20}
				]
			}
		}
	}
}`

func TestLeetCodeFetchParsesSolvedCounts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		fmt.Fprint(w, leetcodeSolvedBody)
	}))
	defer server.Close()

	f := &LeetCodeFetcher{Deps: testDeps(nil), BaseURL: server.URL}
	value := f.Fetch(context.Background(), core.Identity{Handle: "ada"})

	require.Equal(t, 120, value.Solved)
	require.Equal(t, 50, value.Easy)
	require.Equal(t, 50, value.Medium)
	require.Equal(t, 20, value.Hard)
	require.NotEmpty(t, value.Provenance.FetchID)
	require.False(t, value.Provenance.FromCache)
}

func TestLeetCodeFetchUsesCache(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, leetcodeSolvedBody)
	}))
	defer server.Close()

	metricsCache := cache.New(cache.NewMemory(), time.Hour)
	f := &LeetCodeFetcher{Deps: testDeps(metricsCache), BaseURL: server.URL}

	first := f.Fetch(context.Background(), core.Identity{Handle: "ada"})
	second := f.Fetch(context.Background(), core.Identity{Handle: "ada"})

	require.Equal(t, int64(1), calls.Load())
	require.False(t, first.Provenance.FromCache)
	require.True(t, second.Provenance.FromCache)
	require.Equal(t, first.Solved, second.Solved)
}

func TestLeetCodeUnknownUserIsZeroAndNotCached(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"data": {"matchedUser": null}}`)
	}))
	defer server.Close()

	metricsCache := cache.New(cache.NewMemory(), time.Hour)
	f := &LeetCodeFetcher{Deps: testDeps(metricsCache), BaseURL: server.URL}

	value := f.Fetch(context.Background(), core.Identity{Handle: "nobody"})
	require.True(t, value.IsZero())
	// Unknown user is permanent; no retries happen.
	require.Equal(t, int64(1), calls.Load())

	hit, err := metricsCache.Get(context.Background(), cache.Key(core.PlatformLeetCode, "nobody"))
	require.NoError(t, err)
	require.Nil(t, hit)
}

func TestLeetCodeRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, leetcodeSolvedBody)
	}))
	defer server.Close()

	f := &LeetCodeFetcher{Deps: testDeps(nil), BaseURL: server.URL}
	value := f.Fetch(context.Background(), core.Identity{Handle: "ada"})

	require.Equal(t, int64(3), calls.Load())
	require.Equal(t, 120, value.Solved)
}

func TestLeetCodeExhaustedRetriesDegradeToZero(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	f := &LeetCodeFetcher{Deps: testDeps(nil), BaseURL: server.URL}
	value := f.Fetch(context.Background(), core.Identity{Handle: "ada"})

	require.Equal(t, int64(3), calls.Load())
	require.True(t, value.IsZero())
}

func TestLeetCodeRejectsInvalidHandle(t *testing.T) {
	f := &LeetCodeFetcher{Deps: testDeps(nil), BaseURL: "http://127.0.0.1:0"}
	require.True(t, f.Fetch(context.Background(), core.Identity{Handle: "bad handle!"}).IsZero())
	require.True(t, f.Fetch(context.Background(), core.Identity{}).IsZero())
}
