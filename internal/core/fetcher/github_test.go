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
)

func githubTestServer(t *testing.T, searchStatus int) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var searchCalls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/ada-dev":
			fmt.Fprint(w, `{"login": "ada-dev", "public_repos": 9}`)
		case "/search/issues":
			searchCalls.Add(1)
			require.Contains(t, r.URL.Query().Get("q"), "author:ada-dev")
			require.Contains(t, r.URL.Query().Get("q"), "is:merged")
			if searchStatus != http.StatusOK {
				w.WriteHeader(searchStatus)
				return
			}
			fmt.Fprint(w, `{"total_count": 14}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return server, &searchCalls
}

func TestGitHubFetchReposAndMergedPRs(t *testing.T) {
	server, _ := githubTestServer(t, http.StatusOK)
	defer server.Close()

	f := &GitHubFetcher{Deps: testDeps(nil), BaseURL: server.URL}
	value := f.Fetch(context.Background(), core.Identity{Handle: "ada-dev"})

	require.Equal(t, 9, value.Repos)
	require.Equal(t, 14, value.MergedPRs)
	require.Zero(t, value.Solved)
}

func TestGitHubSecondaryFailureKeepsPrimary(t *testing.T) {
	server, searchCalls := githubTestServer(t, http.StatusInternalServerError)
	defer server.Close()

	metricsCache := cache.New(cache.NewMemory(), time.Hour)
	f := &GitHubFetcher{Deps: testDeps(metricsCache), BaseURL: server.URL}
	value := f.Fetch(context.Background(), core.Identity{Handle: "ada-dev"})

	// The merged-PR count degrades to zero without invalidating the repo
	// count, and the partial value is still cached.
	require.Equal(t, 9, value.Repos)
	require.Zero(t, value.MergedPRs)
	require.Equal(t, int64(3), searchCalls.Load())

	hit, err := metricsCache.Get(context.Background(), cache.Key(core.PlatformGitHub, "ada-dev"))
	require.NoError(t, err)
	require.NotNil(t, hit)
	require.Equal(t, 9, hit.Repos)
}

func TestGitHubUnknownUserIsPermanent(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := &GitHubFetcher{Deps: testDeps(nil), BaseURL: server.URL}
	value := f.Fetch(context.Background(), core.Identity{Handle: "nobody"})

	require.True(t, value.IsZero())
	require.Equal(t, int64(1), calls.Load())
}

func TestGitHubSendsToken(t *testing.T) {
	var sawAuth atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "token secret" {
			sawAuth.Store(true)
		}
		if r.URL.Path == "/search/issues" {
			fmt.Fprint(w, `{"total_count": 0}`)
			return
		}
		fmt.Fprint(w, `{"public_repos": 1}`)
	}))
	defer server.Close()

	f := &GitHubFetcher{Deps: testDeps(nil), BaseURL: server.URL, Token: "secret"}
	f.Fetch(context.Background(), core.Identity{Handle: "ada-dev"})
	require.True(t, sawAuth.Load())
}

func TestGitHubRejectsInvalidHandle(t *testing.T) {
	f := &GitHubFetcher{Deps: testDeps(nil), BaseURL: "http://127.0.0.1:0"}
	require.True(t, f.Fetch(context.Background(), core.Identity{Handle: "double--dash"}).IsZero())
	require.True(t, f.Fetch(context.Background(), core.Identity{Handle: "under_score"}).IsZero())
	require.True(t, f.Fetch(context.Background(), core.Identity{}).IsZero())
}
