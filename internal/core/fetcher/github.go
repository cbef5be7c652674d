package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/cohortlens/cohortlens/internal/core"
	"github.com/cohortlens/cohortlens/internal/core/cache"
	"github.com/cohortlens/cohortlens/internal/core/engine"
	"github.com/cohortlens/cohortlens/internal/metrics"
)

const githubDefaultBaseURL = "https://api.github.com"

var githubHandlePattern = regexp.MustCompile(`^[a-zA-Z0-9-]{1,39}$`)

// GitHubFetcher pulls the public repository count and the merged
// pull-request count for a username. The PR count is a secondary dependent
// call chained after the user lookup; it is rate limited on its own and
// allowed to fail without invalidating the primary result.
type GitHubFetcher struct {
	Deps
	BaseURL string

	// Token is the optional elevated-privilege credential. It only changes
	// the Authorization header; the pipeline shape is unaffected.
	Token string
}

// Platform returns the fetcher's platform.
func (f *GitHubFetcher) Platform() core.Platform {
	return core.PlatformGitHub
}

// Fetch resolves repository and merged-PR counts for a username.
func (f *GitHubFetcher) Fetch(ctx context.Context, identity core.Identity) core.PlatformMetrics {
	if ctx == nil {
		ctx = context.Background()
	}
	handle := strings.TrimSpace(identity.Handle)
	if !githubHandlePattern.MatchString(handle) || strings.Contains(handle, "--") {
		return core.PlatformMetrics{}
	}

	key := cache.Key(core.PlatformGitHub, handle)
	if hit := f.cachedMetrics(ctx, core.PlatformGitHub, key); hit != nil {
		return *hit
	}

	started := f.now()
	var repos int
	err := f.retryer(core.PlatformGitHub).Do(ctx, func(ctx context.Context) error {
		f.waitLimiter(ctx)
		fetched, err := f.fetchRepoCount(ctx, handle)
		if err != nil {
			return err
		}
		repos = fetched
		return nil
	})
	if err != nil {
		f.recordFetch(core.PlatformGitHub, classifyFailure(err), started)
		return core.PlatformMetrics{}
	}

	value := core.PlatformMetrics{Repos: repos}

	// Dependent count query: best effort, zero on failure.
	err = f.retryer(core.PlatformGitHub).Do(ctx, func(ctx context.Context) error {
		f.waitLimiter(ctx)
		merged, err := f.fetchMergedPRCount(ctx, handle)
		if err != nil {
			return err
		}
		value.MergedPRs = merged
		return nil
	})
	if err != nil {
		value.MergedPRs = 0
	}

	value.Provenance = f.provenance()
	f.storeMetrics(ctx, key, value)
	f.recordFetch(core.PlatformGitHub, metrics.StatusClassOK, started)
	return value
}

func (f *GitHubFetcher) fetchRepoCount(ctx context.Context, handle string) (int, error) {
	resp, err := f.get(ctx, "/users/"+url.PathEscape(handle), "")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return 0, engine.Permanent(fmt.Errorf("github user %q not found", handle))
	case transientStatus(resp.StatusCode):
		return 0, fmt.Errorf("github responded %d", resp.StatusCode)
	default:
		return 0, engine.Permanent(fmt.Errorf("github responded %d", resp.StatusCode))
	}

	var payload struct {
		PublicRepos int `json:"public_repos"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, engine.Permanent(fmt.Errorf("decode github user: %w", err))
	}
	return payload.PublicRepos, nil
}

func (f *GitHubFetcher) fetchMergedPRCount(ctx context.Context, handle string) (int, error) {
	query := url.Values{}
	query.Set("q", fmt.Sprintf("author:%s type:pr is:merged", handle))
	query.Set("per_page", "1")

	resp, err := f.get(ctx, "/search/issues", query.Encode())
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	switch {
	case resp.StatusCode == http.StatusOK:
	case transientStatus(resp.StatusCode):
		return 0, fmt.Errorf("github search responded %d", resp.StatusCode)
	default:
		return 0, engine.Permanent(fmt.Errorf("github search responded %d", resp.StatusCode))
	}

	var payload struct {
		TotalCount int `json:"total_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, engine.Permanent(fmt.Errorf("decode github search: %w", err))
	}
	return payload.TotalCount, nil
}

func (f *GitHubFetcher) get(ctx context.Context, path string, rawQuery string) (*http.Response, error) {
	baseURL := f.BaseURL
	if baseURL == "" {
		baseURL = githubDefaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, engine.Permanent(fmt.Errorf("invalid github base url: %w", err))
	}
	target := parsed.ResolveReference(&url.URL{Path: path, RawQuery: rawQuery})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, engine.Permanent(err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if token := strings.TrimSpace(f.Token); token != "" {
		req.Header.Set("Authorization", "token "+token)
	}

	return f.httpClient().Do(req)
}
