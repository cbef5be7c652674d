package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/cohortlens/cohortlens/internal/core"
	"github.com/cohortlens/cohortlens/internal/core/cache"
	"github.com/cohortlens/cohortlens/internal/core/engine"
	"github.com/cohortlens/cohortlens/internal/metrics"
)

const codeforcesDefaultBaseURL = "https://codeforces.com/api"

var codeforcesHandlePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,24}$`)

// CodeforcesFetcher counts distinct solved problems from the submission
// feed. It is the one credentialed platform: the identity must carry the
// handle, the numeric user id, and an API key, otherwise the fetch
// short-circuits to zero without a call. Contest rating comes from a
// secondary user.info call that is allowed to fail on its own.
type CodeforcesFetcher struct {
	Deps
	BaseURL string
}

// Platform returns the fetcher's platform.
func (f *CodeforcesFetcher) Platform() core.Platform {
	return core.PlatformCodeforces
}

// Fetch resolves the solved count and rating for a credentialed identity.
func (f *CodeforcesFetcher) Fetch(ctx context.Context, identity core.Identity) core.PlatformMetrics {
	if ctx == nil {
		ctx = context.Background()
	}
	handle := strings.TrimSpace(identity.Handle)
	if !codeforcesHandlePattern.MatchString(handle) ||
		identity.UserID <= 0 || strings.TrimSpace(identity.APIKey) == "" {
		return core.PlatformMetrics{}
	}

	key := cache.Key(core.PlatformCodeforces, handle)
	if hit := f.cachedMetrics(ctx, core.PlatformCodeforces, key); hit != nil {
		return *hit
	}

	started := f.now()
	var solved int
	err := f.retryer(core.PlatformCodeforces).Do(ctx, func(ctx context.Context) error {
		f.waitLimiter(ctx)
		fetched, err := f.fetchSolvedCount(ctx, identity)
		if err != nil {
			return err
		}
		solved = fetched
		return nil
	})
	if err != nil {
		f.recordFetch(core.PlatformCodeforces, classifyFailure(err), started)
		return core.PlatformMetrics{}
	}

	value := core.PlatformMetrics{Solved: solved}

	// Rating is informational; a failed user.info call leaves it at zero.
	err = f.retryer(core.PlatformCodeforces).Do(ctx, func(ctx context.Context) error {
		f.waitLimiter(ctx)
		rating, err := f.fetchRating(ctx, identity)
		if err != nil {
			return err
		}
		value.Rating = rating
		return nil
	})
	if err != nil {
		value.Rating = 0
	}

	value.Provenance = f.provenance()
	f.storeMetrics(ctx, key, value)
	f.recordFetch(core.PlatformCodeforces, metrics.StatusClassOK, started)
	return value
}

func (f *CodeforcesFetcher) fetchSolvedCount(ctx context.Context, identity core.Identity) (int, error) {
	resp, err := f.get(ctx, "user.status", identity)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if err := codeforcesStatusError(resp.StatusCode); err != nil {
		return 0, err
	}

	var payload struct {
		Status string `json:"status"`
		Result []struct {
			Verdict string `json:"verdict"`
			Problem struct {
				ContestID int    `json:"contestId"`
				Index     string `json:"index"`
			} `json:"problem"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, engine.Permanent(fmt.Errorf("decode codeforces submissions: %w", err))
	}
	if payload.Status != "OK" {
		return 0, engine.Permanent(fmt.Errorf("codeforces status %q", payload.Status))
	}

	seen := make(map[string]struct{}, len(payload.Result))
	for _, submission := range payload.Result {
		if submission.Verdict != "OK" {
			continue
		}
		id := strconv.Itoa(submission.Problem.ContestID) + submission.Problem.Index
		seen[id] = struct{}{}
	}
	return len(seen), nil
}

func (f *CodeforcesFetcher) fetchRating(ctx context.Context, identity core.Identity) (int, error) {
	resp, err := f.get(ctx, "user.info", identity)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if err := codeforcesStatusError(resp.StatusCode); err != nil {
		return 0, err
	}

	var payload struct {
		Status string `json:"status"`
		Result []struct {
			Rating int `json:"rating"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, engine.Permanent(fmt.Errorf("decode codeforces user: %w", err))
	}
	if payload.Status != "OK" || len(payload.Result) == 0 {
		return 0, engine.Permanent(fmt.Errorf("codeforces user %q not found", identity.Handle))
	}
	return payload.Result[0].Rating, nil
}

func (f *CodeforcesFetcher) get(ctx context.Context, method string, identity core.Identity) (*http.Response, error) {
	baseURL := f.BaseURL
	if baseURL == "" {
		baseURL = codeforcesDefaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, engine.Permanent(fmt.Errorf("invalid codeforces base url: %w", err))
	}

	query := url.Values{}
	query.Set("handle", identity.Handle)
	query.Set("userId", strconv.Itoa(identity.UserID))
	query.Set("apiKey", identity.APIKey)
	target := parsed.JoinPath(method)
	target.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, engine.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	return f.httpClient().Do(req)
}

func codeforcesStatusError(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case transientStatus(code):
		return fmt.Errorf("codeforces responded %d", code)
	default:
		return engine.Permanent(fmt.Errorf("codeforces responded %d", code))
	}
}
