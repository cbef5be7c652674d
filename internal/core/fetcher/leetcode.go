package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"

	"github.com/cohortlens/cohortlens/internal/core"
	"github.com/cohortlens/cohortlens/internal/core/cache"
	"github.com/cohortlens/cohortlens/internal/core/engine"
	"github.com/cohortlens/cohortlens/internal/metrics"
)

const leetcodeDefaultBaseURL = "https://leetcode.com/graphql"

const leetcodeQuery = `query userSolved($username: String!) {
  matchedUser(username: $username) {
    submitStats { acSubmissionNum { difficulty count } }
  }
}`

var leetcodeHandlePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,40}$`)

// LeetCodeFetcher pulls per-difficulty solved counts from the LeetCode
// GraphQL endpoint.
type LeetCodeFetcher struct {
	Deps
	BaseURL string
}

// Platform returns the fetcher's platform.
func (f *LeetCodeFetcher) Platform() core.Platform {
	return core.PlatformLeetCode
}

// Fetch resolves the solved breakdown for a username. Failures degrade to
// zero metrics; only successfully normalized values are cached.
func (f *LeetCodeFetcher) Fetch(ctx context.Context, identity core.Identity) core.PlatformMetrics {
	if ctx == nil {
		ctx = context.Background()
	}
	if !leetcodeHandlePattern.MatchString(identity.Handle) {
		return core.PlatformMetrics{}
	}

	key := cache.Key(core.PlatformLeetCode, identity.Handle)
	if hit := f.cachedMetrics(ctx, core.PlatformLeetCode, key); hit != nil {
		return *hit
	}

	started := f.now()
	var value core.PlatformMetrics
	err := f.retryer(core.PlatformLeetCode).Do(ctx, func(ctx context.Context) error {
		f.waitLimiter(ctx)
		fetched, err := f.fetchOnce(ctx, identity.Handle)
		if err != nil {
			return err
		}
		value = fetched
		return nil
	})
	if err != nil {
		f.recordFetch(core.PlatformLeetCode, classifyFailure(err), started)
		return core.PlatformMetrics{}
	}

	value.Provenance = f.provenance()
	f.storeMetrics(ctx, key, value)
	f.recordFetch(core.PlatformLeetCode, metrics.StatusClassOK, started)
	return value
}

func (f *LeetCodeFetcher) fetchOnce(ctx context.Context, handle string) (core.PlatformMetrics, error) {
	payload, err := json.Marshal(map[string]any{
		"query":     leetcodeQuery,
		"variables": map[string]string{"username": handle},
	})
	if err != nil {
		return core.PlatformMetrics{}, engine.Permanent(err)
	}

	baseURL := f.BaseURL
	if baseURL == "" {
		baseURL = leetcodeDefaultBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL, bytes.NewReader(payload))
	if err != nil {
		return core.PlatformMetrics{}, engine.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient().Do(req)
	if err != nil {
		return core.PlatformMetrics{}, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("leetcode responded %d", resp.StatusCode)
		if transientStatus(resp.StatusCode) {
			return core.PlatformMetrics{}, err
		}
		return core.PlatformMetrics{}, engine.Permanent(err)
	}

	var body struct {
		Data struct {
			MatchedUser *struct {
				SubmitStats struct {
					AcSubmissionNum []struct {
						Difficulty string `json:"difficulty"`
						Count      int    `json:"count"`
					} `json:"acSubmissionNum"`
				} `json:"submitStats"`
			} `json:"matchedUser"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		// Bad data will not get better on retry.
		return core.PlatformMetrics{}, engine.Permanent(fmt.Errorf("decode leetcode response: %w", err))
	}
	if body.Data.MatchedUser == nil {
		return core.PlatformMetrics{}, engine.Permanent(fmt.Errorf("leetcode user %q not found", handle))
	}

	var value core.PlatformMetrics
	for _, bucket := range body.Data.MatchedUser.SubmitStats.AcSubmissionNum {
		switch bucket.Difficulty {
		case "All":
			value.Solved = bucket.Count
		case "Easy":
			value.Easy = bucket.Count
		case "Medium":
			value.Medium = bucket.Count
		case "Hard":
			value.Hard = bucket.Count
		}
	}
	return value, nil
}
