package fetcher

import (
	"context"
	"fmt"
	"io"
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

const (
	codechefDefaultBaseURL = "https://www.codechef.com"

	// Profile pages smaller than this are login redirects or error shells,
	// not real content.
	codechefMinBodySize = 512

	codechefMaxBodySize = 2 << 20
)

var (
	codechefHandlePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{2,19}$`)

	// Primary extraction: the "Fully Solved" heading with its count.
	codechefSolvedPattern = regexp.MustCompile(`(?i)fully\s+solved[^0-9]{0,60}(\d+)`)

	// Fallback: the problems-solved section heading used by older page
	// layouts. Best effort; no match means zero, never a guess.
	codechefFallbackPattern = regexp.MustCompile(`(?i)total\s+problems\s+solved:\s*(\d+)`)

	codechefErrorMarkers = []string{"page not found", "session limit exceeded", "login to continue"}
)

// CodeChefFetcher scrapes the solved-problem count from a public profile
// page. The page is validated before extraction: a too-small body or one
// carrying a login/error marker is treated as "nothing found", and an
// ambiguous extraction yields zero rather than a guess.
type CodeChefFetcher struct {
	Deps
	BaseURL string
}

// Platform returns the fetcher's platform.
func (f *CodeChefFetcher) Platform() core.Platform {
	return core.PlatformCodeChef
}

// Fetch resolves the solved count for a username.
func (f *CodeChefFetcher) Fetch(ctx context.Context, identity core.Identity) core.PlatformMetrics {
	if ctx == nil {
		ctx = context.Background()
	}
	handle := strings.ToLower(strings.TrimSpace(identity.Handle))
	if !codechefHandlePattern.MatchString(handle) {
		return core.PlatformMetrics{}
	}

	key := cache.Key(core.PlatformCodeChef, handle)
	if hit := f.cachedMetrics(ctx, core.PlatformCodeChef, key); hit != nil {
		return *hit
	}

	started := f.now()
	var solved int
	err := f.retryer(core.PlatformCodeChef).Do(ctx, func(ctx context.Context) error {
		f.waitLimiter(ctx)
		fetched, err := f.fetchOnce(ctx, handle)
		if err != nil {
			return err
		}
		solved = fetched
		return nil
	})
	if err != nil {
		f.recordFetch(core.PlatformCodeChef, classifyFailure(err), started)
		return core.PlatformMetrics{}
	}

	value := core.PlatformMetrics{Solved: solved}
	value.Provenance = f.provenance()
	f.storeMetrics(ctx, key, value)
	f.recordFetch(core.PlatformCodeChef, metrics.StatusClassOK, started)
	return value
}

func (f *CodeChefFetcher) fetchOnce(ctx context.Context, handle string) (int, error) {
	baseURL := f.BaseURL
	if baseURL == "" {
		baseURL = codechefDefaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return 0, engine.Permanent(fmt.Errorf("invalid codechef base url: %w", err))
	}
	target := parsed.ResolveReference(&url.URL{Path: "/users/" + url.PathEscape(handle)})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return 0, engine.Permanent(err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := f.httpClient().Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return 0, engine.Permanent(fmt.Errorf("codechef user %q not found", handle))
	case transientStatus(resp.StatusCode):
		return 0, fmt.Errorf("codechef responded %d", resp.StatusCode)
	default:
		return 0, engine.Permanent(fmt.Errorf("codechef responded %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, codechefMaxBodySize))
	if err != nil {
		return 0, err
	}

	if err := validateProfilePage(body); err != nil {
		return 0, err
	}
	return extractSolvedCount(body), nil
}

// validateProfilePage rejects responses that are not a real profile page.
func validateProfilePage(body []byte) error {
	if len(body) < codechefMinBodySize {
		return engine.Permanent(fmt.Errorf("codechef page too small (%d bytes)", len(body)))
	}
	lowered := strings.ToLower(string(body))
	for _, marker := range codechefErrorMarkers {
		if strings.Contains(lowered, marker) {
			return engine.Permanent(fmt.Errorf("codechef page carries error marker %q", marker))
		}
	}
	return nil
}

// extractSolvedCount pulls the solved count out of the page markup. An
// ambiguous page, where no pattern matches confidently, yields zero.
func extractSolvedCount(body []byte) int {
	for _, pattern := range []*regexp.Regexp{codechefSolvedPattern, codechefFallbackPattern} {
		if match := pattern.FindSubmatch(body); match != nil {
			if count, err := strconv.Atoi(string(match[1])); err == nil {
				return count
			}
		}
	}
	return 0
}
