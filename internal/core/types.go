package core

import "time"

// Platform identifies one external activity data source.
type Platform string

const (
	PlatformLeetCode   Platform = "leetcode"
	PlatformCodeforces Platform = "codeforces"
	PlatformCodeChef   Platform = "codechef"
	PlatformGitHub     Platform = "github"
)

// Platforms returns every supported platform in display order.
func Platforms() []Platform {
	return []Platform{PlatformLeetCode, PlatformCodeforces, PlatformCodeChef, PlatformGitHub}
}

// CountsTowardSolvedTotal reports whether the platform's solved counter is
// part of an entity's combined solved total. GitHub tracks repositories and
// pull requests, not solved problems, so it is excluded.
func (p Platform) CountsTowardSolvedTotal() bool {
	switch p {
	case PlatformLeetCode, PlatformCodeforces, PlatformCodeChef:
		return true
	default:
		return false
	}
}

// Identity carries the credentials needed to look an entity up on one
// platform. Most platforms only use Handle; Codeforces additionally needs
// the numeric user id and an API key.
type Identity struct {
	Handle string `json:"handle" yaml:"handle"`
	UserID int    `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// Entity is one member of the cohort being measured. Immutable once loaded.
type Entity struct {
	ID      string                `json:"id" yaml:"id"`
	Name    string                `json:"name" yaml:"name"`
	Handles map[Platform]Identity `json:"handles" yaml:"handles"`
}

// Identity returns the entity's identity on a platform, if one is configured.
func (e Entity) Identity(platform Platform) (Identity, bool) {
	id, ok := e.Handles[platform]
	return id, ok
}

// Provenance captures how a platform fetch was resolved.
type Provenance struct {
	FetchID   string    `json:"fetch_id,omitempty"`
	FetchedAt time.Time `json:"fetched_at,omitzero"`
	FromCache bool      `json:"from_cache,omitempty"`
}

// PlatformMetrics holds one platform's normalized activity numbers. Which
// fields are populated depends on the platform; the zero value is the
// "nothing found" default substituted whenever a fetch fails or cannot be
// confidently parsed.
type PlatformMetrics struct {
	Solved     int        `json:"solved"`
	Easy       int        `json:"easy,omitempty"`
	Medium     int        `json:"medium,omitempty"`
	Hard       int        `json:"hard,omitempty"`
	Rating     int        `json:"rating,omitempty"`
	Repos      int        `json:"repos,omitempty"`
	MergedPRs  int        `json:"merged_prs,omitempty"`
	Provenance Provenance `json:"provenance,omitzero"`
}

// IsZero reports whether no metric field is populated.
func (m PlatformMetrics) IsZero() bool {
	return m.Solved == 0 && m.Easy == 0 && m.Medium == 0 && m.Hard == 0 &&
		m.Rating == 0 && m.Repos == 0 && m.MergedPRs == 0
}

// AggregateResult is the merged record for one entity. Exactly one is
// emitted per entity regardless of how many platform fetches failed, and
// Data always carries every platform key.
type AggregateResult struct {
	EntityID     string                       `json:"entity_id"`
	Name         string                       `json:"name"`
	Data         map[Platform]PlatformMetrics `json:"data"`
	SolvedTotal  int                          `json:"solved_total"`
	ProcessingMs int64                        `json:"processing_ms"`
	CompletedAt  time.Time                    `json:"completed_at"`
	Error        string                       `json:"error,omitempty"`
}
