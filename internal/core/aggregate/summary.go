// Package aggregate reduces an ordered result sequence into summary
// statistics and rankings. Pure and side-effect free.
package aggregate

import (
	"github.com/cohortlens/cohortlens/internal/core"
)

// PlatformSummary holds one platform's cohort-wide statistics.
type PlatformSummary struct {
	Platform  core.Platform `json:"platform"`
	Total     int           `json:"total"`
	Average   float64       `json:"average"`
	TopEntity string        `json:"top_entity,omitempty"`
	TopName   string        `json:"top_name,omitempty"`
	TopValue  int           `json:"top_value"`
}

// Summary is the derived roll-up over a full run.
type Summary struct {
	Entities    int               `json:"entities"`
	Errors      int               `json:"errors"`
	SolvedTotal int               `json:"solved_total"`
	Platforms   []PlatformSummary `json:"platforms"`
}

// Summarize computes per-platform totals, averages, and the top performer
// per platform from an already-materialized result sequence.
func Summarize(results []core.AggregateResult) Summary {
	summary := Summary{Entities: len(results)}

	perPlatform := make(map[core.Platform]*PlatformSummary, len(core.Platforms()))
	for _, platform := range core.Platforms() {
		perPlatform[platform] = &PlatformSummary{Platform: platform}
	}

	for _, result := range results {
		if result.Error != "" {
			summary.Errors++
		}
		summary.SolvedTotal += result.SolvedTotal

		for platform, m := range result.Data {
			ps, ok := perPlatform[platform]
			if !ok {
				ps = &PlatformSummary{Platform: platform}
				perPlatform[platform] = ps
			}
			value := headlineValue(platform, m)
			ps.Total += value
			if value > ps.TopValue {
				ps.TopValue = value
				ps.TopEntity = result.EntityID
				ps.TopName = result.Name
			}
		}
	}

	for _, platform := range core.Platforms() {
		ps := perPlatform[platform]
		if len(results) > 0 {
			ps.Average = float64(ps.Total) / float64(len(results))
		}
		summary.Platforms = append(summary.Platforms, *ps)
	}
	return summary
}

// headlineValue is the counter a platform is ranked by: solved problems
// where the platform tracks them, contribution volume for GitHub.
func headlineValue(platform core.Platform, m core.PlatformMetrics) int {
	if platform.CountsTowardSolvedTotal() {
		return m.Solved
	}
	return m.Repos + m.MergedPRs
}
