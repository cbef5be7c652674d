package aggregate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cohortlens/cohortlens/internal/core"
)

func sampleResults() []core.AggregateResult {
	return []core.AggregateResult{
		{
			EntityID:    "s001",
			Name:        "Ada",
			SolvedTotal: 150,
			Data: map[core.Platform]core.PlatformMetrics{
				core.PlatformLeetCode:   {Solved: 100},
				core.PlatformCodeforces: {Solved: 50, Rating: 1600},
				core.PlatformCodeChef:   {},
				core.PlatformGitHub:     {Repos: 10, MergedPRs: 5},
			},
		},
		{
			EntityID:    "s002",
			Name:        "Grace",
			SolvedTotal: 80,
			Error:       "codechef fetch fault: boom",
			Data: map[core.Platform]core.PlatformMetrics{
				core.PlatformLeetCode:   {Solved: 60},
				core.PlatformCodeforces: {Solved: 20},
				core.PlatformCodeChef:   {},
				core.PlatformGitHub:     {Repos: 30, MergedPRs: 1},
			},
		},
	}
}

func TestSummarize(t *testing.T) {
	summary := Summarize(sampleResults())

	require.Equal(t, 2, summary.Entities)
	require.Equal(t, 1, summary.Errors)
	require.Equal(t, 230, summary.SolvedTotal)
	require.Len(t, summary.Platforms, 4)

	byPlatform := make(map[core.Platform]PlatformSummary)
	for _, ps := range summary.Platforms {
		byPlatform[ps.Platform] = ps
	}

	leetcode := byPlatform[core.PlatformLeetCode]
	require.Equal(t, 160, leetcode.Total)
	require.InDelta(t, 80.0, leetcode.Average, 0.001)
	require.Equal(t, "s001", leetcode.TopEntity)
	require.Equal(t, "Ada", leetcode.TopName)
	require.Equal(t, 100, leetcode.TopValue)

	// GitHub ranks by repos plus merged PRs, so Grace's 31 beats Ada's 15.
	github := byPlatform[core.PlatformGitHub]
	require.Equal(t, 46, github.Total)
	require.Equal(t, "s002", github.TopEntity)
	require.Equal(t, 31, github.TopValue)

	// A platform nobody scored on has no top performer.
	codechef := byPlatform[core.PlatformCodeChef]
	require.Zero(t, codechef.Total)
	require.Empty(t, codechef.TopEntity)
}

func TestSummarizePlatformOrderIsStable(t *testing.T) {
	summary := Summarize(sampleResults())
	require.Equal(t, core.Platforms(), func() []core.Platform {
		platforms := make([]core.Platform, len(summary.Platforms))
		for i, ps := range summary.Platforms {
			platforms[i] = ps.Platform
		}
		return platforms
	}())
}

func TestSummarizeEmptyInput(t *testing.T) {
	summary := Summarize(nil)
	require.Zero(t, summary.Entities)
	require.Zero(t, summary.Errors)
	require.Zero(t, summary.SolvedTotal)
	require.Len(t, summary.Platforms, 4)
	for _, ps := range summary.Platforms {
		require.Zero(t, ps.Total)
		require.Zero(t, ps.Average)
	}
}
