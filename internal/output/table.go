package output

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/cohortlens/cohortlens/internal/core"
	"github.com/cohortlens/cohortlens/internal/core/aggregate"
)

// FormatResultsTable renders one row per entity.
func FormatResultsTable(results []core.AggregateResult) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"ID", "Name", "LeetCode", "Codeforces", "CodeChef", "Repos", "Merged PRs", "Solved Total", "Notes"})

	for _, result := range results {
		github := result.Data[core.PlatformGitHub]
		t.AppendRow(table.Row{
			result.EntityID,
			result.Name,
			result.Data[core.PlatformLeetCode].Solved,
			result.Data[core.PlatformCodeforces].Solved,
			result.Data[core.PlatformCodeChef].Solved,
			github.Repos,
			github.MergedPRs,
			result.SolvedTotal,
			result.Error,
		})
	}
	return t.Render()
}

// FormatSummaryTable renders the per-platform roll-up.
func FormatSummaryTable(summary aggregate.Summary) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Platform", "Total", "Average", "Top Performer", "Top Value"})

	for _, ps := range summary.Platforms {
		top := ps.TopName
		if top == "" {
			top = "-"
		}
		t.AppendRow(table.Row{
			string(ps.Platform),
			ps.Total,
			fmt.Sprintf("%.1f", ps.Average),
			top,
			ps.TopValue,
		})
	}
	t.AppendFooter(table.Row{
		"",
		fmt.Sprintf("%d entities", summary.Entities),
		"",
		fmt.Sprintf("%d errors", summary.Errors),
		summary.SolvedTotal,
	})
	return t.Render()
}
