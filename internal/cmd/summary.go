package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cohortlens/cohortlens/internal/core/aggregate"
	"github.com/cohortlens/cohortlens/internal/output"
)

var summaryCmd = &cobra.Command{
	Use:   "summary [results-file]",
	Short: "Summarize a previously written results file",
	Long: `Re-render the per-platform roll-up from a results snapshot without
re-fetching anything. Defaults to the configured output path.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)

	summaryCmd.Flags().String("format", "table", "rendering: table, json")
	summaryCmd.Flags().Bool("full", false, "also print the per-entity results table")
}

func runSummary(cmd *cobra.Command, args []string) error {
	formatValue, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(formatValue)
	if err != nil {
		return err
	}

	full, err := cmd.Flags().GetBool("full")
	if err != nil {
		return err
	}

	path := ""
	if len(args) == 1 {
		path = strings.TrimSpace(args[0])
	}
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path = cfg.Output.Path
	}

	results, err := output.ReadSnapshot(path)
	if err != nil {
		return err
	}

	if format == output.FormatJSON {
		rendered, err := output.FormatResultsJSON(results)
		if err != nil {
			return err
		}
		fmt.Println(rendered)
		return nil
	}

	if full {
		fmt.Println(output.FormatResultsTable(results))
	}
	fmt.Println(output.FormatSummaryTable(aggregate.Summarize(results)))
	return nil
}
