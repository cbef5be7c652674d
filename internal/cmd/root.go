// Package cmd wires the CLI surface: collect runs the pipeline, summary and
// cache operate on its artifacts.
package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cohortlens/cohortlens/internal/config"
	"github.com/cohortlens/cohortlens/internal/observability"
)

var (
	cfgFile string
	verbose bool

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var rootCmd = &cobra.Command{
	Use:   "cohortlens",
	Short: "Collect and aggregate coding activity across platforms",
	Long: `cohortlens collects activity metrics (problems solved, repositories,
merged pull requests) for a roster of people across LeetCode, Codeforces,
CodeChef, and GitHub, and aggregates them into ranked summaries.

Use the subcommands to perform specific operations.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ./cohortlens.yaml and ./config/)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
}

// loadConfig resolves the effective configuration for a command invocation.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger builds the command logger honoring --verbose.
func newLogger() *zap.Logger {
	return observability.NewLogger(verbose)
}
