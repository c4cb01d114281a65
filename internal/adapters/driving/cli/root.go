// Package cli provides the command-line interface for docqa.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/logger"
)

// version is set by Execute from the build.
var version = "dev"

var (
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Ask questions about your documents",
	Long: `docqa builds a vector index from local documents (plain text, Markdown,
HTML, PDF and DOCX) and answers questions using the most relevant passages
as context for a language model.

Configuration is read from ~/.docqa/config.toml unless --config is given.
API keys come from the environment or a .env file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print pipeline trace output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (.toml, .yaml or .yml)")
}

// Execute runs the root command until ctx is cancelled.
// Command output goes to stdout and errors are returned to the caller.
func Execute(ctx context.Context, v string) error {
	if v != "" {
		version = v
	}
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}
