// Package cli implements the knowbase command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/knowbase-labs/knowbase-cli/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "knowbase",
	Short: "Chat with your Jira and Confluence knowledge base",
	Long: `Knowbase synchronises Jira issues and Confluence pages into a local
document store, indexes them for semantic search, and answers questions
about them through a retrieval-augmented chat pipeline.

Typical workflow:
  knowbase auth set --provider openai     # configure credentials
  knowbase sync                           # pull documents
  knowbase chunks                         # chunk, embed and index them
  knowbase ask "how do I rotate the API keys?"`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion overrides the reported version string.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}
