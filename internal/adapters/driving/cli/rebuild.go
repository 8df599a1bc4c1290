package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the vector index from scratch",
	Long: `Discards the vector index and re-embeds every chunk of every live
document. Use after changing the embedding model or when the index file is
corrupt. This re-runs every embedding call and may take a while.`,
	RunE: runRebuild,
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

func runRebuild(cmd *cobra.Command, _ []string) error {
	if services.Indexer == nil {
		return errors.New("indexer not configured; run 'knowbase auth set' first")
	}

	cmd.Println("Rebuilding index...")
	stats, err := services.Indexer.RebuildIndex(cmd.Context())
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}
	cmd.Printf("Rebuilt: %d vector(s) removed, %d re-indexed, %d error(s).\n",
		stats.VectorsRemoved, stats.VectorsAdded, stats.Errors)
	return nil
}
