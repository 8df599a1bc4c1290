package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var chunksCmd = &cobra.Command{
	Use:   "chunks",
	Short: "Chunk synced documents and update the vector index",
	Long: `Splits any unchunked documents into overlapping chunks, embeds every
pending chunk and appends it to the vector index. If soft-deleted documents
still occupy index slots, the index is rebuilt first.`,
	RunE: runChunks,
}

func init() {
	rootCmd.AddCommand(chunksCmd)
}

func runChunks(cmd *cobra.Command, _ []string) error {
	if services.Indexer == nil {
		return errors.New("indexer not configured; run 'knowbase auth set' first")
	}

	chunked, err := services.Indexer.ProcessChunks(cmd.Context())
	if err != nil {
		return fmt.Errorf("chunking failed: %w", err)
	}
	cmd.Printf("Chunked %d document(s).\n", chunked)

	stats, err := services.Indexer.UpdateIndex(cmd.Context())
	if err != nil {
		return fmt.Errorf("index update failed: %w", err)
	}
	cmd.Printf("Index: %d vector(s) added, %d removed, %d total, %d error(s).\n",
		stats.VectorsAdded, stats.VectorsRemoved, stats.TotalVectors, stats.Errors)
	return nil
}
