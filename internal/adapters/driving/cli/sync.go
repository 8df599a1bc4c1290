package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
)

var (
	syncFull            bool
	syncDetectDeletions bool
)

var syncCmd = &cobra.Command{
	Use:   "sync [source]",
	Short: "Synchronise documents from Jira and Confluence",
	Long: `Pulls documents updated since the last successful sync into the local
store. Source may be "jira", "confluence" or "all" (the default).

Use --full to ignore the watermark and fetch everything, and
--detect-deletions to also soft-delete documents that no longer exist
upstream.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncFull, "full", false, "ignore the watermark and fetch all documents")
	syncCmd.Flags().BoolVar(&syncDetectDeletions, "detect-deletions", false, "soft-delete documents removed upstream")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if services.Sync == nil {
		return errors.New("sync not configured; run 'knowbase auth set' first")
	}

	source := domain.SyncAll
	if len(args) > 0 {
		source = domain.SyncSource(args[0])
		if !source.Valid() {
			return fmt.Errorf("unknown source %q (expected jira, confluence or all)", args[0])
		}
	}

	cmd.Printf("Synchronising %s...\n", source)
	stats, err := services.Sync.Sync(cmd.Context(), source, syncFull)
	printSyncStats(cmd, stats)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if syncDetectDeletions {
		cmd.Println("Detecting deletions...")
		delStats, err := services.Sync.DetectDeletions(cmd.Context(), source)
		if err != nil {
			return fmt.Errorf("deletion detection failed: %w", err)
		}
		cmd.Printf("  %d document(s) marked deleted\n", delStats.Deleted)
	}

	cmd.Println("Done.")
	return nil
}

func printSyncStats(cmd *cobra.Command, stats domain.SyncStats) {
	cmd.Printf("  added %d, updated %d, skipped %d, errors %d\n",
		stats.Added, stats.Updated, stats.Skipped, stats.Errors)
}
