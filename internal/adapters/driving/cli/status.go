package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show document counts and recent sync history",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 5, "number of sync runs to show")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if services.Documents == nil || services.History == nil {
		return errors.New("storage not configured")
	}

	ctx := cmd.Context()

	cmd.Println("Documents:")
	for _, t := range []domain.DocumentType{domain.DocTypeJira, domain.DocTypeConfluence} {
		live, err := services.Documents.CountDocuments(ctx, t, false)
		if err != nil {
			return fmt.Errorf("counting %s documents: %w", t, err)
		}
		all, err := services.Documents.CountDocuments(ctx, t, true)
		if err != nil {
			return fmt.Errorf("counting %s documents: %w", t, err)
		}
		cmd.Printf("  %-10s %d live, %d deleted\n", t, live, all-live)
	}

	if services.Index != nil {
		cmd.Println()
		cmd.Printf("Index: %d vector(s), dimension %d\n",
			services.Index.Len(), services.Index.Dimension())
	}

	records, err := services.History.Recent(ctx, statusLimit)
	if err != nil {
		return fmt.Errorf("reading sync history: %w", err)
	}

	cmd.Println()
	cmd.Println("Recent syncs:")
	if len(records) == 0 {
		cmd.Println("  (none)")
		return nil
	}
	for _, rec := range records {
		line := fmt.Sprintf("  #%d %s %s started %s",
			rec.ID, rec.Source, rec.Status, rec.StartedAt.Format("2006-01-02 15:04"))
		if rec.Status != domain.SyncRunning {
			line += fmt.Sprintf(" (added %d, updated %d, deleted %d)",
				rec.Added, rec.Updated, rec.Deleted)
		}
		if rec.ErrorText != "" {
			line += " error: " + rec.ErrorText
		}
		cmd.Println(line)
	}
	return nil
}
