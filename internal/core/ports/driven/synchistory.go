package driven

import (
	"context"
	"time"

	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
)

// SyncHistoryStore persists one record per sync run attempt. The history is
// both an audit log and the watermark source for incremental fetches.
type SyncHistoryStore interface {
	// Begin creates a running record for a new sync attempt.
	Begin(ctx context.Context, source domain.SyncSource) (*domain.SyncRecord, error)

	// Complete finalises a record with its outcome. errText is empty on
	// success.
	Complete(ctx context.Context, id int64, status domain.SyncStatus, stats domain.SyncStats, errText string) error

	// LastSuccess returns the completion time of the most recent successful
	// run for a source, or nil if the source has never synced successfully.
	LastSuccess(ctx context.Context, source domain.SyncSource) (*time.Time, error)

	// Recent returns the latest records, newest first.
	Recent(ctx context.Context, limit int) ([]domain.SyncRecord, error)
}
