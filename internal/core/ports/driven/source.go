package driven

import (
	"context"
	"time"

	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
)

// SourceClient fetches documents from one source system (Jira or
// Confluence). Pagination and HTTP auth are the adapter's concern; the sync
// engine only sees canonical documents.
type SourceClient interface {
	// Type identifies which source system this client talks to.
	Type() domain.DocumentType

	// ItemsUpdatedSince returns all items changed at or after since,
	// formatted as canonical documents. A nil since means a full fetch.
	ItemsUpdatedSince(ctx context.Context, since *time.Time) ([]domain.Document, error)

	// AllIDs enumerates the natural keys of every item currently present in
	// the source system, unbounded by sync time. Used for deletion
	// detection.
	AllIDs(ctx context.Context) ([]string, error)

	// TestConnection validates credentials and connectivity.
	TestConnection(ctx context.Context) error
}
