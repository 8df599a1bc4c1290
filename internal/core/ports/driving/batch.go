package driving

import (
	"context"

	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
)

// SyncRunner drives document synchronisation batch runs. Callers must not
// run two syncs for the same source concurrently; the engine assumes
// exclusive write access to the document store during a run.
type SyncRunner interface {
	// Sync runs an incremental sync for the given source ("all" covers both
	// systems). full forces a full fetch, ignoring the watermark.
	Sync(ctx context.Context, source domain.SyncSource, full bool) (domain.SyncStats, error)

	// DetectDeletions enumerates all current upstream IDs and soft-deletes
	// stored documents that no longer exist. Idempotent.
	DetectDeletions(ctx context.Context, source domain.SyncSource) (domain.SyncStats, error)
}

// IndexRunner drives chunking and vector index maintenance batch runs.
type IndexRunner interface {
	// ProcessChunks re-chunks documents whose chunks are missing or stale.
	ProcessChunks(ctx context.Context) (int, error)

	// UpdateIndex embeds pending chunks and appends them to the index,
	// rebuilding first when soft-deleted documents still occupy ordinals.
	UpdateIndex(ctx context.Context) (domain.IndexStats, error)

	// RebuildIndex discards the index and re-embeds every chunk of every
	// non-deleted document from scratch.
	RebuildIndex(ctx context.Context) (domain.IndexStats, error)
}
