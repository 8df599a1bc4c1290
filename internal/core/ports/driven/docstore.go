package driven

import (
	"context"
	"time"

	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
)

// DocumentStore persists documents and their chunks.
// Backed by SQLite for metadata storage.
type DocumentStore interface {
	// GetDocument retrieves a document by its natural key.
	// Returns domain.ErrNotFound if no row exists.
	GetDocument(ctx context.Context, docID string) (*domain.Document, error)

	// SaveDocument inserts or updates a document by DocID.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// ListDocIDs returns the natural keys of all documents of a type.
	// Soft-deleted documents are excluded unless includeDeleted is set.
	ListDocIDs(ctx context.Context, t domain.DocumentType, includeDeleted bool) ([]string, error)

	// CountDocuments returns the number of documents of a type.
	CountDocuments(ctx context.Context, t domain.DocumentType, includeDeleted bool) (int, error)

	// MarkDeleted soft-deletes the given documents in one bulk update and
	// stamps their last-synced time. Returns the number of rows changed.
	MarkDeleted(ctx context.Context, docIDs []string, at time.Time) (int, error)

	// ReplaceChunks deletes all existing chunks of a document and stores the
	// given ones. There is no partial chunk diffing.
	ReplaceChunks(ctx context.Context, docID string, chunks []domain.Chunk) error

	// GetChunk retrieves a chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// ChunksForDocument returns a document's chunks ordered by chunk index.
	ChunksForDocument(ctx context.Context, docID string) ([]domain.Chunk, error)

	// PendingChunks returns chunks of non-deleted documents that have no
	// vector ordinal yet, in stable order.
	PendingChunks(ctx context.Context) ([]domain.Chunk, error)

	// DeletedChunkOrdinals returns the vector ordinals still held by chunks
	// whose parent document is soft-deleted. A non-empty result means the
	// vector index needs a rebuild.
	DeletedChunkOrdinals(ctx context.Context) ([]int, error)

	// SetChunkOrdinals assigns vector ordinals to chunks by ID.
	SetChunkOrdinals(ctx context.Context, ordinals map[string]int) error

	// ClearAllOrdinals detaches every chunk from the vector index, making
	// all chunks of non-deleted documents pending again.
	ClearAllOrdinals(ctx context.Context) error
}
