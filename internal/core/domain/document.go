package domain

import (
	"fmt"
	"time"
)

// DocumentType identifies the source system a document came from.
type DocumentType string

// Supported document types.
const (
	DocTypeJira       DocumentType = "jira"
	DocTypeConfluence DocumentType = "confluence"
)

// Valid reports whether the document type is a known source system.
func (t DocumentType) Valid() bool {
	return t == DocTypeJira || t == DocTypeConfluence
}

// DocID builds the natural key for a document: "<source>-<native id>".
// The key identifies one logical document across its whole lifetime.
func DocID(t DocumentType, nativeID string) string {
	return fmt.Sprintf("%s-%s", t, nativeID)
}

// Document is the canonical representation of a synced Jira issue or
// Confluence page. Documents are upserted by DocID and soft-deleted rather
// than removed, so chat history citations stay resolvable.
type Document struct {
	// DocID is the natural key, e.g. "jira-PROJ-123" or "confluence-98304".
	DocID string

	// Type is the source system.
	Type DocumentType

	// Title is the issue summary or page title.
	Title string

	// URL is the browse link in the source system.
	URL string

	// Content is the full plain-text content (description plus comments for
	// Jira, stripped body for Confluence).
	Content string

	// Author is the reporter or page creator.
	Author string

	// CreatedAt and UpdatedAt come from the source system.
	CreatedAt time.Time
	UpdatedAt time.Time

	// LastSyncedAt is when this row was last written by a sync run.
	LastSyncedAt time.Time

	// Deleted marks a document that vanished from the source system.
	// The row is retained.
	Deleted bool

	// Metadata holds source-specific fields (issue status, space key, ...).
	Metadata map[string]any
}

// Chunk is a bounded, overlapping slice of a document's content. Chunks are
// the unit that gets embedded and indexed; they are destroyed and regenerated
// wholesale whenever the parent document's content changes.
type Chunk struct {
	// ID is the unique chunk identifier.
	ID string

	// DocID links to the parent document's natural key.
	DocID string

	// Index is the ordinal position within the document, contiguous from 0.
	Index int

	// Text is the chunk content.
	Text string

	// VectorOrdinal is the chunk's position in the flat vector index, or nil
	// while the chunk is still pending embedding.
	VectorOrdinal *int
}

// Pending reports whether the chunk still needs to be embedded and indexed.
func (c *Chunk) Pending() bool {
	return c.VectorOrdinal == nil
}
