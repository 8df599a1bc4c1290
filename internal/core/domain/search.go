package domain

import "time"

// SearchOptions configures a retrieval query.
type SearchOptions struct {
	// TopK is the maximum number of results to return.
	TopK int

	// ScoreThreshold drops hits whose similarity falls below it. Zero means
	// no threshold.
	ScoreThreshold float64

	// DocType restricts results to one source system, or nil.
	DocType *DocumentType

	// DateFrom and DateTo bound the document update time. Nil means
	// unbounded on that side.
	DateFrom *time.Time
	DateTo   *time.Time

	// IncludeDeleted includes soft-deleted documents. Off by default.
	IncludeDeleted bool
}

// SearchResult is one ranked retrieval hit, joined back to its document.
type SearchResult struct {
	// DocID is the document's natural key.
	DocID string

	// DocType is the source system.
	DocType DocumentType

	// Title and URL come from the matched document.
	Title string
	URL   string

	// Content is a truncated preview of the document content.
	Content string

	// ChunkText is the text of the matched chunk.
	ChunkText string

	// Similarity is 1/(1+distance), in (0, 1].
	Similarity float64

	// Distance is the raw squared L2 distance from the index.
	Distance float32

	// Author and UpdatedAt come from the matched document.
	Author    string
	UpdatedAt *time.Time
}

// Source is a citation attached to a generated answer.
type Source struct {
	DocID   string
	DocType DocumentType
	Title   string
	URL     string
}
