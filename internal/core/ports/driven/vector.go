package driven

import "context"

// VectorMeta is the side-table record paired 1:1 with each stored vector.
type VectorMeta struct {
	// ChunkID is the chunk the vector was embedded from.
	ChunkID string

	// DocID is the parent document's natural key.
	DocID string

	// Preview is a truncated copy of the chunk text, kept so search hits can
	// show context without a store round-trip.
	Preview string
}

// VectorHit is one similarity search result.
type VectorHit struct {
	// Ordinal is the vector's append-order position in the index.
	Ordinal int

	// Distance is the squared L2 distance to the query vector.
	Distance float32

	// Similarity is 1/(1+distance), monotonic decreasing in distance.
	Similarity float64

	// Meta is the paired metadata record.
	Meta VectorMeta
}

// VectorIndex is a flat, exact similarity index. Ordinals are assigned
// append-only within one index lifetime; there is no in-place removal, so
// deleting entries means rebuilding from scratch (cheap append, expensive
// delete).
type VectorIndex interface {
	// Dimension returns the configured vector dimensionality.
	Dimension() int

	// Len returns the number of stored vectors.
	Len() int

	// Add appends vectors with their paired metadata and returns the
	// assigned ordinals. Vector and metadata counts must match, and every
	// vector must have the configured dimension.
	Add(ctx context.Context, vectors [][]float32, metas []VectorMeta) ([]int, error)

	// Search returns the k nearest vectors by squared L2 distance, best
	// first. A positive threshold drops hits whose similarity falls below
	// it. Searching an empty index returns an empty slice, not an error; a
	// query of the wrong dimension is an error.
	Search(ctx context.Context, query []float32, k int, threshold float64) ([]VectorHit, error)

	// Reset discards all vectors and metadata, keeping the dimension.
	Reset()

	// Save persists the vector structure at path and the metadata list at
	// the sibling path + ".meta". The two files are written together and
	// only valid as a pair.
	Save(path string) error

	// Load restores a previously saved pair. Count disagreement between the
	// two files is domain.ErrIndexCorrupt; a pair saved with a different
	// dimension is domain.ErrDimensionMismatch and leaves the index as it
	// was.
	Load(path string) error
}
