// Package flat provides an exact, in-memory vector index with flat
// storage. Every search scans every vector, which is fine at the corpus
// sizes a team knowledge base reaches; there is no approximate structure
// to maintain and no way to remove a single vector short of rebuilding.
package flat

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
	"github.com/knowbase-labs/knowbase-cli/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// metaSuffix names the sidecar file holding the metadata list.
const metaSuffix = ".meta"

// Index is a flat L2 index. Vectors are stored append-only; the ordinal
// of a vector is its append position and stays stable until Reset.
//
// dim is fixed at construction and never changes, so a reloader swapping
// the contents underneath live searches cannot change what a concurrent
// caller considers a valid query.
type Index struct {
	mu      sync.RWMutex
	dim     int
	vectors [][]float32
	metas   []driven.VectorMeta
}

// New creates an empty index for vectors of the given dimension.
func New(dim int) *Index {
	return &Index{dim: dim}
}

// Dimension returns the configured vector dimensionality.
func (x *Index) Dimension() int {
	return x.dim
}

// Len returns the number of stored vectors.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

// Add appends vectors with their paired metadata and returns the assigned
// ordinals.
func (x *Index) Add(_ context.Context, vectors [][]float32, metas []driven.VectorMeta) ([]int, error) {
	if len(vectors) != len(metas) {
		return nil, fmt.Errorf("%w: %d vectors, %d metadata records", domain.ErrInvalidInput, len(vectors), len(metas))
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	for _, v := range vectors {
		if len(v) != x.dim {
			return nil, fmt.Errorf("%w: got %d, index wants %d", domain.ErrDimensionMismatch, len(v), x.dim)
		}
	}
	ordinals := make([]int, len(vectors))
	for i, v := range vectors {
		ordinals[i] = len(x.vectors)
		x.vectors = append(x.vectors, v)
		x.metas = append(x.metas, metas[i])
	}
	return ordinals, nil
}

// Search returns the k nearest vectors by squared L2 distance, best
// first. A positive threshold drops hits whose similarity 1/(1+distance)
// falls below it. An empty index yields an empty slice.
func (x *Index) Search(_ context.Context, query []float32, k int, threshold float64) ([]driven.VectorHit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: query has %d, index wants %d", domain.ErrDimensionMismatch, len(query), x.dim)
	}
	if k <= 0 {
		return []driven.VectorHit{}, nil
	}

	hits := make([]driven.VectorHit, 0, len(x.vectors))
	for ord, v := range x.vectors {
		dist := sqL2(query, v)
		sim := 1.0 / (1.0 + float64(dist))
		if threshold > 0 && sim < threshold {
			continue
		}
		hits = append(hits, driven.VectorHit{
			Ordinal:    ord,
			Distance:   dist,
			Similarity: sim,
			Meta:       x.metas[ord],
		})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Reset discards all vectors and metadata, keeping the dimension.
func (x *Index) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.vectors = nil
	x.metas = nil
}

// persistedVectors is the gob payload of the vector file.
type persistedVectors struct {
	Dim     int
	Vectors [][]float32
}

// persistedMetas is the gob payload of the metadata sidecar. Count is
// duplicated so a mismatched pair is detectable at load time.
type persistedMetas struct {
	Count int
	Metas []driven.VectorMeta
}

// Save writes the vector file at path and the metadata sidecar at
// path + ".meta". Both writes go through a temp file and rename so a
// crash never leaves a half-written file behind.
func (x *Index) Save(path string) error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if err := writeGob(path, persistedVectors{Dim: x.dim, Vectors: x.vectors}); err != nil {
		return fmt.Errorf("save vectors: %w", err)
	}
	if err := writeGob(path+metaSuffix, persistedMetas{Count: len(x.vectors), Metas: x.metas}); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	return nil
}

// Load replaces the index contents with a previously saved pair. A
// missing sidecar or a count disagreement between the files is
// domain.ErrIndexCorrupt; a pair built for a different dimension is
// domain.ErrDimensionMismatch and leaves the index untouched, so an
// embedding model change surfaces at load time rather than failing every
// later search.
func (x *Index) Load(path string) error {
	var vecs persistedVectors
	if err := readGob(path, &vecs); err != nil {
		return fmt.Errorf("load vectors: %w", err)
	}

	var metas persistedMetas
	if err := readGob(path+metaSuffix, &metas); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: metadata file missing for %s", domain.ErrIndexCorrupt, path)
		}
		return fmt.Errorf("load metadata: %w", err)
	}

	if metas.Count != len(vecs.Vectors) || len(metas.Metas) != len(vecs.Vectors) {
		return fmt.Errorf("%w: %d vectors but %d metadata records",
			domain.ErrIndexCorrupt, len(vecs.Vectors), len(metas.Metas))
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if vecs.Dim != x.dim {
		return fmt.Errorf("%w: saved index has dimension %d, this index wants %d",
			domain.ErrDimensionMismatch, vecs.Dim, x.dim)
	}
	x.vectors = vecs.Vectors
	x.metas = metas.Metas
	return nil
}

// sqL2 computes the squared L2 distance between two vectors.
func sqL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func writeGob(path string, payload any) error {
	// Same directory as the target so the rename stays on one filesystem.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".knowbase-index-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func readGob(path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(out)
}
