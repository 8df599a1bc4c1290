package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
	"github.com/knowbase-labs/knowbase-cli/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string][]domain.Chunk
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
	}
}

// GetDocument retrieves a document by its natural key.
func (s *DocumentStore) GetDocument(_ context.Context, docID string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[docID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// SaveDocument stores or updates a document by DocID.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.DocID] = *doc
	return nil
}

// ListDocIDs returns the natural keys of all documents of a type.
func (s *DocumentStore) ListDocIDs(_ context.Context, t domain.DocumentType, includeDeleted bool) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0)
	for id, doc := range s.documents {
		if doc.Type != t {
			continue
		}
		if doc.Deleted && !includeDeleted {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// CountDocuments returns the number of documents of a type.
func (s *DocumentStore) CountDocuments(ctx context.Context, t domain.DocumentType, includeDeleted bool) (int, error) {
	ids, err := s.ListDocIDs(ctx, t, includeDeleted)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// MarkDeleted soft-deletes the given documents.
func (s *DocumentStore) MarkDeleted(_ context.Context, docIDs []string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := 0
	for _, id := range docIDs {
		doc, ok := s.documents[id]
		if !ok || doc.Deleted {
			continue
		}
		doc.Deleted = true
		doc.LastSyncedAt = at
		s.documents[id] = doc
		changed++
	}
	return changed, nil
}

// ReplaceChunks deletes a document's chunks and stores the given ones.
func (s *DocumentStore) ReplaceChunks(_ context.Context, docID string, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]domain.Chunk, len(chunks))
	copy(copied, chunks)
	s.chunks[docID] = copied
	return nil
}

// GetChunk retrieves a chunk by ID.
func (s *DocumentStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, chunks := range s.chunks {
		for _, chunk := range chunks {
			if chunk.ID == id {
				return &chunk, nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

// ChunksForDocument returns a document's chunks ordered by chunk index.
func (s *DocumentStore) ChunksForDocument(_ context.Context, docID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := make([]domain.Chunk, len(s.chunks[docID]))
	copy(chunks, s.chunks[docID])
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return chunks, nil
}

// PendingChunks returns chunks of non-deleted documents without ordinals.
func (s *DocumentStore) PendingChunks(_ context.Context) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pending []domain.Chunk
	for docID, chunks := range s.chunks {
		doc, ok := s.documents[docID]
		if !ok || doc.Deleted {
			continue
		}
		for _, chunk := range chunks {
			if chunk.Pending() {
				pending = append(pending, chunk)
			}
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].DocID != pending[j].DocID {
			return pending[i].DocID < pending[j].DocID
		}
		return pending[i].Index < pending[j].Index
	})
	return pending, nil
}

// DeletedChunkOrdinals returns ordinals held by chunks of deleted documents.
func (s *DocumentStore) DeletedChunkOrdinals(_ context.Context) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ordinals []int
	for docID, chunks := range s.chunks {
		doc, ok := s.documents[docID]
		if !ok || !doc.Deleted {
			continue
		}
		for _, chunk := range chunks {
			if chunk.VectorOrdinal != nil {
				ordinals = append(ordinals, *chunk.VectorOrdinal)
			}
		}
	}
	sort.Ints(ordinals)
	return ordinals, nil
}

// SetChunkOrdinals assigns vector ordinals to chunks by ID.
func (s *DocumentStore) SetChunkOrdinals(_ context.Context, ordinals map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for docID, chunks := range s.chunks {
		for i := range chunks {
			if ord, ok := ordinals[chunks[i].ID]; ok {
				o := ord
				chunks[i].VectorOrdinal = &o
			}
		}
		s.chunks[docID] = chunks
	}
	return nil
}

// ClearAllOrdinals detaches every chunk from the vector index.
func (s *DocumentStore) ClearAllOrdinals(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for docID, chunks := range s.chunks {
		for i := range chunks {
			chunks[i].VectorOrdinal = nil
		}
		s.chunks[docID] = chunks
	}
	return nil
}
