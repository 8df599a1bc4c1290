package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/knowbase-labs/knowbase-cli/internal/chunker"
	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
	"github.com/knowbase-labs/knowbase-cli/internal/core/ports/driven"
	"github.com/knowbase-labs/knowbase-cli/internal/core/ports/driving"
	"github.com/knowbase-labs/knowbase-cli/internal/logger"
)

// Ensure ChunkIndexer implements the interface.
var _ driving.IndexRunner = (*ChunkIndexer)(nil)

// metaPreviewChars bounds the chunk text copied into vector metadata.
const metaPreviewChars = 200

// ChunkIndexer maintains the vector index. Additions are cheap appends;
// the flat index has no removal, so any soft-deleted document still
// holding ordinals forces a full rebuild before new vectors go in.
type ChunkIndexer struct {
	docStore  driven.DocumentStore
	index     driven.VectorIndex
	embedding *EmbeddingGateway
	splitter  *chunker.Splitter
	newID     func() string

	indexPath string
	objStore  driven.ObjectStorage
}

// NewChunkIndexer creates an indexer. indexPath is where the index pair
// is persisted after every run.
func NewChunkIndexer(
	docStore driven.DocumentStore,
	index driven.VectorIndex,
	embedding *EmbeddingGateway,
	splitter *chunker.Splitter,
	newID func() string,
	indexPath string,
) *ChunkIndexer {
	return &ChunkIndexer{
		docStore:  docStore,
		index:     index,
		embedding: embedding,
		splitter:  splitter,
		newID:     newID,
		indexPath: indexPath,
	}
}

// SetObjectStorage enables index upload after each successful save.
func (x *ChunkIndexer) SetObjectStorage(store driven.ObjectStorage) {
	x.objStore = store
}

// ProcessChunks re-chunks documents that have content but no chunks yet
// and returns how many documents were processed.
func (x *ChunkIndexer) ProcessChunks(ctx context.Context) (int, error) {
	processed := 0
	for _, t := range []domain.DocumentType{domain.DocTypeJira, domain.DocTypeConfluence} {
		ids, err := x.docStore.ListDocIDs(ctx, t, false)
		if err != nil {
			return processed, fmt.Errorf("list %s documents: %w", t, err)
		}
		for _, id := range ids {
			chunks, err := x.docStore.ChunksForDocument(ctx, id)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return processed, fmt.Errorf("chunks for %s: %w", id, err)
			}
			if len(chunks) > 0 {
				continue
			}

			doc, err := x.docStore.GetDocument(ctx, id)
			if err != nil {
				return processed, fmt.Errorf("get document %s: %w", id, err)
			}
			fresh := x.splitter.ChunksFor(*doc, x.newID)
			if len(fresh) == 0 {
				continue
			}
			if err := x.docStore.ReplaceChunks(ctx, id, fresh); err != nil {
				return processed, fmt.Errorf("replace chunks for %s: %w", id, err)
			}
			processed++
		}
	}
	logger.Info("Chunk processing: %d documents chunked", processed)
	return processed, nil
}

// UpdateIndex embeds pending chunks and appends them to the index. When
// soft-deleted documents still hold ordinals, the whole index is rebuilt
// first, since a flat index cannot remove entries in place.
func (x *ChunkIndexer) UpdateIndex(ctx context.Context) (domain.IndexStats, error) {
	logger.Section("Index Update")

	stale, err := x.docStore.DeletedChunkOrdinals(ctx)
	if err != nil {
		return domain.IndexStats{}, fmt.Errorf("check deleted ordinals: %w", err)
	}
	if len(stale) > 0 {
		logger.Info("Index holds %d vectors of deleted documents, rebuilding", len(stale))
		return x.RebuildIndex(ctx)
	}

	stats, err := x.indexPending(ctx)
	if err != nil {
		return stats, err
	}
	if err := x.persist(ctx); err != nil {
		return stats, err
	}
	return stats, nil
}

// RebuildIndex discards every vector and re-embeds all chunks of
// non-deleted documents from scratch.
func (x *ChunkIndexer) RebuildIndex(ctx context.Context) (domain.IndexStats, error) {
	logger.Section("Index Rebuild")

	removed := x.index.Len()
	x.index.Reset()
	if err := x.docStore.ClearAllOrdinals(ctx); err != nil {
		return domain.IndexStats{}, fmt.Errorf("clear ordinals: %w", err)
	}

	stats, err := x.indexPending(ctx)
	stats.VectorsRemoved = removed
	if err != nil {
		return stats, err
	}
	if err := x.persist(ctx); err != nil {
		return stats, err
	}
	logger.Info("Rebuild complete: %d vectors removed, %d added, %d total",
		stats.VectorsRemoved, stats.VectorsAdded, stats.TotalVectors)
	return stats, nil
}

// indexPending embeds all pending chunks in batches, appends them to the
// index and writes the assigned ordinals back to the store.
func (x *ChunkIndexer) indexPending(ctx context.Context) (domain.IndexStats, error) {
	stats := domain.IndexStats{TotalVectors: x.index.Len()}

	pending, err := x.docStore.PendingChunks(ctx)
	if err != nil {
		return stats, fmt.Errorf("list pending chunks: %w", err)
	}
	if len(pending) == 0 {
		logger.Debug("No pending chunks")
		return stats, nil
	}
	logger.Info("Embedding %d pending chunks", len(pending))

	for start := 0; start < len(pending); start += DefaultEmbedBatchSize {
		end := start + DefaultEmbedBatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		texts := make([]string, len(batch))
		metas := make([]driven.VectorMeta, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
			metas[i] = driven.VectorMeta{
				ChunkID: c.ID,
				DocID:   c.DocID,
				Preview: preview(c.Text, metaPreviewChars),
			}
		}

		vectors, err := x.embedding.EmbedBatch(ctx, texts)
		if err != nil {
			return stats, fmt.Errorf("embed batch: %w", err)
		}

		ordinals, err := x.index.Add(ctx, vectors, metas)
		if err != nil {
			return stats, fmt.Errorf("index add: %w", err)
		}

		assigned := make(map[string]int, len(batch))
		for i, c := range batch {
			assigned[c.ID] = ordinals[i]
		}
		if err := x.docStore.SetChunkOrdinals(ctx, assigned); err != nil {
			return stats, fmt.Errorf("set chunk ordinals: %w", err)
		}
		stats.VectorsAdded += len(batch)
	}

	stats.TotalVectors = x.index.Len()
	return stats, nil
}

// persist saves the index pair and uploads it when object storage is
// configured.
func (x *ChunkIndexer) persist(ctx context.Context) error {
	if x.indexPath == "" {
		return nil
	}
	if err := x.index.Save(x.indexPath); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	logger.Debug("Index saved to %s", x.indexPath)

	if x.objStore != nil {
		// Upload is durability, not correctness. Keep going on failure.
		for _, p := range []string{x.indexPath, x.indexPath + ".meta"} {
			if err := x.objStore.Upload(ctx, p, filepath.Base(p)); err != nil {
				logger.Warn("Index upload of %s failed: %v", filepath.Base(p), err)
			}
		}
	}
	return nil
}
