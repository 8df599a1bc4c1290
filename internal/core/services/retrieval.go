package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/knowbase-labs/knowbase-cli/internal/chunker"
	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
	"github.com/knowbase-labs/knowbase-cli/internal/core/ports/driven"
	"github.com/knowbase-labs/knowbase-cli/internal/logger"
)

// Retrieval defaults.
const (
	// DefaultTopK is the number of results returned when the caller does
	// not specify one.
	DefaultTopK = 5

	// overfetchFactor is how many extra candidates to pull from the vector
	// index to survive post-search filtering.
	overfetchFactor = 3

	// contentPreviewChars bounds the document content carried on each
	// result.
	contentPreviewChars = 800
)

// RetrievalService turns a query string into ranked, filtered search
// results joined back to their documents.
type RetrievalService struct {
	docStore  driven.DocumentStore
	index     driven.VectorIndex
	embedding *EmbeddingGateway
}

// NewRetrievalService creates a retrieval service.
func NewRetrievalService(
	docStore driven.DocumentStore,
	index driven.VectorIndex,
	embedding *EmbeddingGateway,
) *RetrievalService {
	return &RetrievalService{
		docStore:  docStore,
		index:     index,
		embedding: embedding,
	}
}

// Search embeds the query, runs a similarity search with overfetch, and
// joins the hits to their documents, applying the option filters. Results
// come back best first, at most opts.TopK of them. An empty index yields
// an empty slice.
func (s *RetrievalService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SearchResult{}, nil
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	vector, err := s.embedding.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// Pull extra candidates so that filtering and deleted-document drops
	// still leave topK results where possible.
	hits, err := s.index.Search(ctx, vector, topK*overfetchFactor, opts.ScoreThreshold)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	logger.Debug("Vector search: %d hits for top_k=%d", len(hits), topK)

	results := make([]domain.SearchResult, 0, topK)
	for _, hit := range hits {
		doc, err := s.docStore.GetDocument(ctx, hit.Meta.DocID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("get document %s: %w", hit.Meta.DocID, err)
		}
		if !s.matches(doc, opts) {
			continue
		}

		// Prefer the stored chunk's full text; the vector-side preview is a
		// truncated copy kept for when the chunk row is gone.
		chunkText := hit.Meta.Preview
		if chunk, err := s.docStore.GetChunk(ctx, hit.Meta.ChunkID); err == nil {
			chunkText = chunk.Text
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("get chunk %s: %w", hit.Meta.ChunkID, err)
		}

		updatedAt := doc.UpdatedAt
		results = append(results, domain.SearchResult{
			DocID:      doc.DocID,
			DocType:    doc.Type,
			Title:      doc.Title,
			URL:        doc.URL,
			Content:    preview(doc.Content, contentPreviewChars),
			ChunkText:  chunkText,
			Similarity: hit.Similarity,
			Distance:   hit.Distance,
			Author:     doc.Author,
			UpdatedAt:  &updatedAt,
		})
		if len(results) == topK {
			break
		}
	}

	logger.Debug("Retrieval: %d results after filtering", len(results))
	return results, nil
}

// matches applies the document-level filters from the search options.
func (s *RetrievalService) matches(doc *domain.Document, opts domain.SearchOptions) bool {
	if doc.Deleted && !opts.IncludeDeleted {
		return false
	}
	if opts.DocType != nil && doc.Type != *opts.DocType {
		return false
	}
	if opts.DateFrom != nil && doc.UpdatedAt.Before(*opts.DateFrom) {
		return false
	}
	if opts.DateTo != nil && doc.UpdatedAt.After(*opts.DateTo) {
		return false
	}
	return true
}

// preview truncates text to at most n bytes on a rune boundary.
func preview(text string, n int) string {
	return chunker.Truncate(text, n)
}
