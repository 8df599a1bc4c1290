package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowbase-labs/knowbase-cli/internal/adapters/driven/storage/memory"
	"github.com/knowbase-labs/knowbase-cli/internal/adapters/driven/vector/flat"
	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
	"github.com/knowbase-labs/knowbase-cli/internal/core/ports/driven"
)

// retrievalFixture wires a store and index with three documents whose
// vectors sit at increasing distance from the query vector {0, 0}.
func retrievalFixture(t *testing.T) (*RetrievalService, *memory.DocumentStore) {
	t.Helper()

	store := memory.NewDocumentStore()
	index := flat.New(2)
	ctx := context.Background()

	docs := []struct {
		doc domain.Document
		vec []float32
	}{
		{jiraDoc("PROJ-1", "API Guide", "How to use the API"), []float32{0.1, 0}},
		{jiraDoc("PROJ-2", "Login Bug", "Broken login flow"), []float32{0.5, 0}},
		{jiraDoc("PROJ-3", "Old Notes", "Stale content"), []float32{1, 0}},
	}
	for _, d := range docs {
		require.NoError(t, store.SaveDocument(ctx, &d.doc))
		chunk := domain.Chunk{ID: d.doc.DocID + "-c0", DocID: d.doc.DocID, Text: d.doc.Content}
		require.NoError(t, store.ReplaceChunks(ctx, d.doc.DocID, []domain.Chunk{chunk}))
		_, err := index.Add(ctx, [][]float32{d.vec}, []driven.VectorMeta{
			{ChunkID: chunk.ID, DocID: d.doc.DocID, Preview: d.doc.Content},
		})
		require.NoError(t, err)
	}

	embed := &mockEmbeddingClient{
		dims:      2,
		vectorFor: func(string) []float32 { return []float32{0, 0} },
	}
	return NewRetrievalService(store, index, NewEmbeddingGateway(embed)), store
}

func TestSearchReturnsAtMostTopKSortedDescending(t *testing.T) {
	svc, _ := retrievalFixture(t)

	results, err := svc.Search(context.Background(), "api", domain.SearchOptions{TopK: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "jira-PROJ-1", results[0].DocID)
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)
}

func TestSearchEmptyQueryReturnsEmpty(t *testing.T) {
	svc, _ := retrievalFixture(t)
	results, err := svc.Search(context.Background(), "   ", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchEmptyIndexReturnsEmpty(t *testing.T) {
	store := memory.NewDocumentStore()
	index := flat.New(2)
	embed := &mockEmbeddingClient{dims: 2}
	svc := NewRetrievalService(store, index, NewEmbeddingGateway(embed))

	results, err := svc.Search(context.Background(), "anything", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchExcludesSoftDeletedDocuments(t *testing.T) {
	svc, store := retrievalFixture(t)
	ctx := context.Background()

	doc, err := store.GetDocument(ctx, "jira-PROJ-1")
	require.NoError(t, err)
	doc.Deleted = true
	require.NoError(t, store.SaveDocument(ctx, doc))

	results, err := svc.Search(ctx, "api", domain.SearchOptions{TopK: 5})
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "jira-PROJ-1", r.DocID)
	}
}

func TestSearchAppliesDocTypeFilter(t *testing.T) {
	svc, _ := retrievalFixture(t)
	confluence := domain.DocTypeConfluence

	results, err := svc.Search(context.Background(), "api", domain.SearchOptions{
		TopK:    5,
		DocType: &confluence,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchAppliesScoreThreshold(t *testing.T) {
	svc, _ := retrievalFixture(t)

	// {1,0} has distance 1.0 and similarity 0.5; a 0.6 floor drops it.
	results, err := svc.Search(context.Background(), "api", domain.SearchOptions{
		TopK:           5,
		ScoreThreshold: 0.6,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Similarity, 0.6)
	}
}

func TestSearchPrefersStoredChunkText(t *testing.T) {
	store := memory.NewDocumentStore()
	index := flat.New(2)
	ctx := context.Background()

	doc := jiraDoc("PROJ-9", "Release Notes", "The full chunk text with every detail kept")
	require.NoError(t, store.SaveDocument(ctx, &doc))
	chunk := domain.Chunk{ID: "c9", DocID: doc.DocID, Text: doc.Content}
	require.NoError(t, store.ReplaceChunks(ctx, doc.DocID, []domain.Chunk{chunk}))
	_, err := index.Add(ctx, [][]float32{{0, 0}}, []driven.VectorMeta{
		{ChunkID: chunk.ID, DocID: doc.DocID, Preview: "The full chunk te"},
	})
	require.NoError(t, err)

	embed := &mockEmbeddingClient{dims: 2, vectorFor: func(string) []float32 { return []float32{0, 0} }}
	svc := NewRetrievalService(store, index, NewEmbeddingGateway(embed))

	results, err := svc.Search(ctx, "release", domain.SearchOptions{TopK: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, doc.Content, results[0].ChunkText)
}

func TestSearchFallsBackToPreviewWhenChunkGone(t *testing.T) {
	store := memory.NewDocumentStore()
	index := flat.New(2)
	ctx := context.Background()

	doc := jiraDoc("PROJ-9", "Release Notes", "The full chunk text with every detail kept")
	require.NoError(t, store.SaveDocument(ctx, &doc))
	_, err := index.Add(ctx, [][]float32{{0, 0}}, []driven.VectorMeta{
		{ChunkID: "gone", DocID: doc.DocID, Preview: "The full chunk te"},
	})
	require.NoError(t, err)

	embed := &mockEmbeddingClient{dims: 2, vectorFor: func(string) []float32 { return []float32{0, 0} }}
	svc := NewRetrievalService(store, index, NewEmbeddingGateway(embed))

	results, err := svc.Search(ctx, "release", domain.SearchOptions{TopK: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "The full chunk te", results[0].ChunkText)
}

func TestSearchSkipsHitsForMissingDocuments(t *testing.T) {
	store := memory.NewDocumentStore()
	index := flat.New(2)
	ctx := context.Background()

	// Vector with no backing document, as after a partial sync failure.
	_, err := index.Add(ctx, [][]float32{{0, 0}}, []driven.VectorMeta{
		{ChunkID: "orphan", DocID: "jira-GONE-1"},
	})
	require.NoError(t, err)

	embed := &mockEmbeddingClient{dims: 2, vectorFor: func(string) []float32 { return []float32{0, 0} }}
	svc := NewRetrievalService(store, index, NewEmbeddingGateway(embed))

	results, err := svc.Search(ctx, "anything", domain.SearchOptions{TopK: 5})
	require.NoError(t, err)
	assert.Empty(t, results)
}
