package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
)

func testDoc(nativeID string) domain.Document {
	return domain.Document{
		DocID:     domain.DocID(domain.DocTypeJira, nativeID),
		Type:      domain.DocTypeJira,
		Title:     "Doc " + nativeID,
		Content:   "content",
		UpdatedAt: time.Now(),
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	s := NewDocumentStore()
	_, err := s.GetDocument(context.Background(), "jira-NOPE")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSaveAndGetDocument(t *testing.T) {
	s := NewDocumentStore()
	ctx := context.Background()
	doc := testDoc("PROJ-1")
	require.NoError(t, s.SaveDocument(ctx, &doc))

	got, err := s.GetDocument(ctx, doc.DocID)
	require.NoError(t, err)
	assert.Equal(t, doc.Title, got.Title)
}

func TestListDocIDsExcludesDeletedByDefault(t *testing.T) {
	s := NewDocumentStore()
	ctx := context.Background()
	a := testDoc("PROJ-1")
	b := testDoc("PROJ-2")
	require.NoError(t, s.SaveDocument(ctx, &a))
	require.NoError(t, s.SaveDocument(ctx, &b))

	n, err := s.MarkDeleted(ctx, []string{b.DocID}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ids, err := s.ListDocIDs(ctx, domain.DocTypeJira, false)
	require.NoError(t, err)
	assert.Equal(t, []string{a.DocID}, ids)

	all, err := s.ListDocIDs(ctx, domain.DocTypeJira, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMarkDeletedAlreadyDeletedNotCounted(t *testing.T) {
	s := NewDocumentStore()
	ctx := context.Background()
	doc := testDoc("PROJ-1")
	require.NoError(t, s.SaveDocument(ctx, &doc))

	n, err := s.MarkDeleted(ctx, []string{doc.DocID}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.MarkDeleted(ctx, []string{doc.DocID}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestReplaceChunksAndOrdinalLifecycle(t *testing.T) {
	s := NewDocumentStore()
	ctx := context.Background()
	doc := testDoc("PROJ-1")
	require.NoError(t, s.SaveDocument(ctx, &doc))
	require.NoError(t, s.ReplaceChunks(ctx, doc.DocID, []domain.Chunk{
		{ID: "c1", DocID: doc.DocID, Index: 0, Text: "first"},
		{ID: "c2", DocID: doc.DocID, Index: 1, Text: "second"},
	}))

	pending, err := s.PendingChunks(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	require.NoError(t, s.SetChunkOrdinals(ctx, map[string]int{"c1": 0, "c2": 1}))
	pending, err = s.PendingChunks(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// Deleting the document exposes its ordinals as stale.
	_, err = s.MarkDeleted(ctx, []string{doc.DocID}, time.Now())
	require.NoError(t, err)
	stale, err := s.DeletedChunkOrdinals(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, stale)

	require.NoError(t, s.ClearAllOrdinals(ctx))
	stale, err = s.DeletedChunkOrdinals(ctx)
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestChunksForDocumentOrderedByIndex(t *testing.T) {
	s := NewDocumentStore()
	ctx := context.Background()
	doc := testDoc("PROJ-1")
	require.NoError(t, s.SaveDocument(ctx, &doc))
	require.NoError(t, s.ReplaceChunks(ctx, doc.DocID, []domain.Chunk{
		{ID: "c2", DocID: doc.DocID, Index: 1},
		{ID: "c1", DocID: doc.DocID, Index: 0},
	}))

	chunks, err := s.ChunksForDocument(ctx, doc.DocID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "c1", chunks[0].ID)
}
