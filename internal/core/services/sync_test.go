package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowbase-labs/knowbase-cli/internal/adapters/driven/storage/memory"
	"github.com/knowbase-labs/knowbase-cli/internal/chunker"
	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
	"github.com/knowbase-labs/knowbase-cli/internal/core/ports/driven"
	"github.com/knowbase-labs/knowbase-cli/internal/retry"
)

func newSyncEngine(sources ...driven.SourceClient) (*SyncEngine, *memory.DocumentStore, *memory.SyncHistoryStore) {
	store := memory.NewDocumentStore()
	history := memory.NewSyncHistoryStore()
	engine := NewSyncEngine(store, history, sources, chunker.New(0, 0), sequentialIDs())
	engine.SetRetrier(retry.New(retry.Config{
		MaxAttempts:  1,
		InitialDelay: time.Millisecond,
	}))
	return engine, store, history
}

func TestSyncAddsNewDocuments(t *testing.T) {
	jira := &mockSourceClient{
		docType: domain.DocTypeJira,
		items: []domain.Document{
			jiraDoc("PROJ-1", "First", "Description one"),
			jiraDoc("PROJ-2", "Second", "Description two"),
		},
	}
	engine, store, _ := newSyncEngine(jira)

	stats, err := engine.Sync(context.Background(), domain.SyncJira, false)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Added)
	assert.Equal(t, 0, stats.Updated)
	assert.Equal(t, 0, stats.Skipped)

	doc, err := store.GetDocument(context.Background(), "jira-PROJ-1")
	require.NoError(t, err)
	assert.Equal(t, "First", doc.Title)
	assert.False(t, doc.LastSyncedAt.IsZero())

	chunks, err := store.ChunksForDocument(context.Background(), "jira-PROJ-1")
	require.NoError(t, err)
	assert.NotEmpty(t, chunks)
}

func TestSyncSecondRunSkipsUnchanged(t *testing.T) {
	jira := &mockSourceClient{
		docType: domain.DocTypeJira,
		items:   []domain.Document{jiraDoc("PROJ-1", "First", "Same content")},
	}
	engine, store, _ := newSyncEngine(jira)
	ctx := context.Background()

	stats, err := engine.Sync(ctx, domain.SyncJira, false)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Added)

	stats, err = engine.Sync(ctx, domain.SyncJira, false)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Added)
	assert.Equal(t, 1, stats.Skipped)

	// No duplicate rows.
	count, err := store.CountDocuments(ctx, domain.DocTypeJira, true)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSyncChangedContentUpdatesAndRechunks(t *testing.T) {
	jira := &mockSourceClient{
		docType: domain.DocTypeJira,
		items:   []domain.Document{jiraDoc("PROJ-1", "First", "Original content")},
	}
	engine, store, _ := newSyncEngine(jira)
	ctx := context.Background()

	_, err := engine.Sync(ctx, domain.SyncJira, false)
	require.NoError(t, err)
	before, err := store.ChunksForDocument(ctx, "jira-PROJ-1")
	require.NoError(t, err)

	jira.items = []domain.Document{jiraDoc("PROJ-1", "First", "Revised content")}
	stats, err := engine.Sync(ctx, domain.SyncJira, false)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)

	after, err := store.ChunksForDocument(ctx, "jira-PROJ-1")
	require.NoError(t, err)
	require.NotEmpty(t, after)
	assert.NotEqual(t, before[0].ID, after[0].ID)
	assert.Equal(t, "Revised content", after[0].Text)
}

func TestSyncReappearedDocumentClearsDeletedFlag(t *testing.T) {
	jira := &mockSourceClient{
		docType: domain.DocTypeJira,
		items:   []domain.Document{jiraDoc("PROJ-1", "First", "Content")},
	}
	engine, store, _ := newSyncEngine(jira)
	ctx := context.Background()

	_, err := engine.Sync(ctx, domain.SyncJira, false)
	require.NoError(t, err)
	_, err = store.MarkDeleted(ctx, []string{"jira-PROJ-1"}, time.Now())
	require.NoError(t, err)

	stats, err := engine.Sync(ctx, domain.SyncJira, false)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)

	doc, err := store.GetDocument(ctx, "jira-PROJ-1")
	require.NoError(t, err)
	assert.False(t, doc.Deleted)
}

func TestSyncFetchFailureRecordsFailedRun(t *testing.T) {
	jira := &mockSourceClient{
		docType:  domain.DocTypeJira,
		fetchErr: fmt.Errorf("boom: %w", domain.ErrUnavailable),
	}
	engine, _, history := newSyncEngine(jira)

	_, err := engine.Sync(context.Background(), domain.SyncJira, false)
	require.Error(t, err)

	records, err := history.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.SyncFailed, records[0].Status)
	assert.NotEmpty(t, records[0].ErrorText)
}

func TestSyncSuccessRecordsHistoryAndWatermark(t *testing.T) {
	jira := &mockSourceClient{
		docType: domain.DocTypeJira,
		items:   []domain.Document{jiraDoc("PROJ-1", "First", "Content")},
	}
	engine, _, history := newSyncEngine(jira)
	ctx := context.Background()

	before, err := history.LastSuccess(ctx, domain.SyncJira)
	require.NoError(t, err)
	assert.Nil(t, before)

	_, err = engine.Sync(ctx, domain.SyncJira, false)
	require.NoError(t, err)

	after, err := history.LastSuccess(ctx, domain.SyncJira)
	require.NoError(t, err)
	require.NotNil(t, after)

	records, err := history.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncSuccess, records[0].Status)
	assert.Equal(t, 1, records[0].Added)
}

func TestSyncAllMergesBothSources(t *testing.T) {
	jira := &mockSourceClient{
		docType: domain.DocTypeJira,
		items:   []domain.Document{jiraDoc("PROJ-1", "Issue", "Jira content")},
	}
	page := domain.Document{
		DocID:     domain.DocID(domain.DocTypeConfluence, "42"),
		Type:      domain.DocTypeConfluence,
		Title:     "Page",
		Content:   "Confluence content",
		UpdatedAt: time.Now(),
	}
	confluence := &mockSourceClient{
		docType: domain.DocTypeConfluence,
		items:   []domain.Document{page},
	}
	engine, _, _ := newSyncEngine(jira, confluence)

	stats, err := engine.Sync(context.Background(), domain.SyncAll, false)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Added)
}

func TestSyncUnknownSourceRejected(t *testing.T) {
	engine, _, _ := newSyncEngine()
	_, err := engine.Sync(context.Background(), domain.SyncSource("gitlab"), false)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDetectDeletionsSoftDeletesMissing(t *testing.T) {
	jira := &mockSourceClient{
		docType: domain.DocTypeJira,
		items: []domain.Document{
			jiraDoc("PROJ-1", "Stays", "Content"),
			jiraDoc("PROJ-2", "Goes", "Content"),
		},
		ids: []string{"PROJ-1"},
	}
	engine, store, _ := newSyncEngine(jira)
	ctx := context.Background()

	_, err := engine.Sync(ctx, domain.SyncJira, false)
	require.NoError(t, err)

	stats, err := engine.DetectDeletions(ctx, domain.SyncJira)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Deleted)

	gone, err := store.GetDocument(ctx, "jira-PROJ-2")
	require.NoError(t, err)
	assert.True(t, gone.Deleted)
	kept, err := store.GetDocument(ctx, "jira-PROJ-1")
	require.NoError(t, err)
	assert.False(t, kept.Deleted)
}

func TestDetectDeletionsIsIdempotent(t *testing.T) {
	jira := &mockSourceClient{
		docType: domain.DocTypeJira,
		items:   []domain.Document{jiraDoc("PROJ-2", "Goes", "Content")},
		ids:     nil,
	}
	engine, _, _ := newSyncEngine(jira)
	ctx := context.Background()

	_, err := engine.Sync(ctx, domain.SyncJira, false)
	require.NoError(t, err)

	stats, err := engine.DetectDeletions(ctx, domain.SyncJira)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Deleted)

	stats, err = engine.DetectDeletions(ctx, domain.SyncJira)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Deleted)
}

func TestDetectDeletionsEnumerationFailureAborts(t *testing.T) {
	jira := &mockSourceClient{
		docType: domain.DocTypeJira,
		items:   []domain.Document{jiraDoc("PROJ-1", "Doc", "Content")},
		idsErr:  fmt.Errorf("boom: %w", domain.ErrUnavailable),
	}
	engine, store, _ := newSyncEngine(jira)
	ctx := context.Background()

	_, err := engine.Sync(ctx, domain.SyncJira, false)
	require.NoError(t, err)

	_, err = engine.DetectDeletions(ctx, domain.SyncJira)
	require.Error(t, err)

	// Nothing was deleted on a failed enumeration.
	doc, err := store.GetDocument(ctx, "jira-PROJ-1")
	require.NoError(t, err)
	assert.False(t, doc.Deleted)
}
