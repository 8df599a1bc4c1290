package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/knowbase-labs/knowbase-cli/internal/chunker"
	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
	"github.com/knowbase-labs/knowbase-cli/internal/core/ports/driven"
	"github.com/knowbase-labs/knowbase-cli/internal/core/ports/driving"
	"github.com/knowbase-labs/knowbase-cli/internal/logger"
	"github.com/knowbase-labs/knowbase-cli/internal/retry"
)

// Ensure SyncEngine implements the interface.
var _ driving.SyncRunner = (*SyncEngine)(nil)

// SyncEngine synchronises documents from the source systems into the
// document store. Fetches are incremental from the last successful run's
// watermark; upserts are keyed by DocID and skip unchanged content. A
// failed fetch aborts the run and records it as failed; a failed item is
// counted and skipped.
type SyncEngine struct {
	docStore driven.DocumentStore
	history  driven.SyncHistoryStore
	sources  map[domain.DocumentType]driven.SourceClient
	splitter *chunker.Splitter
	retrier  *retry.Runner
	newID    func() string
	now      func() time.Time
}

// NewSyncEngine creates a sync engine over the given source clients.
// newID generates chunk IDs.
func NewSyncEngine(
	docStore driven.DocumentStore,
	history driven.SyncHistoryStore,
	sources []driven.SourceClient,
	splitter *chunker.Splitter,
	newID func() string,
) *SyncEngine {
	byType := make(map[domain.DocumentType]driven.SourceClient, len(sources))
	for _, src := range sources {
		byType[src.Type()] = src
	}
	return &SyncEngine{
		docStore: docStore,
		history:  history,
		sources:  byType,
		splitter: splitter,
		retrier: retry.New(retry.Config{
			RetryOn: []error{domain.ErrUnavailable, domain.ErrRateLimited},
		}),
		newID: newID,
		now:   time.Now,
	}
}

// SetRetrier overrides the fetch retry policy.
func (e *SyncEngine) SetRetrier(r *retry.Runner) {
	e.retrier = r
}

// Sync runs a sync for the given source. "all" runs each configured
// source in turn and merges the stats; a failure in one source does not
// stop the others, but is reported.
func (e *SyncEngine) Sync(ctx context.Context, source domain.SyncSource, full bool) (domain.SyncStats, error) {
	if !source.Valid() {
		return domain.SyncStats{}, fmt.Errorf("%w: unknown sync source %q", domain.ErrInvalidInput, source)
	}

	if source == domain.SyncAll {
		var stats domain.SyncStats
		var firstErr error
		for _, t := range []domain.DocumentType{domain.DocTypeJira, domain.DocTypeConfluence} {
			if _, ok := e.sources[t]; !ok {
				continue
			}
			s, err := e.syncOne(ctx, t, full)
			stats.Merge(s)
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return stats, firstErr
	}

	t := domain.DocumentType(source)
	if _, ok := e.sources[t]; !ok {
		return domain.SyncStats{}, fmt.Errorf("%w: no %s client configured", domain.ErrNotConfigured, source)
	}
	return e.syncOne(ctx, t, full)
}

// syncOne runs a sync for a single source system, recording the attempt
// in sync history.
func (e *SyncEngine) syncOne(ctx context.Context, t domain.DocumentType, full bool) (domain.SyncStats, error) {
	logger.Section(fmt.Sprintf("Sync: %s", t))
	client := e.sources[t]
	source := domain.SyncSource(t)

	record, err := e.history.Begin(ctx, source)
	if err != nil {
		return domain.SyncStats{}, fmt.Errorf("begin sync record: %w", err)
	}

	var since *time.Time
	if !full {
		since, err = e.history.LastSuccess(ctx, source)
		if err != nil {
			_ = e.history.Complete(ctx, record.ID, domain.SyncFailed, domain.SyncStats{}, err.Error())
			return domain.SyncStats{}, fmt.Errorf("read watermark: %w", err)
		}
	}
	if since != nil {
		logger.Info("Incremental sync since %s", since.Format(time.RFC3339))
	} else {
		logger.Info("Full sync")
	}

	var items []domain.Document
	err = e.retrier.Do(ctx, fmt.Sprintf("%s fetch", t), func(ctx context.Context) error {
		var fetchErr error
		items, fetchErr = client.ItemsUpdatedSince(ctx, since)
		return fetchErr
	})
	if err != nil {
		logger.Warn("Fetch failed for %s: %v", t, err)
		_ = e.history.Complete(ctx, record.ID, domain.SyncFailed, domain.SyncStats{}, err.Error())
		return domain.SyncStats{}, fmt.Errorf("fetch %s: %w", t, err)
	}
	logger.Info("Fetched %d items from %s", len(items), t)

	var stats domain.SyncStats
	for i := range items {
		outcome, err := e.upsert(ctx, &items[i])
		if err != nil {
			logger.Warn("Upsert %s failed: %v", items[i].DocID, err)
			stats.Errors++
			continue
		}
		switch outcome {
		case outcomeAdded:
			stats.Added++
		case outcomeUpdated:
			stats.Updated++
		default:
			stats.Skipped++
		}
	}

	if err := e.history.Complete(ctx, record.ID, domain.SyncSuccess, stats, ""); err != nil {
		return stats, fmt.Errorf("complete sync record: %w", err)
	}
	logger.Info("Sync %s done: %d added, %d updated, %d skipped, %d errors",
		t, stats.Added, stats.Updated, stats.Skipped, stats.Errors)
	return stats, nil
}

// upsert outcomes.
type upsertOutcome int

const (
	outcomeSkipped upsertOutcome = iota
	outcomeAdded
	outcomeUpdated
)

// upsert writes one fetched document, re-chunking when the content is new
// or changed. Identical content on an existing non-deleted row is a no-op
// apart from the sync timestamp.
func (e *SyncEngine) upsert(ctx context.Context, doc *domain.Document) (upsertOutcome, error) {
	existing, err := e.docStore.GetDocument(ctx, doc.DocID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return outcomeSkipped, fmt.Errorf("get document: %w", err)
	}

	now := e.now()
	doc.LastSyncedAt = now
	doc.Deleted = false

	outcome := outcomeAdded
	if existing != nil {
		if existing.Content == doc.Content && !existing.Deleted {
			existing.LastSyncedAt = now
			return outcomeSkipped, e.docStore.SaveDocument(ctx, existing)
		}
		outcome = outcomeUpdated
	}

	if err := e.docStore.SaveDocument(ctx, doc); err != nil {
		return outcome, fmt.Errorf("save document: %w", err)
	}
	chunks := e.splitter.ChunksFor(*doc, e.newID)
	if err := e.docStore.ReplaceChunks(ctx, doc.DocID, chunks); err != nil {
		return outcome, fmt.Errorf("replace chunks: %w", err)
	}
	return outcome, nil
}

// DetectDeletions enumerates every item currently present upstream and
// soft-deletes stored documents that no longer appear. Already-deleted
// rows are untouched, so repeat runs are no-ops.
func (e *SyncEngine) DetectDeletions(ctx context.Context, source domain.SyncSource) (domain.SyncStats, error) {
	if !source.Valid() {
		return domain.SyncStats{}, fmt.Errorf("%w: unknown sync source %q", domain.ErrInvalidInput, source)
	}

	types := []domain.DocumentType{domain.DocumentType(source)}
	if source == domain.SyncAll {
		types = []domain.DocumentType{domain.DocTypeJira, domain.DocTypeConfluence}
	}

	var stats domain.SyncStats
	for _, t := range types {
		client, ok := e.sources[t]
		if !ok {
			continue
		}

		stored, err := e.docStore.ListDocIDs(ctx, t, false)
		if err != nil {
			return stats, fmt.Errorf("list stored %s ids: %w", t, err)
		}

		var upstream []string
		err = e.retrier.Do(ctx, fmt.Sprintf("%s id enumeration", t), func(ctx context.Context) error {
			var fetchErr error
			upstream, fetchErr = client.AllIDs(ctx)
			return fetchErr
		})
		if err != nil {
			return stats, fmt.Errorf("enumerate %s ids: %w", t, err)
		}

		present := make(map[string]struct{}, len(upstream))
		for _, id := range upstream {
			present[domain.DocID(t, id)] = struct{}{}
		}

		var missing []string
		for _, id := range stored {
			if _, ok := present[id]; !ok {
				missing = append(missing, id)
			}
		}
		if len(missing) == 0 {
			logger.Debug("Deletion detection: no missing %s documents", t)
			continue
		}

		n, err := e.docStore.MarkDeleted(ctx, missing, e.now())
		if err != nil {
			return stats, fmt.Errorf("mark deleted: %w", err)
		}
		logger.Info("Deletion detection: %d %s documents soft-deleted", n, t)
		stats.Deleted += n
	}
	return stats, nil
}
