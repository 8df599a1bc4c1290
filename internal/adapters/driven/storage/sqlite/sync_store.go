package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
	"github.com/knowbase-labs/knowbase-cli/internal/core/ports/driven"
)

// syncHistoryStore implements driven.SyncHistoryStore.
type syncHistoryStore struct {
	store *Store
}

var _ driven.SyncHistoryStore = (*syncHistoryStore)(nil)

// Begin creates a running record for a new sync attempt.
func (s *syncHistoryStore) Begin(ctx context.Context, source domain.SyncSource) (*domain.SyncRecord, error) {
	started := time.Now().UTC()
	result, err := s.store.db.ExecContext(ctx,
		"INSERT INTO sync_history (source, status, started_at) VALUES (?, ?, ?)",
		string(source), string(domain.SyncRunning), started)
	if err != nil {
		return nil, fmt.Errorf("beginning sync record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("sync record id: %w", err)
	}
	return &domain.SyncRecord{
		ID:        id,
		Source:    source,
		Status:    domain.SyncRunning,
		StartedAt: started,
	}, nil
}

// Complete finalises a record with its outcome.
func (s *syncHistoryStore) Complete(ctx context.Context, id int64, status domain.SyncStatus, stats domain.SyncStats, errText string) error {
	result, err := s.store.db.ExecContext(ctx, `
		UPDATE sync_history
		SET status = ?, completed_at = ?, added = ?, updated = ?, deleted = ?, error_text = ?
		WHERE id = ?`,
		string(status), time.Now().UTC(), stats.Added, stats.Updated, stats.Deleted, errText, id)
	if err != nil {
		return fmt.Errorf("completing sync record: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// LastSuccess returns the completion time of the most recent successful run
// for a source, or nil if the source has never synced successfully.
func (s *syncHistoryStore) LastSuccess(ctx context.Context, source domain.SyncSource) (*time.Time, error) {
	var completed time.Time
	err := s.store.db.QueryRowContext(ctx, `
		SELECT completed_at FROM sync_history
		WHERE source = ? AND status = ? AND completed_at IS NOT NULL
		ORDER BY completed_at DESC LIMIT 1`,
		string(source), string(domain.SyncSuccess)).Scan(&completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying last success: %w", err)
	}
	return &completed, nil
}

// Recent returns the latest records, newest first.
func (s *syncHistoryStore) Recent(ctx context.Context, limit int) ([]domain.SyncRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, source, status, started_at, completed_at, added, updated, deleted, error_text
		FROM sync_history ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sync history: %w", err)
	}
	defer rows.Close()

	var records []domain.SyncRecord
	for rows.Next() {
		var rec domain.SyncRecord
		var source, status string
		var completed sql.NullTime
		if err := rows.Scan(&rec.ID, &source, &status, &rec.StartedAt, &completed,
			&rec.Added, &rec.Updated, &rec.Deleted, &rec.ErrorText); err != nil {
			return nil, fmt.Errorf("scanning sync record: %w", err)
		}
		rec.Source = domain.SyncSource(source)
		rec.Status = domain.SyncStatus(status)
		if completed.Valid {
			t := completed.Time
			rec.CompletedAt = &t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
