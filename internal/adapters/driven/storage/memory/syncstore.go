package memory

import (
	"context"
	"sync"
	"time"

	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
	"github.com/knowbase-labs/knowbase-cli/internal/core/ports/driven"
)

// Ensure SyncHistoryStore implements the interface.
var _ driven.SyncHistoryStore = (*SyncHistoryStore)(nil)

// SyncHistoryStore is an in-memory implementation of driven.SyncHistoryStore.
type SyncHistoryStore struct {
	mu      sync.Mutex
	nextID  int64
	records []domain.SyncRecord
}

// NewSyncHistoryStore creates a new in-memory sync history store.
func NewSyncHistoryStore() *SyncHistoryStore {
	return &SyncHistoryStore{nextID: 1}
}

// Begin creates a running record for a new sync attempt.
func (s *SyncHistoryStore) Begin(_ context.Context, source domain.SyncSource) (*domain.SyncRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record := domain.SyncRecord{
		ID:        s.nextID,
		Source:    source,
		Status:    domain.SyncRunning,
		StartedAt: time.Now(),
	}
	s.nextID++
	s.records = append(s.records, record)
	return &record, nil
}

// Complete finalises a record with its outcome.
func (s *SyncHistoryStore) Complete(_ context.Context, id int64, status domain.SyncStatus, stats domain.SyncStats, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID != id {
			continue
		}
		now := time.Now()
		s.records[i].Status = status
		s.records[i].CompletedAt = &now
		s.records[i].Added = stats.Added
		s.records[i].Updated = stats.Updated
		s.records[i].Deleted = stats.Deleted
		s.records[i].ErrorText = errText
		return nil
	}
	return domain.ErrNotFound
}

// LastSuccess returns the completion time of the latest successful run.
func (s *SyncHistoryStore) LastSuccess(_ context.Context, source domain.SyncSource) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *time.Time
	for i := range s.records {
		r := s.records[i]
		if r.Source != source || r.Status != domain.SyncSuccess || r.CompletedAt == nil {
			continue
		}
		if latest == nil || r.CompletedAt.After(*latest) {
			t := *r.CompletedAt
			latest = &t
		}
	}
	return latest, nil
}

// Recent returns the latest records, newest first.
func (s *SyncHistoryStore) Recent(_ context.Context, limit int) ([]domain.SyncRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.SyncRecord, 0, limit)
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}
