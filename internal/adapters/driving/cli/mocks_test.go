package cli

import (
	"context"

	"github.com/knowbase-labs/knowbase-cli/internal/adapters/driven/storage/memory"
	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
)

type mockChatService struct {
	result domain.ChatResult
	called int
	query  string
}

func (m *mockChatService) Run(_ context.Context, query string) domain.ChatResult {
	m.called++
	m.query = query
	return m.result
}

type mockSyncRunner struct {
	stats     domain.SyncStats
	syncErr   error
	detectErr error
	synced    []domain.SyncSource
	full      bool
	detected  []domain.SyncSource
}

func (m *mockSyncRunner) Sync(_ context.Context, source domain.SyncSource, full bool) (domain.SyncStats, error) {
	m.synced = append(m.synced, source)
	m.full = full
	return m.stats, m.syncErr
}

func (m *mockSyncRunner) DetectDeletions(_ context.Context, source domain.SyncSource) (domain.SyncStats, error) {
	m.detected = append(m.detected, source)
	return m.stats, m.detectErr
}

type mockIndexRunner struct {
	chunked    int
	stats      domain.IndexStats
	processErr error
	updateErr  error
	rebuilt    int
}

func (m *mockIndexRunner) ProcessChunks(_ context.Context) (int, error) {
	return m.chunked, m.processErr
}

func (m *mockIndexRunner) UpdateIndex(_ context.Context) (domain.IndexStats, error) {
	return m.stats, m.updateErr
}

func (m *mockIndexRunner) RebuildIndex(_ context.Context) (domain.IndexStats, error) {
	m.rebuilt++
	return m.stats, m.updateErr
}

// setupTestServices installs mock services and returns a cleanup func that
// restores the previous wiring.
func setupTestServices(s *Services) func() {
	prev := services
	if s.Documents == nil {
		s.Documents = memory.NewDocumentStore()
	}
	if s.History == nil {
		s.History = memory.NewSyncHistoryStore()
	}
	SetServices(s)
	return func() { SetServices(prev) }
}
