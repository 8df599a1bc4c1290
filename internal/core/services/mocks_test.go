package services

import (
	"context"
	"fmt"
	"time"

	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
	"github.com/knowbase-labs/knowbase-cli/internal/core/ports/driven"
)

// --- Mock implementations shared across service tests ---

// mockEmbeddingClient implements driven.EmbeddingClient.
type mockEmbeddingClient struct {
	dims     int
	embedErr error
	// failBatches fails only the Nth Embed call (1-based) when set.
	failBatches map[int]error
	calls       int
	// vectorFor overrides the produced vector per text when set.
	vectorFor func(text string) []float32
}

func (m *mockEmbeddingClient) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if err, ok := m.failBatches[m.calls]; ok {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if m.vectorFor != nil {
			out[i] = m.vectorFor(text)
			continue
		}
		vec := make([]float32, m.Dimensions())
		vec[0] = float32(len(text))
		out[i] = vec
	}
	return out, nil
}

func (m *mockEmbeddingClient) Dimensions() int {
	if m.dims > 0 {
		return m.dims
	}
	return 4
}

func (m *mockEmbeddingClient) ModelName() string { return "mock-embed" }

func (m *mockEmbeddingClient) Ping(_ context.Context) error { return nil }

// mockLLMClient implements driven.LLMClient. Responses are returned in
// order; the last one repeats.
type mockLLMClient struct {
	responses   []string
	completeErr error
	calls       int
	lastPrompt  string
}

func (m *mockLLMClient) Complete(_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	m.calls++
	if len(messages) > 0 {
		m.lastPrompt = messages[len(messages)-1].Content
	}
	if m.completeErr != nil {
		return "", m.completeErr
	}
	if len(m.responses) == 0 {
		return "", nil
	}
	i := m.calls - 1
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	return m.responses[i], nil
}

func (m *mockLLMClient) ModelName() string { return "mock-llm" }

func (m *mockLLMClient) Ping(_ context.Context) error { return nil }

// mockSourceClient implements driven.SourceClient.
type mockSourceClient struct {
	docType  domain.DocumentType
	items    []domain.Document
	ids      []string
	fetchErr error
	idsErr   error
}

func (m *mockSourceClient) Type() domain.DocumentType { return m.docType }

func (m *mockSourceClient) ItemsUpdatedSince(_ context.Context, _ *time.Time) ([]domain.Document, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.items, nil
}

func (m *mockSourceClient) AllIDs(_ context.Context) ([]string, error) {
	if m.idsErr != nil {
		return nil, m.idsErr
	}
	return m.ids, nil
}

func (m *mockSourceClient) TestConnection(_ context.Context) error { return nil }

// sequentialIDs returns a chunk ID generator producing "id-1", "id-2", ...
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

// jiraDoc builds a minimal Jira document for tests.
func jiraDoc(nativeID, title, content string) domain.Document {
	now := time.Now()
	return domain.Document{
		DocID:     domain.DocID(domain.DocTypeJira, nativeID),
		Type:      domain.DocTypeJira,
		Title:     title,
		URL:       "https://jira.example.com/browse/" + nativeID,
		Content:   content,
		Author:    "tester",
		CreatedAt: now,
		UpdatedAt: now,
	}
}
