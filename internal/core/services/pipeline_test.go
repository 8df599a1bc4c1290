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

// pipelineFixture assembles a pipeline over an in-memory corpus. Each
// entry maps a document to its vector; queries embed to {0, 0}.
type pipelineDoc struct {
	doc domain.Document
	vec []float32
}

func newPipeline(t *testing.T, llm driven.LLMClient, docs []pipelineDoc) *ChatPipeline {
	t.Helper()

	store := memory.NewDocumentStore()
	index := flat.New(2)
	ctx := context.Background()
	for _, d := range docs {
		require.NoError(t, store.SaveDocument(ctx, &d.doc))
		chunk := domain.Chunk{ID: d.doc.DocID + "-c0", DocID: d.doc.DocID, Text: d.doc.Content}
		require.NoError(t, store.ReplaceChunks(ctx, d.doc.DocID, []domain.Chunk{chunk}))
		_, err := index.Add(ctx, [][]float32{d.vec}, []driven.VectorMeta{
			{ChunkID: chunk.ID, DocID: d.doc.DocID, Preview: d.doc.Content},
		})
		require.NoError(t, err)
	}

	embed := &mockEmbeddingClient{dims: 2, vectorFor: func(string) []float32 { return []float32{0, 0} }}
	gateway := NewEmbeddingGateway(embed)

	return NewChatPipeline(
		NewQueryAnalyzer(llm),
		NewRetrievalService(store, index, gateway),
		NewRelevanceDecider(llm),
		NewResponseGenerator(llm),
	)
}

func TestRunAnswersFromCorpusWithSources(t *testing.T) {
	// similarity 1/(1+d): API Guide at d=1/9 scores 0.9, Bug 123 at d=4
	// scores 0.2 and falls under the relevance floor.
	// Responses in call order: analysis, relevance check, RAG completion.
	llm := &mockLLMClient{responses: []string{
		`{"intent": "question", "keywords": ["api", "auth"]}`,
		"relevant",
		"Use a bearer token. [1]",
	}}
	p := newPipeline(t, llm, []pipelineDoc{
		{jiraDoc("PROJ-1", "API Guide", "Authenticate with a bearer token"), []float32{0.3333, 0}},
		{jiraDoc("PROJ-123", "Bug 123", "Unrelated crash report"), []float32{2, 0}},
	})

	result := p.Run(context.Background(), "how do I authenticate against the API?")
	assert.Equal(t, domain.ResponseRAG, result.ResponseType)
	assert.Equal(t, domain.DecisionRelevant, result.Decision)
	assert.Contains(t, result.Response, "bearer token")
	assert.Contains(t, result.Response, "Sources:")
	require.NotEmpty(t, result.Sources)
	assert.Equal(t, "jira-PROJ-1", result.Sources[0].DocID)
	assert.Empty(t, result.Err)
}

func TestRunEmptyCorpusFallsBackWithDisclaimer(t *testing.T) {
	llm := &mockLLMClient{responses: []string{
		`{"intent": "question", "keywords": ["kubernetes"]}`,
		"Kubernetes is a container orchestrator.",
	}}
	p := newPipeline(t, llm, nil)

	result := p.Run(context.Background(), "what is kubernetes?")
	assert.Equal(t, domain.ResponseFallback, result.ResponseType)
	assert.Equal(t, domain.DecisionIrrelevant, result.Decision)
	assert.Contains(t, result.Response, "general knowledge")
	assert.Empty(t, result.Sources)
}

func TestRunLowScoresRouteToFallback(t *testing.T) {
	llm := &mockLLMClient{responses: []string{
		`{"intent": "question", "keywords": ["weather"]}`,
		"No idea, but generally...",
	}}
	// Best similarity 0.2, under the floor; the relevance LLM never runs.
	p := newPipeline(t, llm, []pipelineDoc{
		{jiraDoc("PROJ-9", "Far Doc", "Nothing about weather"), []float32{2, 0}},
	})

	result := p.Run(context.Background(), "what's the weather like?")
	assert.Equal(t, domain.ResponseFallback, result.ResponseType)
	assert.Equal(t, 2, llm.calls)
}

func TestRunGreetingSkipsDisclaimer(t *testing.T) {
	llm := &mockLLMClient{responses: []string{
		`{"intent": "greeting", "keywords": []}`,
		"Hello! Ask me about your Jira issues or Confluence pages.",
	}}
	p := newPipeline(t, llm, nil)

	result := p.Run(context.Background(), "hello!")
	assert.Equal(t, domain.ResponseFallback, result.ResponseType)
	assert.NotContains(t, result.Response, "general knowledge")
}

func TestRunEmptyQueryIsErrorResult(t *testing.T) {
	p := newPipeline(t, &mockLLMClient{}, nil)
	result := p.Run(context.Background(), "   ")
	assert.Equal(t, domain.ResponseError, result.ResponseType)
	assert.NotEmpty(t, result.Err)
	assert.NotEmpty(t, result.Response)
}

func TestRunNeverPanics(t *testing.T) {
	// A pipeline with nil stage services panics internally; Run must
	// convert that into an error result.
	p := &ChatPipeline{}
	result := p.Run(context.Background(), "boom")
	assert.Equal(t, domain.ResponseError, result.ResponseType)
	assert.NotEmpty(t, result.Err)
}

func TestRunAnalyzerFilterReachesRetrieval(t *testing.T) {
	llm := &mockLLMClient{responses: []string{
		`{"intent": "search", "keywords": ["guide"], "doc_type": "confluence"}`,
		"General answer.",
	}}
	// The only document is Jira; the Confluence filter excludes it, so the
	// pipeline falls back even though the vector match is perfect.
	p := newPipeline(t, llm, []pipelineDoc{
		{jiraDoc("PROJ-1", "Guide", "A guide"), []float32{0, 0}},
	})

	result := p.Run(context.Background(), "find the guide in confluence")
	assert.Equal(t, domain.ResponseFallback, result.ResponseType)
}

// failAfterLLM succeeds until call failFrom, then errors.
type failAfterLLM struct {
	inner    driven.LLMClient
	failFrom int
	calls    int
}

func (f *failAfterLLM) Complete(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	f.calls++
	if f.calls >= f.failFrom {
		return "", domain.ErrUnavailable
	}
	return f.inner.Complete(ctx, messages, opts)
}

func (f *failAfterLLM) ModelName() string { return "failing-llm" }

func (f *failAfterLLM) Ping(_ context.Context) error { return nil }

func TestRunRAGFailureBecomesErrorResult(t *testing.T) {
	// Analysis and relevance succeed, the RAG completion (third call) fails.
	llm := &failAfterLLM{
		inner: &mockLLMClient{responses: []string{
			`{"intent": "question", "keywords": ["api"]}`,
			"relevant",
		}},
		failFrom: 3,
	}
	p := newPipeline(t, llm, []pipelineDoc{
		{jiraDoc("PROJ-1", "API Guide", "token auth"), []float32{0, 0}},
	})

	result := p.Run(context.Background(), "how do I authenticate?")
	assert.Equal(t, domain.ResponseError, result.ResponseType)
	assert.NotEmpty(t, result.Err)
	assert.NotEmpty(t, result.Response)
}
