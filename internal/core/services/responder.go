package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
	"github.com/knowbase-labs/knowbase-cli/internal/core/ports/driven"
	"github.com/knowbase-labs/knowbase-cli/internal/logger"
)

// Response generation limits.
const (
	// ragContextDocs is how many results feed the RAG prompt.
	ragContextDocs = 3

	// ragContextChars bounds each document excerpt in the RAG prompt.
	ragContextChars = 800
)

// fallbackDisclaimer is appended to general-knowledge answers so users
// know the answer did not come from the synced corpus.
const fallbackDisclaimer = "\n\n_Note: this answer is based on general knowledge, not on documents from the knowledge base._"

const ragSystemPrompt = `You are an assistant answering questions from a company knowledge base of Jira issues and Confluence pages.
Answer using only the provided context. If the context does not contain the answer, say so.
Be concise and cite which document the information came from.`

// noDocumentsResponse is returned when the RAG path is asked to answer
// with no retrieved documents at all.
const noDocumentsResponse = "I could not find any relevant documents in the knowledge base for your question."

// ResponseGenerator produces the final answer text, either grounded in
// retrieved documents (RAG) or from the model's general knowledge with a
// disclaimer.
type ResponseGenerator struct {
	llm driven.LLMClient
}

// NewResponseGenerator creates a generator.
func NewResponseGenerator(llm driven.LLMClient) *ResponseGenerator {
	return &ResponseGenerator{llm: llm}
}

// RAGResponse answers the query grounded in the top retrieved results and
// returns the answer plus the sources it was built from.
func (g *ResponseGenerator) RAGResponse(
	ctx context.Context, query string, results []domain.SearchResult,
) (string, []domain.Source, error) {
	if len(results) == 0 {
		return noDocumentsResponse, nil, nil
	}

	limit := len(results)
	if limit > ragContextDocs {
		limit = ragContextDocs
	}

	var b strings.Builder
	sources := make([]domain.Source, 0, limit)
	for i := 0; i < limit; i++ {
		r := results[i]
		fmt.Fprintf(&b, "[Document %d] %s\n%s\n\n", i+1, r.Title, preview(r.Content, ragContextChars))
		sources = append(sources, domain.Source{
			DocID:   r.DocID,
			DocType: r.DocType,
			Title:   r.Title,
			URL:     r.URL,
		})
	}

	prompt := fmt.Sprintf("Context:\n%s\nQuestion: %s", b.String(), query)
	answer, err := g.llm.Complete(ctx, []driven.ChatMessage{
		{Role: "system", Content: ragSystemPrompt},
		{Role: "user", Content: prompt},
	}, driven.ChatOptions{Temperature: 0.3, MaxTokens: 1024})
	if err != nil {
		return "", nil, fmt.Errorf("rag completion: %w", err)
	}

	logger.Debug("RAG response generated from %d documents", limit)
	return answer, sources, nil
}

// FallbackResponse answers without corpus grounding. Greetings get a
// short friendly reply; everything else gets a general-knowledge answer
// with the disclaimer appended.
func (g *ResponseGenerator) FallbackResponse(
	ctx context.Context, query string, intent domain.Intent,
) (string, error) {
	if intent == domain.IntentGreeting {
		answer, err := g.llm.Complete(ctx, []driven.ChatMessage{
			{Role: "system", Content: "You are a friendly assistant for a company knowledge base. Greet the user briefly and mention you can answer questions about Jira issues and Confluence pages."},
			{Role: "user", Content: query},
		}, driven.ChatOptions{Temperature: 0.7, MaxTokens: 200})
		if err != nil {
			return "", fmt.Errorf("greeting completion: %w", err)
		}
		return answer, nil
	}

	answer, err := g.llm.Complete(ctx, []driven.ChatMessage{
		{Role: "system", Content: "You are a helpful assistant. The user's question could not be answered from the company knowledge base, so answer from general knowledge."},
		{Role: "user", Content: query},
	}, driven.ChatOptions{Temperature: 0.5, MaxTokens: 800})
	if err != nil {
		return "", fmt.Errorf("fallback completion: %w", err)
	}
	return answer + fallbackDisclaimer, nil
}

// FormatResponse appends a numbered sources section to RAG answers.
// Fallback and error responses pass through untouched.
func FormatResponse(response string, responseType domain.ResponseType, sources []domain.Source) string {
	if responseType != domain.ResponseRAG || len(sources) == 0 {
		return response
	}

	var b strings.Builder
	b.WriteString(response)
	b.WriteString("\n\nSources:\n")
	for i, src := range sources {
		icon := "📄"
		if src.DocType == domain.DocTypeJira {
			icon = "🎫"
		}
		fmt.Fprintf(&b, "%d. %s %s", i+1, icon, src.Title)
		if src.URL != "" {
			fmt.Fprintf(&b, " (%s)", src.URL)
		}
		b.WriteString("\n")
	}
	return b.String()
}
