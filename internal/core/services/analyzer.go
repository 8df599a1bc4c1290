package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
	"github.com/knowbase-labs/knowbase-cli/internal/core/ports/driven"
	"github.com/knowbase-labs/knowbase-cli/internal/logger"
)

const analyzerSystemPrompt = `You are a query analyser for a knowledge base of Jira issues and Confluence pages.
Given a user query, respond with a JSON object only, no prose:
{
  "intent": one of "search", "question", "clarification", "greeting", "other",
  "keywords": list of search terms extracted from the query,
  "doc_type": "jira", "confluence", or null if the query does not name a source,
  "date_from": ISO 8601 date or null,
  "date_to": ISO 8601 date or null
}`

// QueryAnalyzer classifies a raw query and extracts search filters using
// the LLM. It never fails: any LLM or parse error falls back to a
// deterministic analysis so the pipeline keeps moving.
type QueryAnalyzer struct {
	llm driven.LLMClient
}

// NewQueryAnalyzer creates an analyser. llm may be nil, in which case
// every query gets the fallback analysis.
func NewQueryAnalyzer(llm driven.LLMClient) *QueryAnalyzer {
	return &QueryAnalyzer{llm: llm}
}

// analyzedPayload mirrors the JSON shape the LLM is asked for.
type analyzedPayload struct {
	Intent   string   `json:"intent"`
	Keywords []string `json:"keywords"`
	DocType  *string  `json:"doc_type"`
	DateFrom *string  `json:"date_from"`
	DateTo   *string  `json:"date_to"`
}

// Analyze interprets the query. The result always has the original query
// and a valid intent.
func (a *QueryAnalyzer) Analyze(ctx context.Context, query string) *domain.AnalyzedQuery {
	if strings.TrimSpace(query) == "" {
		return &domain.AnalyzedQuery{OriginalQuery: query, Intent: domain.IntentOther, Keywords: []string{}}
	}
	if a.llm == nil {
		return domain.FallbackAnalysis(query)
	}

	raw, err := a.llm.Complete(ctx, []driven.ChatMessage{
		{Role: "system", Content: analyzerSystemPrompt},
		{Role: "user", Content: query},
	}, driven.ChatOptions{Temperature: 0.0, MaxTokens: 500})
	if err != nil {
		logger.Warn("Query analysis failed: %v. Using fallback analysis", err)
		return domain.FallbackAnalysis(query)
	}

	var payload analyzedPayload
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &payload); err != nil {
		logger.Warn("Query analysis returned unparseable JSON: %v. Using fallback analysis", err)
		return domain.FallbackAnalysis(query)
	}

	intent := domain.Intent(payload.Intent)
	if !intent.Valid() {
		intent = domain.IntentQuestion
	}

	analyzed := &domain.AnalyzedQuery{
		OriginalQuery: query,
		Intent:        intent,
		Keywords:      payload.Keywords,
	}
	if len(analyzed.Keywords) == 0 {
		analyzed.Keywords = strings.Fields(query)
	}

	if payload.DocType != nil {
		t := domain.DocumentType(strings.ToLower(*payload.DocType))
		if t.Valid() {
			analyzed.DocTypeFilter = &t
		}
	}

	from := parseDate(payload.DateFrom)
	to := parseDate(payload.DateTo)
	if from != nil || to != nil {
		analyzed.DateFilter = &domain.DateRange{From: from, To: to}
	}

	logger.Debug("Query analysed: intent=%s keywords=%v", analyzed.Intent, analyzed.Keywords)
	return analyzed
}

// stripCodeFence removes a markdown code fence if the model wrapped its
// JSON in one.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// parseDate accepts full timestamps or bare dates, returning nil for
// anything else.
func parseDate(s *string) *time.Time {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, strings.TrimSpace(*s)); err == nil {
			return &t
		}
	}
	return nil
}
