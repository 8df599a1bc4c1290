package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
)

func TestAnalyzeParsesStructuredResponse(t *testing.T) {
	llm := &mockLLMClient{responses: []string{
		`{"intent": "search", "keywords": ["login", "bug"], "doc_type": "jira", "date_from": "2026-01-01", "date_to": null}`,
	}}
	a := NewQueryAnalyzer(llm)

	got := a.Analyze(context.Background(), "find the login bug in jira")
	assert.Equal(t, domain.IntentSearch, got.Intent)
	assert.Equal(t, []string{"login", "bug"}, got.Keywords)
	require.NotNil(t, got.DocTypeFilter)
	assert.Equal(t, domain.DocTypeJira, *got.DocTypeFilter)
	require.NotNil(t, got.DateFilter)
	require.NotNil(t, got.DateFilter.From)
	assert.Nil(t, got.DateFilter.To)
	assert.Equal(t, "find the login bug in jira", got.OriginalQuery)
}

func TestAnalyzeStripsCodeFence(t *testing.T) {
	llm := &mockLLMClient{responses: []string{
		"```json\n{\"intent\": \"greeting\", \"keywords\": [\"hello\"]}\n```",
	}}
	a := NewQueryAnalyzer(llm)

	got := a.Analyze(context.Background(), "hello")
	assert.Equal(t, domain.IntentGreeting, got.Intent)
}

func TestAnalyzeLLMErrorFallsBack(t *testing.T) {
	llm := &mockLLMClient{completeErr: errors.New("timeout")}
	a := NewQueryAnalyzer(llm)

	got := a.Analyze(context.Background(), "how do deployments work")
	assert.Equal(t, domain.IntentQuestion, got.Intent)
	assert.Equal(t, []string{"how", "do", "deployments", "work"}, got.Keywords)
	assert.Nil(t, got.DocTypeFilter)
	assert.Nil(t, got.DateFilter)
}

func TestAnalyzeUnparseableJSONFallsBack(t *testing.T) {
	llm := &mockLLMClient{responses: []string{"I think the user wants to search."}}
	a := NewQueryAnalyzer(llm)

	got := a.Analyze(context.Background(), "deploy docs")
	assert.Equal(t, domain.IntentQuestion, got.Intent)
	assert.Equal(t, []string{"deploy", "docs"}, got.Keywords)
}

func TestAnalyzeInvalidIntentBecomesQuestion(t *testing.T) {
	llm := &mockLLMClient{responses: []string{`{"intent": "banter", "keywords": ["x"]}`}}
	a := NewQueryAnalyzer(llm)

	got := a.Analyze(context.Background(), "x")
	assert.Equal(t, domain.IntentQuestion, got.Intent)
}

func TestAnalyzeInvalidDocTypeIgnored(t *testing.T) {
	llm := &mockLLMClient{responses: []string{`{"intent": "search", "keywords": ["x"], "doc_type": "sharepoint"}`}}
	a := NewQueryAnalyzer(llm)

	got := a.Analyze(context.Background(), "x")
	assert.Nil(t, got.DocTypeFilter)
}

func TestAnalyzeNilLLMUsesFallback(t *testing.T) {
	a := NewQueryAnalyzer(nil)
	got := a.Analyze(context.Background(), "plain question")
	assert.Equal(t, domain.IntentQuestion, got.Intent)
	assert.Equal(t, []string{"plain", "question"}, got.Keywords)
}

func TestAnalyzeBlankQuerySkipsLLM(t *testing.T) {
	llm := &mockLLMClient{responses: []string{`{"intent": "search"}`}}
	a := NewQueryAnalyzer(llm)

	got := a.Analyze(context.Background(), "   ")

	assert.Equal(t, domain.IntentOther, got.Intent)
	assert.Empty(t, got.Keywords)
	assert.Equal(t, 0, llm.calls)
}
