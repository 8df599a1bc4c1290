package domain

import (
	"strings"
	"time"
)

// Intent classifies what the user is trying to do with a query.
type Intent string

// Recognised query intents.
const (
	IntentSearch        Intent = "search"
	IntentQuestion      Intent = "question"
	IntentClarification Intent = "clarification"
	IntentGreeting      Intent = "greeting"
	IntentOther         Intent = "other"
)

// Valid reports whether the intent is one of the recognised values.
func (i Intent) Valid() bool {
	switch i {
	case IntentSearch, IntentQuestion, IntentClarification, IntentGreeting, IntentOther:
		return true
	}
	return false
}

// DateRange bounds a query to documents updated within an interval.
// Either side may be nil for a half-open range.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// AnalyzedQuery is the structured interpretation of a raw user query,
// produced by the query analyser stage.
type AnalyzedQuery struct {
	// OriginalQuery is the raw user input.
	OriginalQuery string

	// Intent is the classified intention.
	Intent Intent

	// Keywords are the search terms extracted from the query.
	Keywords []string

	// DocTypeFilter restricts the search to one source system, or nil.
	DocTypeFilter *DocumentType

	// DateFilter restricts the search to an update interval, or nil.
	DateFilter *DateRange
}

// FallbackAnalysis is the deterministic analysis used when the LLM call
// fails or returns something unparseable. The pipeline never halts on
// analyser failure.
func FallbackAnalysis(query string) *AnalyzedQuery {
	return &AnalyzedQuery{
		OriginalQuery: query,
		Intent:        IntentQuestion,
		Keywords:      strings.Fields(query),
	}
}
