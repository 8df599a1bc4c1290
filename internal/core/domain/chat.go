package domain

// Decision is the binary outcome of the relevance check.
type Decision string

// Relevance decisions. Zero value means the check has not run yet.
const (
	DecisionRelevant   Decision = "relevant"
	DecisionIrrelevant Decision = "irrelevant"
)

// Route names the response-generation path chosen for a request.
type Route string

// Response routes.
const (
	RouteRAG      Route = "rag_responder"
	RouteFallback Route = "llm_fallback"
)

// RouteFor maps a relevance decision to a response route. Anything other
// than an explicit relevant decision routes to the fallback responder.
func RouteFor(d Decision) Route {
	if d == DecisionRelevant {
		return RouteRAG
	}
	return RouteFallback
}

// ResponseType tags how the final answer was produced.
type ResponseType string

// Response types surfaced to the caller.
const (
	ResponseRAG      ResponseType = "rag"
	ResponseFallback ResponseType = "llm_fallback"
	ResponseError    ResponseType = "error"
)

// ChatState is the mutable request-scoped state threaded through the chat
// pipeline. Each stage reads the fields of its predecessors and fills in its
// own; a failing stage records Err and still leaves every downstream field
// usable.
type ChatState struct {
	// Query is the raw user input.
	Query string

	// Analyzed is filled by the analyse stage.
	Analyzed *AnalyzedQuery

	// Results is filled by the retrieve stage. Empty is a valid outcome.
	Results []SearchResult

	// Decision is filled by the relevance stage.
	Decision Decision

	// Response, ResponseType and Sources are filled by the responder stages
	// and finalised by the formatter.
	Response     string
	ResponseType ResponseType
	Sources      []Source

	// Err records the first stage failure, if any. The pipeline keeps going.
	Err string
}

// ChatResult is the pipeline's final answer as returned to callers.
type ChatResult struct {
	Response     string
	ResponseType ResponseType
	Sources      []Source
	Decision     Decision
	Analyzed     *AnalyzedQuery
	Err          string
}
