package services

import (
	"context"
	"strings"

	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
	"github.com/knowbase-labs/knowbase-cli/internal/core/ports/driving"
	"github.com/knowbase-labs/knowbase-cli/internal/logger"
)

// Ensure ChatPipeline implements the interface.
var _ driving.ChatService = (*ChatPipeline)(nil)

// errorResponse is shown when the pipeline itself fails.
const errorResponse = "Sorry, something went wrong while answering your question. Please try again."

// ChatPipeline runs a query through the fixed stage sequence: analyse,
// retrieve, decide relevance, then respond via either the RAG path or the
// fallback path, and format. The relevance decision is the single branch
// point; every other transition is linear.
type ChatPipeline struct {
	analyzer  *QueryAnalyzer
	retrieval *RetrievalService
	relevance *RelevanceDecider
	responder *ResponseGenerator
}

// NewChatPipeline creates a pipeline from its stage services.
func NewChatPipeline(
	analyzer *QueryAnalyzer,
	retrieval *RetrievalService,
	relevance *RelevanceDecider,
	responder *ResponseGenerator,
) *ChatPipeline {
	return &ChatPipeline{
		analyzer:  analyzer,
		retrieval: retrieval,
		relevance: relevance,
		responder: responder,
	}
}

// Run executes the pipeline. It never returns an error: failures become a
// result with ResponseType "error" and a user-presentable message. A
// panicking stage is recovered and reported the same way.
func (p *ChatPipeline) Run(ctx context.Context, query string) (result domain.ChatResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Chat pipeline panic: %v", r)
			result = domain.ChatResult{
				Response:     errorResponse,
				ResponseType: domain.ResponseError,
				Err:          "pipeline panic",
			}
		}
	}()

	query = strings.TrimSpace(query)
	if query == "" {
		return domain.ChatResult{
			Response:     "Please enter a question.",
			ResponseType: domain.ResponseError,
			Err:          "empty query",
		}
	}

	state := &domain.ChatState{Query: query}
	p.analyze(ctx, state)
	p.retrieve(ctx, state)
	p.decide(ctx, state)

	switch domain.RouteFor(state.Decision) {
	case domain.RouteRAG:
		p.respondRAG(ctx, state)
	default:
		p.respondFallback(ctx, state)
	}

	state.Response = FormatResponse(state.Response, state.ResponseType, state.Sources)

	return domain.ChatResult{
		Response:     state.Response,
		ResponseType: state.ResponseType,
		Sources:      state.Sources,
		Decision:     state.Decision,
		Analyzed:     state.Analyzed,
		Err:          state.Err,
	}
}

func (p *ChatPipeline) analyze(ctx context.Context, state *domain.ChatState) {
	state.Analyzed = p.analyzer.Analyze(ctx, state.Query)
}

func (p *ChatPipeline) retrieve(ctx context.Context, state *domain.ChatState) {
	opts := domain.SearchOptions{TopK: DefaultTopK}
	if state.Analyzed != nil {
		opts.DocType = state.Analyzed.DocTypeFilter
		if state.Analyzed.DateFilter != nil {
			opts.DateFrom = state.Analyzed.DateFilter.From
			opts.DateTo = state.Analyzed.DateFilter.To
		}
	}

	results, err := p.retrieval.Search(ctx, state.Query, opts)
	if err != nil {
		// Retrieval failure is not fatal: the fallback path can still
		// answer from general knowledge.
		logger.Warn("Retrieval failed: %v. Continuing without results", err)
		if state.Err == "" {
			state.Err = err.Error()
		}
		results = nil
	}
	state.Results = results
}

func (p *ChatPipeline) decide(ctx context.Context, state *domain.ChatState) {
	state.Decision = p.relevance.Decide(ctx, state.Query, state.Results)
	logger.Debug("Relevance decision: %s (%d results)", state.Decision, len(state.Results))
}

func (p *ChatPipeline) respondRAG(ctx context.Context, state *domain.ChatState) {
	response, sources, err := p.responder.RAGResponse(ctx, state.Query, state.Results)
	if err != nil {
		logger.Warn("RAG response failed: %v", err)
		state.Response = errorResponse
		state.ResponseType = domain.ResponseError
		if state.Err == "" {
			state.Err = err.Error()
		}
		return
	}
	state.Response = response
	state.ResponseType = domain.ResponseRAG
	state.Sources = sources
}

func (p *ChatPipeline) respondFallback(ctx context.Context, state *domain.ChatState) {
	intent := domain.IntentQuestion
	if state.Analyzed != nil {
		intent = state.Analyzed.Intent
	}

	response, err := p.responder.FallbackResponse(ctx, state.Query, intent)
	if err != nil {
		logger.Warn("Fallback response failed: %v", err)
		state.Response = errorResponse
		state.ResponseType = domain.ResponseError
		if state.Err == "" {
			state.Err = err.Error()
		}
		return
	}
	state.Response = response
	state.ResponseType = domain.ResponseFallback
}
