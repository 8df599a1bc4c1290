package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
	"github.com/knowbase-labs/knowbase-cli/internal/core/ports/driven"
	"github.com/knowbase-labs/knowbase-cli/internal/logger"
)

// DefaultSimilarityThreshold is the score floor below which results are
// never considered relevant, regardless of what the LLM thinks.
const DefaultSimilarityThreshold = 0.35

// RelevanceDecider decides whether retrieved results actually answer the
// query. Cheap checks run first: no results or a best score under the
// floor short-circuit to irrelevant without an LLM call. Only results that
// clear the floor get the semantic check, and an LLM failure at that point
// resolves to relevant so a flaky provider never hides good results.
type RelevanceDecider struct {
	llm       driven.LLMClient
	threshold float64
}

// NewRelevanceDecider creates a decider with the default score floor.
// llm may be nil, in which case the floor alone decides.
func NewRelevanceDecider(llm driven.LLMClient) *RelevanceDecider {
	return &RelevanceDecider{llm: llm, threshold: DefaultSimilarityThreshold}
}

// SetThreshold overrides the score floor. Values outside (0, 1) are
// ignored.
func (d *RelevanceDecider) SetThreshold(t float64) {
	if t > 0 && t < 1 {
		d.threshold = t
	}
}

// Decide returns whether the results are relevant to the query.
func (d *RelevanceDecider) Decide(
	ctx context.Context, query string, results []domain.SearchResult,
) domain.Decision {
	if len(results) == 0 {
		logger.Debug("Relevance: no results")
		return domain.DecisionIrrelevant
	}

	best := results[0].Similarity
	for _, r := range results[1:] {
		if r.Similarity > best {
			best = r.Similarity
		}
	}
	if best < d.threshold {
		logger.Debug("Relevance: best score %.3f under floor %.2f", best, d.threshold)
		return domain.DecisionIrrelevant
	}

	if d.llm == nil {
		return domain.DecisionRelevant
	}
	return d.semanticCheck(ctx, query, results)
}

// semanticCheck asks the LLM whether the top results answer the query.
func (d *RelevanceDecider) semanticCheck(
	ctx context.Context, query string, results []domain.SearchResult,
) domain.Decision {
	var b strings.Builder
	limit := len(results)
	if limit > 3 {
		limit = 3
	}
	for i := 0; i < limit; i++ {
		fmt.Fprintf(&b, "%d. [%s] %s: %s\n", i+1, results[i].DocType, results[i].Title, preview(results[i].ChunkText, 300))
	}

	prompt := fmt.Sprintf(
		"Question: %s\n\nSearch results:\n%s\nDo these results contain information that answers the question? Reply with exactly one word: relevant or irrelevant.",
		query, b.String())

	answer, err := d.llm.Complete(ctx, []driven.ChatMessage{
		{Role: "user", Content: prompt},
	}, driven.ChatOptions{Temperature: 0.0, MaxTokens: 10})
	if err != nil {
		logger.Warn("Relevance check failed: %v. Treating results as relevant", err)
		return domain.DecisionRelevant
	}

	if strings.Contains(strings.ToLower(answer), "relevant") &&
		!strings.Contains(strings.ToLower(answer), "irrelevant") {
		return domain.DecisionRelevant
	}
	logger.Debug("Relevance: LLM judged results irrelevant")
	return domain.DecisionIrrelevant
}
