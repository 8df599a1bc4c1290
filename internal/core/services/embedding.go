package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/knowbase-labs/knowbase-cli/internal/chunker"
	"github.com/knowbase-labs/knowbase-cli/internal/core/ports/driven"
	"github.com/knowbase-labs/knowbase-cli/internal/logger"
)

// Embedding gateway defaults.
const (
	// DefaultEmbedBatchSize is the number of texts sent per provider call.
	DefaultEmbedBatchSize = 100

	// DefaultMaxEmbedChars is the truncation limit applied to each text
	// before embedding.
	DefaultMaxEmbedChars = 30000
)

// EmbeddingGateway wraps an embedding client with the input policy the
// rest of the system relies on: every call returns exactly one vector per
// input text, in order, no matter what the provider does. Blank texts and
// failed batches degrade to zero vectors instead of failing the caller.
type EmbeddingGateway struct {
	client    driven.EmbeddingClient
	batchSize int
	maxChars  int
}

// NewEmbeddingGateway creates a gateway over a provider client.
func NewEmbeddingGateway(client driven.EmbeddingClient) *EmbeddingGateway {
	return &EmbeddingGateway{
		client:    client,
		batchSize: DefaultEmbedBatchSize,
		maxChars:  DefaultMaxEmbedChars,
	}
}

// Dimensions returns the vector size produced by the underlying model.
func (g *EmbeddingGateway) Dimensions() int {
	return g.client.Dimensions()
}

// EmbedOne embeds a single text. Blank input yields a zero vector.
func (g *EmbeddingGateway) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in provider-sized batches and guarantees
// len(result) == len(texts) with result[i] corresponding to texts[i].
// Blank texts become zero vectors without a provider call; a batch whose
// provider call fails becomes zero vectors for every text in it, and the
// run continues.
func (g *EmbeddingGateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	dims := g.client.Dimensions()
	out := make([][]float32, len(texts))

	// Collect the texts worth sending, remembering their positions.
	positions := make([]int, 0, len(texts))
	payload := make([]string, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			out[i] = make([]float32, dims)
			continue
		}
		if len(text) > g.maxChars {
			logger.Warn("Embedding input truncated from %d to %d chars", len(text), g.maxChars)
			text = chunker.Truncate(text, g.maxChars)
		}
		positions = append(positions, i)
		payload = append(payload, text)
	}

	for start := 0; start < len(payload); start += g.batchSize {
		end := start + g.batchSize
		if end > len(payload) {
			end = len(payload)
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		vectors, err := g.client.Embed(ctx, payload[start:end])
		if err == nil && len(vectors) != end-start {
			err = fmt.Errorf("provider returned %d vectors for %d texts", len(vectors), end-start)
		}
		if err != nil {
			logger.Warn("Embedding batch of %d failed: %v. Substituting zero vectors", end-start, err)
			for i := start; i < end; i++ {
				out[positions[i]] = make([]float32, dims)
			}
			continue
		}

		for i, vec := range vectors {
			out[positions[start+i]] = vec
		}
	}

	return out, nil
}
