package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
)

func isZeroVector(v []float32) bool {
	for _, f := range v {
		if f != 0 {
			return false
		}
	}
	return true
}

func TestEmbedBatchReturnsOneVectorPerText(t *testing.T) {
	g := NewEmbeddingGateway(&mockEmbeddingClient{dims: 4})
	texts := []string{"alpha", "beta", "gamma"}

	vectors, err := g.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))
	for _, v := range vectors {
		assert.Len(t, v, 4)
		assert.False(t, isZeroVector(v))
	}
}

func TestEmbedBatchBlankTextsBecomeZeroVectors(t *testing.T) {
	client := &mockEmbeddingClient{dims: 3}
	g := NewEmbeddingGateway(client)

	vectors, err := g.EmbedBatch(context.Background(), []string{"real", "", "   ", "also real"})
	require.NoError(t, err)
	require.Len(t, vectors, 4)
	assert.False(t, isZeroVector(vectors[0]))
	assert.True(t, isZeroVector(vectors[1]))
	assert.True(t, isZeroVector(vectors[2]))
	assert.False(t, isZeroVector(vectors[3]))
}

func TestEmbedBatchFailedBatchDegradesToZeroVectors(t *testing.T) {
	client := &mockEmbeddingClient{
		dims:        3,
		failBatches: map[int]error{1: fmt.Errorf("down: %w", domain.ErrUnavailable)},
	}
	g := NewEmbeddingGateway(client)
	g.batchSize = 2

	vectors, err := g.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)

	// First batch of two failed, third text was in the second batch.
	assert.True(t, isZeroVector(vectors[0]))
	assert.True(t, isZeroVector(vectors[1]))
	assert.False(t, isZeroVector(vectors[2]))
}

func TestEmbedBatchTruncatesOversizedText(t *testing.T) {
	var seen string
	client := &mockEmbeddingClient{
		dims: 2,
		vectorFor: func(text string) []float32 {
			seen = text
			return []float32{1, 0}
		},
	}
	g := NewEmbeddingGateway(client)
	g.maxChars = 50

	_, err := g.EmbedBatch(context.Background(), []string{strings.Repeat("x", 200)})
	require.NoError(t, err)
	assert.Len(t, seen, 50)
}

func TestEmbedBatchTruncationKeepsValidUTF8(t *testing.T) {
	var seen string
	client := &mockEmbeddingClient{
		dims: 2,
		vectorFor: func(text string) []float32 {
			seen = text
			return []float32{1, 0}
		},
	}
	g := NewEmbeddingGateway(client)
	g.maxChars = 50

	_, err := g.EmbedBatch(context.Background(), []string{strings.Repeat("배포", 100)})
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(seen))
	assert.LessOrEqual(t, len(seen), 50)
	assert.NotEmpty(t, seen)
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	g := NewEmbeddingGateway(&mockEmbeddingClient{dims: 3})
	vectors, err := g.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestEmbedBatchSplitsIntoProviderBatches(t *testing.T) {
	client := &mockEmbeddingClient{dims: 2}
	g := NewEmbeddingGateway(client)
	g.batchSize = 10

	texts := make([]string, 25)
	for i := range texts {
		texts[i] = fmt.Sprintf("text %d", i)
	}
	vectors, err := g.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, vectors, 25)
	assert.Equal(t, 3, client.calls)
}

func TestEmbedOneBlankIsZeroVector(t *testing.T) {
	g := NewEmbeddingGateway(&mockEmbeddingClient{dims: 3})
	vec, err := g.EmbedOne(context.Background(), "  ")
	require.NoError(t, err)
	assert.True(t, isZeroVector(vec))
}
