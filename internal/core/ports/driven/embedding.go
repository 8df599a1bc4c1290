package driven

import "context"

// EmbeddingClient is a thin wrapper over a hosted embedding provider.
// Batching, truncation and empty-input policy live in the embedding gateway
// service, not here: the client just turns text into vectors or fails.
type EmbeddingClient interface {
	// Embed generates one vector per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size produced by the model.
	// This must match the vector index configuration.
	Dimensions() int

	// ModelName returns the embedding model identifier.
	ModelName() string

	// Ping validates the provider is reachable with a lightweight request.
	Ping(ctx context.Context) error
}
