package driven

import "context"

// ChatMessage is a single message in a completion request.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures a completion call.
type ChatOptions struct {
	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64

	// MaxTokens caps the completion length.
	MaxTokens int
}

// LLMClient is a thin wrapper over a hosted chat-completion provider.
// Structured-JSON calls are ordinary completions the caller parses.
type LLMClient interface {
	// Complete produces a completion for the given conversation.
	Complete(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// ModelName returns the model identifier.
	ModelName() string

	// Ping validates the provider is reachable with a lightweight request.
	Ping(ctx context.Context) error
}
