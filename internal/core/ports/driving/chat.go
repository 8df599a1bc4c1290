package driving

import (
	"context"

	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
)

// ChatService answers natural-language questions against the synced corpus.
type ChatService interface {
	// Run executes the full query pipeline. It never returns an error: any
	// failure is converted into a result with ResponseType "error" and a
	// user-presentable message.
	Run(ctx context.Context, query string) domain.ChatResult
}
