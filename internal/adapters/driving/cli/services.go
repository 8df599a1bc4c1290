package cli

import (
	"context"

	"github.com/knowbase-labs/knowbase-cli/internal/adapters/driven/config/file"
	"github.com/knowbase-labs/knowbase-cli/internal/core/ports/driven"
	"github.com/knowbase-labs/knowbase-cli/internal/core/ports/driving"
)

// ConnectionTester verifies that a configured provider is reachable with
// the stored credentials.
type ConnectionTester func(ctx context.Context) error

// Services holds everything the commands need. Fields may be nil when the
// relevant provider is not configured; each command checks what it uses.
type Services struct {
	Chat      driving.ChatService
	Sync      driving.SyncRunner
	Indexer   driving.IndexRunner
	Documents driven.DocumentStore
	History   driven.SyncHistoryStore
	Index     driven.VectorIndex
	Settings  *file.Store

	// Testers maps provider names ("openai", "jira", "confluence") to
	// connection checks for the auth test command.
	Testers map[string]ConnectionTester
}

var services = &Services{}

// SetServices wires the command tree to its backing services.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	services = s
}
