package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	configfile "github.com/knowbase-labs/knowbase-cli/internal/adapters/driven/config/file"
	embeddingopenai "github.com/knowbase-labs/knowbase-cli/internal/adapters/driven/embedding/openai"
	llmopenai "github.com/knowbase-labs/knowbase-cli/internal/adapters/driven/llm/openai"
	"github.com/knowbase-labs/knowbase-cli/internal/adapters/driven/objstore/gcs"
	"github.com/knowbase-labs/knowbase-cli/internal/adapters/driven/source/confluence"
	"github.com/knowbase-labs/knowbase-cli/internal/adapters/driven/source/jira"
	"github.com/knowbase-labs/knowbase-cli/internal/adapters/driven/storage/sqlite"
	"github.com/knowbase-labs/knowbase-cli/internal/adapters/driven/vector/flat"
	"github.com/knowbase-labs/knowbase-cli/internal/adapters/driving/cli"
	"github.com/knowbase-labs/knowbase-cli/internal/chunker"
	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
	"github.com/knowbase-labs/knowbase-cli/internal/core/ports/driven"
	"github.com/knowbase-labs/knowbase-cli/internal/core/services"
	"github.com/knowbase-labs/knowbase-cli/internal/logger"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cli.SetVersion(version)

	settingsStore, err := configfile.NewStore("")
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	settings, err := settingsStore.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := sqlite.NewStore(settings.Index.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	svcs := &cli.Services{
		Documents: store.DocumentStore(),
		History:   store.SyncHistoryStore(),
		Settings:  settingsStore,
		Testers:   map[string]cli.ConnectionTester{},
	}

	splitter := chunker.New(settings.Chunking.Size, settings.Chunking.Overlap)
	sources := buildSources(settings, svcs)

	if len(sources) > 0 {
		svcs.Sync = services.NewSyncEngine(
			svcs.Documents, svcs.History, sources, splitter, uuid.NewString)
	}

	var stopReloader func()
	if settings.OpenAI.APIKey != "" {
		stopReloader, err = wireOpenAI(settings, store, splitter, svcs)
		if err != nil {
			return err
		}
	}
	if stopReloader != nil {
		defer stopReloader()
	}

	cli.SetServices(svcs)
	return cli.Execute()
}

// buildSources constructs the configured source clients and registers their
// connection testers.
func buildSources(settings *configfile.Settings, svcs *cli.Services) []driven.SourceClient {
	var sources []driven.SourceClient

	if settings.Jira.BaseURL != "" {
		client, err := jira.New(jira.Config{
			BaseURL:     settings.Jira.BaseURL,
			Email:       settings.Jira.Email,
			APIToken:    settings.Jira.APIToken,
			ProjectKeys: settings.Jira.ProjectKeys,
			PageSize:    settings.Jira.PageSize,
		})
		if err != nil {
			logger.Warn("Jira client not available: %v", err)
		} else {
			sources = append(sources, client)
			svcs.Testers["jira"] = client.TestConnection
		}
	}

	if settings.Confluence.BaseURL != "" {
		client, err := confluence.New(confluence.Config{
			BaseURL:   settings.Confluence.BaseURL,
			Email:     settings.Confluence.Email,
			APIToken:  settings.Confluence.APIToken,
			SpaceKeys: settings.Confluence.SpaceKeys,
			PageSize:  settings.Confluence.PageSize,
		})
		if err != nil {
			logger.Warn("Confluence client not available: %v", err)
		} else {
			sources = append(sources, client)
			svcs.Testers["confluence"] = client.TestConnection
		}
	}

	return sources
}

// wireOpenAI builds the embedding-dependent services: the vector index, the
// chat pipeline and the chunk indexer. Returns a stop function for the index
// reload watcher, which may be nil.
func wireOpenAI(
	settings *configfile.Settings,
	store *sqlite.Store,
	splitter *chunker.Splitter,
	svcs *cli.Services,
) (func(), error) {
	embClient, err := embeddingopenai.New(embeddingopenai.Config{
		APIKey:     settings.OpenAI.APIKey,
		BaseURL:    settings.OpenAI.BaseURL,
		Model:      settings.OpenAI.EmbeddingModel,
		Dimensions: settings.OpenAI.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding client: %w", err)
	}
	llmClient, err := llmopenai.New(llmopenai.Config{
		APIKey:  settings.OpenAI.APIKey,
		BaseURL: settings.OpenAI.BaseURL,
		Model:   settings.OpenAI.ChatModel,
	})
	if err != nil {
		return nil, fmt.Errorf("creating LLM client: %w", err)
	}
	svcs.Testers["openai"] = embClient.Ping

	indexPath := settings.Index.Path
	if indexPath == "" {
		indexPath = filepath.Join(filepath.Dir(store.Path()), "index.bin")
	}

	index := flat.New(embClient.Dimensions())
	if err := index.Load(indexPath); err != nil {
		switch {
		case errors.Is(err, domain.ErrIndexCorrupt):
			logger.Warn("Index at %s is corrupt, starting empty (run 'knowbase rebuild'): %v", indexPath, err)
		case errors.Is(err, domain.ErrDimensionMismatch):
			logger.Warn("Index at %s was built for a different embedding dimension, starting empty (run 'knowbase rebuild'): %v", indexPath, err)
		case errors.Is(err, os.ErrNotExist):
			logger.Debug("No index at %s yet", indexPath)
		default:
			logger.Warn("Could not load index from %s: %v", indexPath, err)
		}
	}

	svcs.Index = index

	gateway := services.NewEmbeddingGateway(embClient)

	relevance := services.NewRelevanceDecider(llmClient)
	relevance.SetThreshold(settings.Chat.SimilarityThreshold)

	svcs.Chat = services.NewChatPipeline(
		services.NewQueryAnalyzer(llmClient),
		services.NewRetrievalService(svcs.Documents, index, gateway),
		relevance,
		services.NewResponseGenerator(llmClient),
	)

	indexer := services.NewChunkIndexer(
		svcs.Documents, index, gateway, splitter, uuid.NewString, indexPath)
	if settings.GCS.Bucket != "" {
		objStore, err := gcs.New(context.Background(), gcs.Config{
			Bucket:          settings.GCS.Bucket,
			Prefix:          settings.GCS.Prefix,
			CredentialsFile: settings.GCS.CredentialsFile,
		})
		if err != nil {
			logger.Warn("GCS backup not available: %v", err)
		} else {
			indexer.SetObjectStorage(objStore)
		}
	}
	svcs.Indexer = indexer

	// Pick up index rebuilds done by a concurrent batch run.
	reloader := services.NewIndexReloader(index, indexPath)
	if err := reloader.Start(); err != nil {
		logger.Debug("Index reload watcher not started: %v", err)
		return nil, nil
	}
	return reloader.Stop, nil
}
