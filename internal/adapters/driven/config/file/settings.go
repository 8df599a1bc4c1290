package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// Settings is the full knowbase configuration, one TOML table per concern.
// Zero values mean "use the component default".
type Settings struct {
	OpenAI     OpenAISettings     `toml:"openai"`
	Jira       JiraSettings       `toml:"jira"`
	Confluence ConfluenceSettings `toml:"confluence"`
	Index      IndexSettings      `toml:"index"`
	Chat       ChatSettings       `toml:"chat"`
	Chunking   ChunkingSettings   `toml:"chunking"`
	GCS        GCSSettings        `toml:"gcs"`
}

// OpenAISettings configures the embedding and chat completion clients.
type OpenAISettings struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	EmbeddingModel string `toml:"embedding_model"`
	ChatModel      string `toml:"chat_model"`
	Dimensions     int    `toml:"dimensions"`
}

// JiraSettings configures the Jira source connector.
type JiraSettings struct {
	BaseURL     string   `toml:"base_url"`
	Email       string   `toml:"email"`
	APIToken    string   `toml:"api_token"`
	ProjectKeys []string `toml:"project_keys"`
	PageSize    int      `toml:"page_size"`
}

// ConfluenceSettings configures the Confluence source connector.
type ConfluenceSettings struct {
	BaseURL   string   `toml:"base_url"`
	Email     string   `toml:"email"`
	APIToken  string   `toml:"api_token"`
	SpaceKeys []string `toml:"space_keys"`
	PageSize  int      `toml:"page_size"`
}

// IndexSettings locates the local data and index files.
type IndexSettings struct {
	DataDir string `toml:"data_dir"`
	Path    string `toml:"path"`
}

// ChatSettings tunes retrieval and relevance.
type ChatSettings struct {
	TopK                int     `toml:"top_k"`
	SimilarityThreshold float64 `toml:"similarity_threshold"`
}

// ChunkingSettings tunes the document splitter.
type ChunkingSettings struct {
	Size    int `toml:"size"`
	Overlap int `toml:"overlap"`
}

// GCSSettings configures optional index backup to Google Cloud Storage.
// Backup is disabled while Bucket is empty.
type GCSSettings struct {
	Bucket          string `toml:"bucket"`
	Prefix          string `toml:"prefix"`
	CredentialsFile string `toml:"credentials_file"`
}

// Store reads and writes Settings in a TOML file.
type Store struct {
	mu       sync.Mutex
	filePath string
}

// NewStore creates a settings store. If configDir is empty, it defaults to
// ~/.knowbase.
func NewStore(configDir string) (*Store, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		configDir = filepath.Join(home, ".knowbase")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	return &Store{filePath: filepath.Join(configDir, "config.toml")}, nil
}

// Load reads the settings file. A missing file yields zero-value Settings
// without error so first runs work before any configuration.
func (s *Store) Load() (*Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &Settings{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", s.filePath, err)
	}

	var settings Settings
	if err := toml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.filePath, err)
	}
	return &settings, nil
}

// Save writes the settings file with restricted permissions, since it holds
// API tokens.
func (s *Store) Save(settings *Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := toml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.WriteFile(s.filePath, data, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", s.filePath, err)
	}
	return nil
}

// Path returns the configuration file path.
func (s *Store) Path() string {
	return s.filePath
}
