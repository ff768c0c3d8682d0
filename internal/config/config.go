package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ragingest/internal/domain"
)

// Environment variables consulted after the file is loaded.
const (
	EnvEndpoint       = "RAGINGEST_ENDPOINT"
	EnvQdrantURL      = "QDRANT_URL"
	EnvCredential     = "RAGINGEST_CREDENTIAL"
	EnvQdrantAPIKey   = "QDRANT_API_KEY"
	EnvCollection     = "RAGINGEST_COLLECTION"
	DefaultFileName   = "ragingest.yaml"
	defaultCollection = "test"
)

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	Endpoint      string `yaml:"endpoint"`
	Credential    string `yaml:"credential,omitempty"`
	CredentialEnv string `yaml:"credential_env,omitempty"`
	TimeoutSecs   int    `yaml:"timeout_secs"`
}

// SQLiteConfig locates the local database.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// StoreConfig selects and configures the vector store implementation.
type StoreConfig struct {
	Type   string       `yaml:"type"`
	Qdrant QdrantConfig `yaml:"qdrant"`
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// CollectionConfig declares the destination collection and its geometry.
type CollectionConfig struct {
	Name      string `yaml:"name"`
	Dimension uint64 `yaml:"dimension"`
	Distance  string `yaml:"distance"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// OllamaEmbedderConfig points at a local Ollama server.
type OllamaEmbedderConfig struct {
	BaseURL string `yaml:"base_url"`
}

// EmbedderConfig selects and configures the embedding provider.
type EmbedderConfig struct {
	Provider          string               `yaml:"provider"`
	Model             string               `yaml:"model"`
	Dimension         int                  `yaml:"dimension"`
	BatchSize         int                  `yaml:"batch_size"`
	Workers           int                  `yaml:"workers"`
	RequestsPerSecond float64              `yaml:"requests_per_second"`
	TimeoutSecs       int                  `yaml:"timeout_secs"`
	OpenAI            OpenAIEmbedderConfig `yaml:"openai"`
	Ollama            OllamaEmbedderConfig `yaml:"ollama"`
}

// SegmenterConfig configures how documents are split into segments.
type SegmenterConfig struct {
	Type              string `yaml:"type"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`
}

// WriterConfig controls ingestion writes.
type WriterConfig struct {
	Wait                    *bool `yaml:"wait"`
	FailOnMissingCollection bool  `yaml:"fail_on_missing_collection"`
}

// WaitForCompletion reports the effective wait flag. Unset means true.
func (w WriterConfig) WaitForCompletion() bool {
	return w.Wait == nil || *w.Wait
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Store      StoreConfig      `yaml:"store"`
	Collection CollectionConfig `yaml:"collection"`
	Embedder   EmbedderConfig   `yaml:"embedder"`
	Segmenter  SegmenterConfig  `yaml:"segmenter"`
	Writer     WriterConfig     `yaml:"writer"`
	Log        LogConfig        `yaml:"log"`
}

// StoreTimeout returns the per-call store timeout.
func (c *AppConfig) StoreTimeout() time.Duration {
	return time.Duration(c.Store.Qdrant.TimeoutSecs) * time.Second
}

// EmbedderTimeout returns the per-request embedding timeout.
func (c *AppConfig) EmbedderTimeout() time.Duration {
	return time.Duration(c.Embedder.TimeoutSecs) * time.Second
}

// Descriptor returns the configured collection geometry.
func (c *AppConfig) Descriptor() (domain.CollectionDescriptor, error) {
	d, err := domain.ParseDistance(c.Collection.Distance)
	if err != nil {
		return domain.CollectionDescriptor{}, err
	}
	return domain.CollectionDescriptor{Name: c.Collection.Name, Dimension: c.Collection.Dimension, Distance: d}, nil
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", domain.ErrInvalidInput, path, err)
	}
	applyConfigDefaults(cfg)
	applyEnv(cfg)
	return cfg, nil
}

// LoadDefault tries ./ragingest.yaml first, then ~/.config/ragingest/config.yaml.
// If neither exists, it writes defaults to ~/.config/ragingest/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	if _, err := os.Stat(DefaultFileName); err == nil {
		cfg, err := Load(DefaultFileName)
		return cfg, DefaultFileName, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnv(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
// The file is private to the user since it may hold a credential.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate rejects configurations the pipeline cannot run with.
func (c *AppConfig) Validate() error {
	var errs []error
	switch c.Store.Type {
	case "qdrant":
		if c.Store.Qdrant.Endpoint == "" {
			errs = append(errs, errors.New("store.qdrant.endpoint is required"))
		}
	case "sqlite":
		if c.Store.SQLite.Path == "" {
			errs = append(errs, errors.New("store.sqlite.path is required"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown store type %q", c.Store.Type))
	}
	if strings.TrimSpace(c.Collection.Name) == "" {
		errs = append(errs, errors.New("collection.name is required"))
	}
	if c.Collection.Dimension == 0 {
		errs = append(errs, errors.New("collection.dimension must be positive"))
	}
	if _, err := domain.ParseDistance(c.Collection.Distance); err != nil {
		errs = append(errs, err)
	}
	switch c.Embedder.Provider {
	case "hashing", "openai", "ollama":
	default:
		errs = append(errs, fmt.Errorf("unknown embedder provider %q", c.Embedder.Provider))
	}
	if c.Embedder.Dimension > 0 && uint64(c.Embedder.Dimension) != c.Collection.Dimension {
		errs = append(errs, fmt.Errorf("embedder.dimension %d does not match collection.dimension %d",
			c.Embedder.Dimension, c.Collection.Dimension))
	}
	switch c.Segmenter.Type {
	case "line", "sentence":
	default:
		errs = append(errs, fmt.Errorf("unknown segmenter type %q", c.Segmenter.Type))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ragingest", "config.yaml"), nil
}

// Default returns the built-in configuration: a local Qdrant, a 384-dimension
// cosine collection named "test", the hashing embedder and line segments.
func Default() *AppConfig {
	return &AppConfig{
		Store: StoreConfig{
			Type:   "qdrant",
			Qdrant: QdrantConfig{Endpoint: "http://localhost:6333", TimeoutSecs: 15},
			SQLite: SQLiteConfig{Path: "ragingest.db"},
		},
		Collection: CollectionConfig{Name: defaultCollection, Dimension: 384, Distance: "cosine"},
		Embedder:   EmbedderConfig{Provider: "hashing", Workers: 1, BatchSize: 32, TimeoutSecs: 30},
		Segmenter:  SegmenterConfig{Type: "line", SentencesPerChunk: 5, OverlapSentences: 1},
		Log:        LogConfig{Level: "info", Format: "text"},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Store.Type == "" {
		cfg.Store.Type = "qdrant"
	}
	if cfg.Segmenter.Type == "" {
		cfg.Segmenter.Type = "line"
	}
	if cfg.Segmenter.SentencesPerChunk == 0 {
		cfg.Segmenter.SentencesPerChunk = 5
	}
	if cfg.Embedder.Provider == "" {
		cfg.Embedder.Provider = "hashing"
	}
	if cfg.Embedder.Workers <= 0 {
		cfg.Embedder.Workers = 1
	}
	if cfg.Embedder.Provider == "openai" {
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.Model == "" {
			cfg.Embedder.Model = "text-embedding-3-small"
		}
	}
	if cfg.Embedder.Provider == "ollama" && cfg.Embedder.Ollama.BaseURL == "" {
		cfg.Embedder.Ollama.BaseURL = "http://localhost:11434"
	}
	if cfg.Collection.Distance == "" {
		cfg.Collection.Distance = "cosine"
	}
}

// applyEnv overrides connection settings from the environment so that
// credentials never need to live in the config file.
func applyEnv(cfg *AppConfig) {
	if v := firstEnv(EnvEndpoint, EnvQdrantURL); v != "" {
		cfg.Store.Qdrant.Endpoint = v
	}
	names := []string{EnvCredential, EnvQdrantAPIKey}
	if cfg.Store.Qdrant.CredentialEnv != "" {
		names = append([]string{cfg.Store.Qdrant.CredentialEnv}, names...)
	}
	if v := firstEnv(names...); v != "" {
		cfg.Store.Qdrant.Credential = v
	}
	if v := firstEnv(EnvCollection); v != "" {
		cfg.Collection.Name = v
	}
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(os.Getenv(n)); v != "" {
			return v
		}
	}
	return ""
}
