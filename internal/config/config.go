// Package config provides configuration loading and structs for the Teller assistant.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Accounts  AccountsConfig  `yaml:"accounts"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Chat      ChatConfig      `yaml:"chat"`
}

// ServerConfig holds HTTP settings for the assistant API.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// AccountsConfig holds settings for the mock account service: where it
// listens when run via "teller accounts", and the base URL the action agent
// calls it at.
type AccountsConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url"`
}

// StorageConfig holds paths for the corpus snapshot and the ledger database.
type StorageConfig struct {
	SnapshotDir string `yaml:"snapshot_dir"`
	LedgerPath  string `yaml:"ledger_path"`
}

// EmbeddingConfig selects and configures the embedder.
// Provider is one of "openai" (OpenAI-compatible HTTP API), "onnx" (local
// model, requires CGO), or "mock" (deterministic, for tests/dev).
// The API key is read from the environment variable named by APIKeyEnv;
// keys are never stored in the config file.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	BaseURL    string `yaml:"base_url"`
	APIKeyEnv  string `yaml:"api_key_env"`
	Model      string `yaml:"model"`
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// LLMConfig configures the chat-completion client used for answer synthesis.
// The API key is read from the environment variable named by APIKeyEnv.
type LLMConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// IngestConfig holds document folder and chunking settings.
type IngestConfig struct {
	DocsDir      string   `yaml:"docs_dir"`
	ChunkSize    int      `yaml:"chunk_size"`
	ChunkOverlap int      `yaml:"chunk_overlap"`
	PreviewChars int      `yaml:"preview_chars"`
	Extensions   []string `yaml:"extensions"`
	Watch        bool     `yaml:"watch"`
}

// ChatConfig holds retrieval and orchestration settings for /chat.
type ChatConfig struct {
	TopK               int `yaml:"top_k"`
	ContextChars       int `yaml:"context_chars"`
	RequestTimeoutSecs int `yaml:"request_timeout_secs"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.SnapshotDir = expandPath(cfg.Storage.SnapshotDir, configDir)
	cfg.Storage.LedgerPath = expandPath(cfg.Storage.LedgerPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Ingest.DocsDir = expandPath(cfg.Ingest.DocsDir, configDir)

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
