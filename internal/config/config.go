// Package config provides configuration management for PKVault.
// Settings are resolved in three layers: built-in defaults, an optional
// config.yaml file, and environment variables with the PKVAULT_ prefix
// (highest precedence). All paths are expanded to absolute paths.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the PKVault application.
type Config struct {
	// VaultPath is the root of the markdown vault the writer emits into.
	VaultPath string `yaml:"vault_path"`

	// IngestPath is the directory scanned (or watched) for raw files.
	IngestPath string `yaml:"ingest_path"`

	// DataPath holds the local vector index (SQLite database file).
	DataPath string `yaml:"data_path"`

	// StorageBackend selects the vector store: sqlite, postgres or dual.
	StorageBackend string `yaml:"storage_backend"`

	Postgres   PostgresConfig   `yaml:"postgres"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	LLM        LLMConfig        `yaml:"llm"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Clustering ClusteringConfig `yaml:"clustering"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Watch      WatchConfig      `yaml:"watch"`
}

// PostgresConfig contains connection settings for the warehouse-backed
// vector store mirror.
type PostgresConfig struct {
	DSN   string `yaml:"dsn"`   // lib/pq connection string
	Table string `yaml:"table"` // chunk table name (default: pkvault_chunks)
}

// EmbeddingConfig configures the external embedding model collaborator.
type EmbeddingConfig struct {
	OllamaURL string `yaml:"ollama_url"` // default: http://localhost:11434
	Model     string `yaml:"model"`      // default: nomic-embed-text
	BatchSize int    `yaml:"batch_size"` // chunks per embed batch (default: 32)
}

// LLMConfig configures the answer-synthesis and enrichment collaborator.
type LLMConfig struct {
	Provider        string `yaml:"provider"` // anthropic, openai or ollama
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	AnthropicModel  string `yaml:"anthropic_model"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	OpenAIModel     string `yaml:"openai_model"`
	OllamaURL       string `yaml:"ollama_url"`
	OllamaModel     string `yaml:"ollama_model"`
}

// ChunkingConfig controls how extracted text is split for embedding.
type ChunkingConfig struct {
	MaxTokens         int  `yaml:"max_tokens"`
	OverlapTokens     int  `yaml:"overlap_tokens"`
	RespectBoundaries bool `yaml:"respect_boundaries"`
}

// ClusteringConfig holds OPTICS parameters.
type ClusteringConfig struct {
	MinSamples     int     `yaml:"min_samples"`
	Xi             float64 `yaml:"xi"`
	MinClusterSize int     `yaml:"min_cluster_size"`
}

// EnrichmentConfig bounds how much cluster enrichment asks of the LLM.
type EnrichmentConfig struct {
	MaxClusters       int `yaml:"max_clusters"`
	MaxDocsPerCluster int `yaml:"max_docs_per_cluster"`
}

// WatchConfig controls the file-system watch mode.
type WatchConfig struct {
	// DebounceSeconds is the quiet period after the last file event
	// before the accumulated batch is processed.
	DebounceSeconds float64 `yaml:"debounce_seconds"`
}

// Default returns the built-in configuration defaults. Paths are left
// unexpanded; Load takes care of that.
func Default() *Config {
	return &Config{
		VaultPath:      "~/.pkvault/vault",
		IngestPath:     "~/.pkvault/ingest",
		DataPath:       "~/.pkvault/data",
		StorageBackend: "sqlite",
		Postgres: PostgresConfig{
			Table: "pkvault_chunks",
		},
		Embedding: EmbeddingConfig{
			OllamaURL: "http://localhost:11434",
			Model:     "nomic-embed-text",
			BatchSize: 32,
		},
		LLM: LLMConfig{
			Provider:       "anthropic",
			AnthropicModel: "claude-sonnet-4-20250514",
			OpenAIModel:    "gpt-4o",
			OllamaURL:      "http://localhost:11434",
			OllamaModel:    "qwen2.5:7b",
		},
		Chunking: ChunkingConfig{
			MaxTokens:         500,
			OverlapTokens:     50,
			RespectBoundaries: true,
		},
		Clustering: ClusteringConfig{
			MinSamples:     3,
			Xi:             0.05,
			MinClusterSize: 3,
		},
		Enrichment: EnrichmentConfig{
			MaxClusters:       20,
			MaxDocsPerCluster: 10,
		},
		Watch: WatchConfig{
			DebounceSeconds: 5,
		},
	}
}

// Load resolves the configuration. When path is empty the standard
// locations are searched: ./config/config.yaml, ./config.yaml,
// ~/.pkvault/config.yaml. A missing file is not an error; a malformed
// one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	for _, p := range []*string{&cfg.VaultPath, &cfg.IngestPath, &cfg.DataPath} {
		expanded, err := expandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}

	return cfg, nil
}

// findConfigFile looks for config.yaml in the standard locations.
func findConfigFile() string {
	candidates := []string{
		filepath.Join("config", "config.yaml"),
		"config.yaml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".pkvault", "config.yaml"))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// applyEnv overrides file/default values from the environment.
// Provider credentials also honor the conventional unprefixed names.
func applyEnv(cfg *Config) {
	cfg.VaultPath = getEnv("PKVAULT_VAULT_PATH", cfg.VaultPath)
	cfg.IngestPath = getEnv("PKVAULT_INGEST_PATH", cfg.IngestPath)
	cfg.DataPath = getEnv("PKVAULT_DATA_PATH", cfg.DataPath)
	cfg.StorageBackend = getEnv("PKVAULT_STORAGE_BACKEND", cfg.StorageBackend)
	cfg.Postgres.DSN = getEnv("PKVAULT_POSTGRES_DSN", cfg.Postgres.DSN)
	cfg.Postgres.Table = getEnv("PKVAULT_POSTGRES_TABLE", cfg.Postgres.Table)
	cfg.Embedding.OllamaURL = getEnv("PKVAULT_OLLAMA_URL", cfg.Embedding.OllamaURL)
	cfg.Embedding.Model = getEnv("PKVAULT_EMBEDDING_MODEL", cfg.Embedding.Model)
	cfg.Embedding.BatchSize = getEnvInt("PKVAULT_EMBEDDING_BATCH_SIZE", cfg.Embedding.BatchSize)
	cfg.LLM.Provider = getEnv("PKVAULT_LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", cfg.LLM.AnthropicAPIKey)
	cfg.LLM.AnthropicAPIKey = getEnv("PKVAULT_ANTHROPIC_API_KEY", cfg.LLM.AnthropicAPIKey)
	cfg.LLM.AnthropicModel = getEnv("PKVAULT_ANTHROPIC_MODEL", cfg.LLM.AnthropicModel)
	cfg.LLM.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.LLM.OpenAIAPIKey)
	cfg.LLM.OpenAIAPIKey = getEnv("PKVAULT_OPENAI_API_KEY", cfg.LLM.OpenAIAPIKey)
	cfg.LLM.OpenAIModel = getEnv("PKVAULT_OPENAI_MODEL", cfg.LLM.OpenAIModel)
	cfg.LLM.OllamaURL = getEnv("PKVAULT_LLM_OLLAMA_URL", cfg.LLM.OllamaURL)
	cfg.LLM.OllamaModel = getEnv("PKVAULT_LLM_OLLAMA_MODEL", cfg.LLM.OllamaModel)
}

// expandPath resolves a leading ~ and makes the path absolute.
func expandPath(p string) (string, error) {
	if p == "" {
		return p, nil
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("config: expand %s: %w", p, err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("config: expand %s: %w", p, err)
	}
	return abs, nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a
// default value. An unparseable value falls back to the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
