// Package config holds the immutable configuration snapshot for one RAG
// system instance. A Config is validated once at construction and never
// mutated afterwards; reconfiguration means building a new system.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // openai | ollama
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url,omitempty"`
	BatchSize int    `yaml:"batch_size,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant backend.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
}

// StoreConfig selects the vector store backend.
type StoreConfig struct {
	Backend string       `yaml:"backend"` // local | qdrant
	Path    string       `yaml:"path"`    // local persist directory
	Qdrant  QdrantConfig `yaml:"qdrant,omitempty"`
}

// LLMConfig selects and tunes the generation provider.
// APIKeyEnv names the environment variable holding the key; the key itself
// never lives in the config file.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // deepseek | openai | ollama
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	APIKeyEnv   string  `yaml:"api_key_env,omitempty"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// RetrievalConfig tunes the retrieve step.
// SimilarityThreshold is carried for compatibility but is advisory: no
// call site filters on it.
type RetrievalConfig struct {
	K                   int     `yaml:"k"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// Config is the root configuration for a RAG system instance.
type Config struct {
	Embedding    EmbeddingConfig `yaml:"embedding"`
	Store        StoreConfig     `yaml:"store"`
	LLM          LLMConfig       `yaml:"llm"`
	Retrieval    RetrievalConfig `yaml:"retrieval"`
	DocumentsDir string          `yaml:"documents_dir"`
}

// Default returns the configuration used when no file is present:
// a local store fed by local Ollama embeddings, answering with DeepSeek.
func Default() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider: "ollama",
			Model:    "nomic-embed-text",
		},
		Store: StoreConfig{
			Backend: "local",
			Path:    "./data/vectorstore",
			Qdrant: QdrantConfig{
				Host:       "localhost",
				Port:       6334,
				Collection: "ragcore",
			},
		},
		LLM: LLMConfig{
			Provider:    "deepseek",
			Model:       "deepseek-chat",
			APIKeyEnv:   "DEEPSEEK_API_KEY",
			MaxTokens:   1000,
			Temperature: 0.7,
		},
		Retrieval: RetrievalConfig{
			K:                   3,
			SimilarityThreshold: 0.0,
		},
		DocumentsDir: "./data/documents",
	}
}

// Load reads a YAML config from path, filling unset fields with defaults.
// A missing file is not an error: it returns Default().
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults backfills fields the YAML zeroed out.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Retrieval.K == 0 {
		cfg.Retrieval.K = def.Retrieval.K
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = def.LLM.MaxTokens
	}
	if cfg.LLM.APIKeyEnv == "" {
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.APIKeyEnv = "OPENAI_API_KEY"
		default:
			cfg.LLM.APIKeyEnv = def.LLM.APIKeyEnv
		}
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = def.Store.Path
	}
	if cfg.Store.Qdrant.Host == "" {
		cfg.Store.Qdrant = def.Store.Qdrant
	}
	if cfg.DocumentsDir == "" {
		cfg.DocumentsDir = def.DocumentsDir
	}
}

// Validate checks value ranges and selector fields once, up front.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	switch c.Store.Backend {
	case "local", "qdrant":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.LLM.Provider {
	case "deepseek", "openai", "ollama", "":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	if c.Retrieval.K <= 0 {
		return fmt.Errorf("retrieval k must be positive, got %d", c.Retrieval.K)
	}
	if c.Retrieval.SimilarityThreshold < 0 || c.Retrieval.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold must be in [0, 1], got %g", c.Retrieval.SimilarityThreshold)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.LLM.MaxTokens)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("temperature must be in [0, 2], got %g", c.LLM.Temperature)
	}
	return nil
}
