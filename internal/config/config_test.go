package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config must validate, got %v", err)
	}
	if cfg.Retrieval.K != 3 {
		t.Errorf("Expected default k 3, got %d", cfg.Retrieval.K)
	}
	if cfg.Store.Backend != "local" {
		t.Errorf("Expected default backend 'local', got %q", cfg.Store.Backend)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Embedding.Provider != "ollama" {
		t.Errorf("Expected default embedding provider, got %q", cfg.Embedding.Provider)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
embedding:
  provider: openai
  model: text-embedding-3-small
store:
  backend: qdrant
retrieval:
  k: 5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Embedding.Provider != "openai" {
		t.Errorf("Expected provider 'openai', got %q", cfg.Embedding.Provider)
	}
	if cfg.Store.Backend != "qdrant" {
		t.Errorf("Expected backend 'qdrant', got %q", cfg.Store.Backend)
	}
	if cfg.Retrieval.K != 5 {
		t.Errorf("Expected k 5, got %d", cfg.Retrieval.K)
	}

	// Unset fields keep defaults.
	if cfg.Store.Qdrant.Host != "localhost" || cfg.Store.Qdrant.Port != 6334 {
		t.Errorf("Expected default qdrant endpoint, got %+v", cfg.Store.Qdrant)
	}
	if cfg.LLM.MaxTokens != 1000 {
		t.Errorf("Expected default max tokens, got %d", cfg.LLM.MaxTokens)
	}
	if cfg.DocumentsDir != "./data/documents" {
		t.Errorf("Expected default documents dir, got %q", cfg.DocumentsDir)
	}
}

// TestLoad_APIKeyEnvFollowsProvider verifies the key variable defaults per
// provider when not set explicitly.
func TestLoad_APIKeyEnvFollowsProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
llm:
  provider: openai
  model: gpt-4o-mini
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.APIKeyEnv != "OPENAI_API_KEY" {
		t.Errorf("Expected OPENAI_API_KEY for openai provider, got %q", cfg.LLM.APIKeyEnv)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("embedding: [not: closed"), 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown embedding provider", func(c *Config) { c.Embedding.Provider = "cohere" }},
		{"unknown store backend", func(c *Config) { c.Store.Backend = "redis" }},
		{"unknown llm provider", func(c *Config) { c.LLM.Provider = "claude" }},
		{"non-positive k", func(c *Config) { c.Retrieval.K = 0 }},
		{"threshold above 1", func(c *Config) { c.Retrieval.SimilarityThreshold = 1.5 }},
		{"negative threshold", func(c *Config) { c.Retrieval.SimilarityThreshold = -0.1 }},
		{"non-positive max tokens", func(c *Config) { c.LLM.MaxTokens = 0 }},
		{"temperature above 2", func(c *Config) { c.LLM.Temperature = 2.5 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Expected validation error for %s", tc.name)
			}
		})
	}
}

// TestValidate_EmptyLLMProvider verifies retrieval-only configs are legal.
func TestValidate_EmptyLLMProvider(t *testing.T) {
	cfg := Default()
	cfg.LLM.Provider = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("Empty llm provider should validate, got %v", err)
	}
}
