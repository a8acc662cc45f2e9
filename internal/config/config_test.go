package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// clearEnv unsets the given keys for the duration of the test so asserts on
// defaults are not polluted by the caller's environment.
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_NoFile_Defaults(t *testing.T) {
	clearEnv(t,
		"LLM_BACKEND", "MODEL_NAME", "MODEL_TEMPERATURE",
		"VECTOR_BACKEND", "COLLECTION_NAME",
		"CHUNK_SIZE", "CHUNK_OVERLAP", "RETRIEVAL_K", "AGENT_MAX_STEPS",
	)

	cfg, path, err := Load("/nonexistent/path/config.yaml", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}

	if cfg.Model.Backend != "openai" {
		t.Errorf("Model.Backend: got %q, want openai", cfg.Model.Backend)
	}
	if cfg.Model.Name != "gpt-4o" {
		t.Errorf("Model.Name: got %q, want gpt-4o", cfg.Model.Name)
	}
	if cfg.Model.Temperature != 0 {
		t.Errorf("Model.Temperature: got %v, want 0", cfg.Model.Temperature)
	}
	if cfg.Vector.Collection != "RAG5" {
		t.Errorf("Vector.Collection: got %q, want RAG5", cfg.Vector.Collection)
	}
	if cfg.Ingest.ChunkSize != 800 || cfg.Ingest.ChunkOverlap != 200 {
		t.Errorf("chunking defaults: got %d/%d, want 800/200", cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	}
	if cfg.Retrieval.TopK != 10 {
		t.Errorf("Retrieval.TopK: got %d, want 10", cfg.Retrieval.TopK)
	}
	if cfg.Agent.MaxSteps != 12 {
		t.Errorf("Agent.MaxSteps: got %d, want 12", cfg.Agent.MaxSteps)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	clearEnv(t,
		"LLM_BACKEND", "MODEL_NAME", "MODEL_TEMPERATURE", "MODEL_MAX_TOKENS",
		"AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_DEPLOYMENT",
		"EMBEDDING_BACKEND", "EMBEDDING_MODEL",
		"VECTOR_BACKEND", "QDRANT_HOST", "QDRANT_PORT", "COLLECTION_NAME",
		"LOG_LEVEL", "LOG_FORMAT", "CHUNK_SIZE",
	)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
model:
  backend: azure
  name: gpt-4o
  max_tokens: 8192
  temperature: 0.3
  azure:
    endpoint: https://my-resource.openai.azure.com
    deployment: gpt-4o
embedding:
  backend: ollama
  model: nomic-embed-text
vector:
  backend: qdrant
  collection: my-docs
  qdrant:
    host: qdrant.internal
    port: 6334
logging:
  level: debug
  format: text
`)

	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, loaded, err := Load(cfgPath, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfgPath {
		t.Errorf("loaded path: got %q, want %q", loaded, cfgPath)
	}

	if cfg.Model.Backend != "azure" {
		t.Errorf("Model.Backend: got %q, want azure", cfg.Model.Backend)
	}
	if cfg.Model.MaxTokens != 8192 {
		t.Errorf("Model.MaxTokens: got %d, want 8192", cfg.Model.MaxTokens)
	}
	if cfg.Model.Azure.Endpoint != "https://my-resource.openai.azure.com" {
		t.Errorf("Azure.Endpoint: got %q", cfg.Model.Azure.Endpoint)
	}
	if cfg.Embedding.Backend != "ollama" || cfg.Embedding.Model != "nomic-embed-text" {
		t.Errorf("embedding: got %q/%q", cfg.Embedding.Backend, cfg.Embedding.Model)
	}
	if cfg.Vector.Qdrant.Host != "qdrant.internal" {
		t.Errorf("Qdrant.Host: got %q", cfg.Vector.Qdrant.Host)
	}
	if cfg.Vector.Collection != "my-docs" {
		t.Errorf("Vector.Collection: got %q", cfg.Vector.Collection)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("logging: got %q/%q", cfg.Logging.Level, cfg.Logging.Format)
	}

	// Fields absent from the YAML keep their defaults.
	if cfg.Ingest.ChunkSize != 800 {
		t.Errorf("ChunkSize default lost: got %d", cfg.Ingest.ChunkSize)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
model:
  backend: ollama
ingest:
  chunk_size: 500
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("LLM_BACKEND", "azure")
	t.Setenv("CHUNK_SIZE", "1200")

	cfg, _, err := Load(cfgPath, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Model.Backend != "azure" {
		t.Errorf("Model.Backend: expected env override azure, got %q", cfg.Model.Backend)
	}
	if cfg.Ingest.ChunkSize != 1200 {
		t.Errorf("ChunkSize: expected env override 1200, got %d", cfg.Ingest.ChunkSize)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(cfgPath, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := Load(cfgPath, nil)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_InvalidEnvValue(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "not-a-number")

	_, _, err := Load("/nonexistent/path/config.yaml", nil)
	if err == nil {
		t.Fatal("expected error for invalid CHUNK_SIZE")
	}
	if !strings.Contains(err.Error(), "CHUNK_SIZE") {
		t.Errorf("error should name the bad key, got: %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		cfg := Default()
		cfg.Model.OpenAI.APIKey = "sk-test"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid openai", func(c *Config) {}, ""},
		{"missing openai key", func(c *Config) { c.Model.OpenAI.APIKey = "" }, "OPENAI_API_KEY"},
		{"unknown llm backend", func(c *Config) { c.Model.Backend = "got-milk" }, "unknown LLM backend"},
		{"unknown embedding backend", func(c *Config) { c.Embedding.Backend = "word2vec" }, "unknown embedding backend"},
		{"pgvector needs dsn", func(c *Config) { c.Vector.Backend = "pgvector" }, "PGVECTOR_DSN"},
		{"overlap >= size", func(c *Config) { c.Ingest.ChunkOverlap = 800 }, "CHUNK_OVERLAP"},
		{"zero chunk size", func(c *Config) { c.Ingest.ChunkSize = 0 }, "CHUNK_SIZE"},
		{"zero top k", func(c *Config) { c.Retrieval.TopK = 0 }, "RETRIEVAL_K"},
		{"zero max steps", func(c *Config) { c.Agent.MaxSteps = 0 }, "AGENT_MAX_STEPS"},
		{"ollama needs nothing", func(c *Config) {
			c.Model.Backend = "ollama"
			c.Model.OpenAI.APIKey = ""
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestSplitPaths(t *testing.T) {
	t.Parallel()
	got := splitPaths(" a.pdf, b.pdf ,,c.pdf ")
	want := []string{"a.pdf", "b.pdf", "c.pdf"}
	if len(got) != len(want) {
		t.Fatalf("got %d paths, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("paths[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestServerAddr(t *testing.T) {
	t.Parallel()
	s := ServerConfig{Host: "127.0.0.1", Port: 9090}
	if got := s.Addr(); got != "127.0.0.1:9090" {
		t.Errorf("Addr() = %q", got)
	}
}
