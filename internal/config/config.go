// Package config provides the resolved runtime configuration for docqa.
// Configuration is assembled once at startup with a layered precedence:
// built-in defaults → YAML file → .env file → environment variables.
// Environment variables always win.
//
// The result is an immutable [Config] value that is passed to constructors.
// Nothing outside this package re-reads the environment after Load returns.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. DOCQA_CONFIG environment variable
//  3. ~/.docqa/config.yaml
//  4. ./docqa.yaml
//
// If no file is found the system runs entirely from defaults and env vars.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the fully resolved configuration for a docqa process.
// Construct it with [Load]; treat it as read-only afterwards.
type Config struct {
	// Model configures the LLM chat model backend.
	Model ModelConfig `yaml:"model"`

	// Embedding configures the embedding backend for retrieval.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Vector configures the vector store backend.
	Vector VectorConfig `yaml:"vector"`

	// Ingest configures document loading and chunking.
	Ingest IngestConfig `yaml:"ingest"`

	// Retrieval configures the ensemble retriever.
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Agent configures the conversational agent loop.
	Agent AgentConfig `yaml:"agent"`

	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// History configures conversation history persistence.
	History HistoryConfig `yaml:"history"`

	// Tracing configures Langfuse tracing integration.
	Tracing TracingConfig `yaml:"tracing"`
}

// ModelConfig holds LLM chat model settings.
type ModelConfig struct {
	// Backend selects the provider: openai, azure, ollama, gemini, ark.
	Backend string `yaml:"backend"`

	// Name is the model name for the selected backend (e.g. "gpt-4o").
	Name string `yaml:"name"`

	// Temperature controls response randomness. The assistant runs
	// deterministic by default (0).
	Temperature float32 `yaml:"temperature"`

	// MaxTokens caps the response length. Zero means backend default.
	MaxTokens int `yaml:"max_tokens"`

	// OpenAI holds OpenAI-specific settings.
	OpenAI OpenAIConfig `yaml:"openai"`

	// Azure holds Azure OpenAI-specific settings.
	Azure AzureConfig `yaml:"azure"`

	// Ollama holds Ollama-specific settings.
	Ollama OllamaConfig `yaml:"ollama"`

	// Gemini holds Google Gemini-specific settings.
	Gemini GeminiConfig `yaml:"gemini"`

	// Ark holds Volcengine Ark-specific settings.
	Ark ArkConfig `yaml:"ark"`
}

// OpenAIConfig holds OpenAI backend settings.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key. Prefer env var OPENAI_API_KEY.
	APIKey string `yaml:"api_key"`
	// BaseURL overrides the API endpoint (OpenAI-compatible servers).
	BaseURL string `yaml:"base_url"`
}

// AzureConfig holds Azure OpenAI backend settings.
type AzureConfig struct {
	// APIKey is the Azure OpenAI API key. Prefer env var AZURE_OPENAI_API_KEY.
	APIKey string `yaml:"api_key"`
	// Endpoint is the Azure OpenAI resource endpoint.
	Endpoint string `yaml:"endpoint"`
	// Deployment is the Azure OpenAI deployment name.
	Deployment string `yaml:"deployment"`
	// APIVersion is the Azure OpenAI API version.
	APIVersion string `yaml:"api_version"`
}

// OllamaConfig holds Ollama backend settings.
type OllamaConfig struct {
	// Host is the Ollama API endpoint.
	Host string `yaml:"host"`
}

// GeminiConfig holds Google Gemini backend settings.
type GeminiConfig struct {
	// APIKey is the Gemini API key. Prefer env var GEMINI_API_KEY.
	APIKey string `yaml:"api_key"`
}

// ArkConfig holds Volcengine Ark backend settings.
type ArkConfig struct {
	// APIKey is the Ark API key. Prefer env var ARK_API_KEY.
	APIKey string `yaml:"api_key"`
	// BaseURL overrides the Ark API endpoint.
	BaseURL string `yaml:"base_url"`
}

// EmbeddingConfig holds embedding backend settings.
type EmbeddingConfig struct {
	// Backend selects the embedding provider: openai, ollama.
	Backend string `yaml:"backend"`
	// Model is the embedding model name.
	Model string `yaml:"model"`
	// Dimensions overrides the embedding vector size. Zero means the
	// backend default for the model.
	Dimensions int `yaml:"dimensions"`
	// APIKey is the embedding API key. Prefer env var EMBEDDING_API_KEY.
	APIKey string `yaml:"api_key"`
	// BaseURL is the embedding API endpoint.
	BaseURL string `yaml:"base_url"`
}

// VectorConfig holds vector store settings.
type VectorConfig struct {
	// Backend selects the store: qdrant, chromem, pgvector.
	Backend string `yaml:"backend"`
	// Collection is the collection/table name shared by all backends.
	Collection string `yaml:"collection"`
	// Qdrant holds Qdrant connection settings.
	Qdrant QdrantConfig `yaml:"qdrant"`
	// Chromem holds embedded-store settings.
	Chromem ChromemConfig `yaml:"chromem"`
	// Pgvector holds Postgres/pgvector settings.
	Pgvector PgvectorConfig `yaml:"pgvector"`
}

// QdrantConfig holds Qdrant connection settings.
type QdrantConfig struct {
	// Host is the Qdrant server hostname.
	Host string `yaml:"host"`
	// Port is the Qdrant gRPC port.
	Port int `yaml:"port"`
	// APIKey is the Qdrant API key. Prefer env var QDRANT_API_KEY.
	APIKey string `yaml:"api_key"`
	// TLS enables TLS for the Qdrant connection.
	TLS bool `yaml:"tls"`
}

// ChromemConfig holds embedded chromem store settings.
type ChromemConfig struct {
	// Path is the on-disk directory for persistence. Empty means in-memory.
	Path string `yaml:"path"`
}

// PgvectorConfig holds Postgres/pgvector settings.
type PgvectorConfig struct {
	// DSN is the Postgres connection string. Prefer env var PGVECTOR_DSN.
	DSN string `yaml:"dsn"`
}

// IngestConfig holds document loading and chunking settings.
type IngestConfig struct {
	// PDFPaths lists document files to ingest (comma-separated in env).
	PDFPaths []string `yaml:"pdf_paths"`
	// DataDir is a directory scanned recursively for supported documents.
	DataDir string `yaml:"data_dir"`
	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int `yaml:"chunk_size"`
	// ChunkOverlap is the character overlap between consecutive chunks.
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// RetrievalConfig holds ensemble retriever settings.
type RetrievalConfig struct {
	// TopK is the number of documents returned per query.
	TopK int `yaml:"top_k"`
}

// AgentConfig holds conversational agent settings.
type AgentConfig struct {
	// MaxSteps bounds the agent loop (one model call and one tool round
	// each count as a step). Zero means the default of 12.
	MaxSteps int `yaml:"max_steps"`
	// HistoryDepth is the number of prior turns injected per query.
	HistoryDepth int `yaml:"history_depth"`
	// MaxContextTokens is the estimated token budget for the input context.
	// Zero means the budget package default.
	MaxContextTokens int `yaml:"max_context_tokens"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port"`
	// APIKey is the Bearer token for API authentication. Prefer env var
	// DOCQA_API_KEY. Empty disables auth.
	APIKey string `yaml:"api_key"`
	// RateLimitRPS is the per-client sustained request rate. Zero disables
	// rate limiting.
	RateLimitRPS float64 `yaml:"rate_limit_rps"`
	// RateLimitBurst is the per-client burst allowance.
	RateLimitBurst int `yaml:"rate_limit_burst"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// HistoryConfig holds conversation history settings.
type HistoryConfig struct {
	// DBPath is the SQLite database path. Empty means ~/.docqa/docqa.db.
	DBPath string `yaml:"db_path"`
}

// TracingConfig holds Langfuse tracing settings.
type TracingConfig struct {
	// PublicKey is the Langfuse public key. Prefer env var LANGFUSE_PUBLIC_KEY.
	PublicKey string `yaml:"public_key"`
	// SecretKey is the Langfuse secret key. Prefer env var LANGFUSE_SECRET_KEY.
	SecretKey string `yaml:"secret_key"`
	// Host is the Langfuse API host.
	Host string `yaml:"host"`
}

// Default returns the built-in configuration the layers are applied onto.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Backend:     "openai",
			Name:        "gpt-4o",
			Temperature: 0,
		},
		Embedding: EmbeddingConfig{
			Backend: "openai",
			Model:   "text-embedding-3-small",
		},
		Vector: VectorConfig{
			Backend:    "qdrant",
			Collection: "RAG5",
			Qdrant: QdrantConfig{
				Host: "localhost",
				Port: 6334,
			},
		},
		Ingest: IngestConfig{
			ChunkSize:    800,
			ChunkOverlap: 200,
		},
		Retrieval: RetrievalConfig{
			TopK: 10,
		},
		Agent: AgentConfig{
			MaxSteps:     12,
			HistoryDepth: 10,
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			RateLimitRPS:   5,
			RateLimitBurst: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load assembles the configuration: defaults, then the YAML file (if any),
// then a best-effort .env file, then environment variables. It returns the
// resolved config and the YAML path that was loaded ("" if none).
//
// log may be nil during early startup; messages are dropped in that case.
func Load(explicitPath string, log *slog.Logger) (*Config, string, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	// .env is a developer convenience only; a missing file is not an error.
	if err := godotenv.Load(); err == nil {
		log.Debug("config: loaded .env file")
	}

	cfg := Default()

	path := resolveConfigPath(explicitPath)
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("config: failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, "", fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
		log.Info("config: loaded YAML config", slog.String("path", path))
	} else {
		log.Debug("config: no YAML config file found, using defaults and env vars")
	}

	if err := applyEnv(cfg); err != nil {
		return nil, "", err
	}

	return cfg, path, nil
}

// envBinding maps an env var name to the config field it overrides.
type envBinding struct {
	key   string
	apply func(*Config, string) error
}

// envBindings is the ordered list of environment overrides. Env vars always
// take precedence over YAML and defaults.
var envBindings = []envBinding{
	{"LLM_BACKEND", func(c *Config, v string) error { c.Model.Backend = strings.ToLower(v); return nil }},
	{"MODEL_NAME", func(c *Config, v string) error { c.Model.Name = v; return nil }},
	{"MODEL_TEMPERATURE", func(c *Config, v string) error { return setFloat32(&c.Model.Temperature, "MODEL_TEMPERATURE", v) }},
	{"MODEL_MAX_TOKENS", func(c *Config, v string) error { return setInt(&c.Model.MaxTokens, "MODEL_MAX_TOKENS", v) }},
	{"OPENAI_API_KEY", func(c *Config, v string) error { c.Model.OpenAI.APIKey = v; return nil }},
	{"OPENAI_BASE_URL", func(c *Config, v string) error { c.Model.OpenAI.BaseURL = v; return nil }},
	{"AZURE_OPENAI_API_KEY", func(c *Config, v string) error { c.Model.Azure.APIKey = v; return nil }},
	{"AZURE_OPENAI_ENDPOINT", func(c *Config, v string) error { c.Model.Azure.Endpoint = v; return nil }},
	{"AZURE_OPENAI_DEPLOYMENT", func(c *Config, v string) error { c.Model.Azure.Deployment = v; return nil }},
	{"AZURE_OPENAI_API_VERSION", func(c *Config, v string) error { c.Model.Azure.APIVersion = v; return nil }},
	{"OLLAMA_HOST", func(c *Config, v string) error { c.Model.Ollama.Host = v; return nil }},
	{"GEMINI_API_KEY", func(c *Config, v string) error { c.Model.Gemini.APIKey = v; return nil }},
	{"ARK_API_KEY", func(c *Config, v string) error { c.Model.Ark.APIKey = v; return nil }},
	{"ARK_BASE_URL", func(c *Config, v string) error { c.Model.Ark.BaseURL = v; return nil }},
	{"EMBEDDING_BACKEND", func(c *Config, v string) error { c.Embedding.Backend = strings.ToLower(v); return nil }},
	{"EMBEDDING_MODEL", func(c *Config, v string) error { c.Embedding.Model = v; return nil }},
	{"EMBEDDING_DIMENSIONS", func(c *Config, v string) error { return setInt(&c.Embedding.Dimensions, "EMBEDDING_DIMENSIONS", v) }},
	{"EMBEDDING_API_KEY", func(c *Config, v string) error { c.Embedding.APIKey = v; return nil }},
	{"EMBEDDING_BASE_URL", func(c *Config, v string) error { c.Embedding.BaseURL = v; return nil }},
	{"VECTOR_BACKEND", func(c *Config, v string) error { c.Vector.Backend = strings.ToLower(v); return nil }},
	{"COLLECTION_NAME", func(c *Config, v string) error { c.Vector.Collection = v; return nil }},
	{"QDRANT_HOST", func(c *Config, v string) error { c.Vector.Qdrant.Host = v; return nil }},
	{"QDRANT_PORT", func(c *Config, v string) error { return setInt(&c.Vector.Qdrant.Port, "QDRANT_PORT", v) }},
	{"QDRANT_API_KEY", func(c *Config, v string) error { c.Vector.Qdrant.APIKey = v; return nil }},
	{"QDRANT_TLS", func(c *Config, v string) error { return setBool(&c.Vector.Qdrant.TLS, "QDRANT_TLS", v) }},
	{"CHROMEM_PATH", func(c *Config, v string) error { c.Vector.Chromem.Path = v; return nil }},
	{"PGVECTOR_DSN", func(c *Config, v string) error { c.Vector.Pgvector.DSN = v; return nil }},
	{"PDF_FILE_PATHS", func(c *Config, v string) error { c.Ingest.PDFPaths = splitPaths(v); return nil }},
	{"DATA_DIR", func(c *Config, v string) error { c.Ingest.DataDir = v; return nil }},
	{"CHUNK_SIZE", func(c *Config, v string) error { return setInt(&c.Ingest.ChunkSize, "CHUNK_SIZE", v) }},
	{"CHUNK_OVERLAP", func(c *Config, v string) error { return setInt(&c.Ingest.ChunkOverlap, "CHUNK_OVERLAP", v) }},
	{"RETRIEVAL_K", func(c *Config, v string) error { return setInt(&c.Retrieval.TopK, "RETRIEVAL_K", v) }},
	{"AGENT_MAX_STEPS", func(c *Config, v string) error { return setInt(&c.Agent.MaxSteps, "AGENT_MAX_STEPS", v) }},
	{"HISTORY_DEPTH", func(c *Config, v string) error { return setInt(&c.Agent.HistoryDepth, "HISTORY_DEPTH", v) }},
	{"MAX_CONTEXT_TOKENS", func(c *Config, v string) error { return setInt(&c.Agent.MaxContextTokens, "MAX_CONTEXT_TOKENS", v) }},
	{"DOCQA_HOST", func(c *Config, v string) error { c.Server.Host = v; return nil }},
	{"DOCQA_PORT", func(c *Config, v string) error { return setInt(&c.Server.Port, "DOCQA_PORT", v) }},
	{"DOCQA_API_KEY", func(c *Config, v string) error { c.Server.APIKey = v; return nil }},
	{"DOCQA_RATE_RPS", func(c *Config, v string) error { return setFloat64(&c.Server.RateLimitRPS, "DOCQA_RATE_RPS", v) }},
	{"DOCQA_RATE_BURST", func(c *Config, v string) error { return setInt(&c.Server.RateLimitBurst, "DOCQA_RATE_BURST", v) }},
	{"LOG_LEVEL", func(c *Config, v string) error { c.Logging.Level = v; return nil }},
	{"LOG_FORMAT", func(c *Config, v string) error { c.Logging.Format = v; return nil }},
	{"DOCQA_DB_PATH", func(c *Config, v string) error { c.History.DBPath = v; return nil }},
	{"LANGFUSE_PUBLIC_KEY", func(c *Config, v string) error { c.Tracing.PublicKey = v; return nil }},
	{"LANGFUSE_SECRET_KEY", func(c *Config, v string) error { c.Tracing.SecretKey = v; return nil }},
	{"LANGFUSE_HOST", func(c *Config, v string) error { c.Tracing.Host = v; return nil }},
}

// applyEnv overrides config fields from set environment variables.
func applyEnv(cfg *Config) error {
	for _, b := range envBindings {
		v, ok := os.LookupEnv(b.key)
		if !ok || v == "" {
			continue
		}
		if err := b.apply(cfg, v); err != nil {
			return err
		}
	}
	return nil
}

// Validate reports configuration errors for the selected backends. It is
// called once after Load, before any component is constructed.
func (c *Config) Validate() error {
	switch c.Model.Backend {
	case "openai":
		if c.Model.OpenAI.APIKey == "" {
			return fmt.Errorf("config: OPENAI_API_KEY is required for the openai backend")
		}
	case "azure":
		if c.Model.Azure.APIKey == "" || c.Model.Azure.Endpoint == "" {
			return fmt.Errorf("config: AZURE_OPENAI_API_KEY and AZURE_OPENAI_ENDPOINT are required for the azure backend")
		}
	case "gemini":
		if c.Model.Gemini.APIKey == "" {
			return fmt.Errorf("config: GEMINI_API_KEY is required for the gemini backend")
		}
	case "ark":
		if c.Model.Ark.APIKey == "" {
			return fmt.Errorf("config: ARK_API_KEY is required for the ark backend")
		}
	case "ollama":
		// Host defaults at the provider level; nothing required here.
	default:
		return fmt.Errorf("config: unknown LLM backend %q (valid: openai, azure, ollama, gemini, ark)", c.Model.Backend)
	}

	switch c.Embedding.Backend {
	case "openai", "ollama":
	default:
		return fmt.Errorf("config: unknown embedding backend %q (valid: openai, ollama)", c.Embedding.Backend)
	}

	switch c.Vector.Backend {
	case "qdrant", "chromem":
	case "pgvector":
		if c.Vector.Pgvector.DSN == "" {
			return fmt.Errorf("config: PGVECTOR_DSN is required for the pgvector backend")
		}
	default:
		return fmt.Errorf("config: unknown vector backend %q (valid: qdrant, chromem, pgvector)", c.Vector.Backend)
	}

	if c.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("config: CHUNK_SIZE must be positive, got %d", c.Ingest.ChunkSize)
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("config: CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d with chunk size %d",
			c.Ingest.ChunkOverlap, c.Ingest.ChunkSize)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("config: RETRIEVAL_K must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Agent.MaxSteps <= 0 {
		return fmt.Errorf("config: AGENT_MAX_STEPS must be positive, got %d", c.Agent.MaxSteps)
	}

	return nil
}

// Addr returns the server bind address in host:port form.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("DOCQA_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".docqa", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat("docqa.yaml"); err == nil {
		return "docqa.yaml"
	}

	return ""
}

// splitPaths splits a comma-separated path list, trimming whitespace and
// dropping empty entries.
func splitPaths(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func setInt(dst *int, key, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func setFloat32(dst *float32, key, v string) error {
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return fmt.Errorf("config: invalid %s %q: %w", key, v, err)
	}
	*dst = float32(f)
	return nil
}

func setFloat64(dst *float64, key, v string) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("config: invalid %s %q: %w", key, v, err)
	}
	*dst = f
	return nil
}

func setBool(dst *bool, key, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("config: invalid %s %q: %w", key, v, err)
	}
	*dst = b
	return nil
}
