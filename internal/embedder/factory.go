package embedder

import (
	"fmt"

	"github.com/docqa-ai/docqa-go/internal/rag"
)

// Default embedding models and endpoints per backend.
const (
	defaultOllamaModel = "nomic-embed-text"
	defaultOpenAIModel = "text-embedding-3-small"

	defaultOllamaHost    = "http://localhost:11434"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"

	// defaultOllamaDimensions is the output dimension of nomic-embed-text.
	// Other Ollama models may differ; override with Config.Dimensions.
	defaultOllamaDimensions = 768
	// defaultOpenAIDimensions is the output dimension of text-embedding-3-small.
	defaultOpenAIDimensions = 1536
)

// Config selects and configures an embedding backend. Values come from the
// resolved application config; nothing in this package reads the environment.
type Config struct {
	// Backend selects the provider: "openai" or "ollama".
	Backend string
	// Model is the embedding model name. Empty selects the backend default.
	Model string
	// Dimensions is the requested vector width. Zero selects the model default.
	Dimensions int
	// APIKey authenticates openai requests. Ollama needs none.
	APIKey string
	// BaseURL overrides the provider endpoint. Any OpenAI-compatible
	// embeddings endpoint works for the openai backend.
	BaseURL string
}

// DefaultModel returns the default embedding model for the given backend.
func DefaultModel(backend string) string {
	if backend == "ollama" {
		return defaultOllamaModel
	}
	return defaultOpenAIModel
}

// DefaultDimensions returns the vector width produced by the default model of
// the given backend. Callers that pre-create a vector store collection should
// use this rather than hardcoding a value; an explicit Config.Dimensions
// always takes precedence.
func DefaultDimensions(backend string) int {
	switch backend {
	case "ollama":
		return defaultOllamaDimensions
	default:
		return defaultOpenAIDimensions
	}
}

// New constructs the embedder selected by cfg.Backend.
func New(cfg Config) (rag.Embedder, error) {
	model := cfg.Model
	if model == "" {
		model = DefaultModel(cfg.Backend)
	}

	switch cfg.Backend {
	case "ollama":
		host := cfg.BaseURL
		if host == "" {
			host = defaultOllamaHost
		}
		return NewOllamaEmbedder(&OllamaConfig{
			Host:  host,
			Model: model,
		}), nil

	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("embedder: the openai backend requires an API key")
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = defaultOpenAIBaseURL
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    baseURL,
			APIKey:     cfg.APIKey,
			Model:      model,
			Dimensions: cfg.Dimensions,
		}), nil

	default:
		return nil, fmt.Errorf("embedder: unknown backend %q (valid: openai, ollama)", cfg.Backend)
	}
}
