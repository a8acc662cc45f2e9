// Package provider selects and constructs the tool-calling chat model that
// drives query rewriting and the conversational agent. Supported backends:
// Ollama, OpenAI, Azure OpenAI, Google Gemini, and Volcengine Ark.
package provider

import (
	"fmt"
)

// Backend enumerates the supported LLM inference providers.
type Backend string

const (
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
	// BackendArk selects Volcengine Ark.
	BackendArk Backend = "ark"
)

// OpenAISettings holds OpenAI credentials.
type OpenAISettings struct {
	// APIKey authenticates requests.
	APIKey string
	// BaseURL overrides the API endpoint (for OpenAI-compatible servers).
	BaseURL string
}

// AzureSettings holds Azure OpenAI Service settings.
type AzureSettings struct {
	// APIKey authenticates requests.
	APIKey string
	// Endpoint is the Azure OpenAI resource endpoint.
	Endpoint string
	// Deployment is the deployment name; it takes the place of the model name.
	Deployment string
	// APIVersion is the REST API version (e.g. "2024-02-01").
	APIVersion string
}

// OllamaSettings holds Ollama connection settings.
type OllamaSettings struct {
	// Host is the server base URL. Empty defaults to http://localhost:11434.
	Host string
}

// GeminiSettings holds Google Gemini credentials.
type GeminiSettings struct {
	// APIKey authenticates requests.
	APIKey string
}

// ArkSettings holds Volcengine Ark credentials.
type ArkSettings struct {
	// APIKey authenticates requests.
	APIKey string
	// BaseURL overrides the Ark API endpoint.
	BaseURL string
}

// Config holds the resolved chat model configuration. The caller builds it
// from the application config; nothing in this package reads the environment.
type Config struct {
	// Backend identifies which inference provider to use.
	Backend Backend

	// Model is the model name for the selected backend (e.g. "gpt-4o",
	// "llama3"). The azure backend uses AzureSettings.Deployment instead.
	Model string

	// Temperature controls response randomness. Zero keeps answers
	// deterministic, which the pipeline relies on for query rewriting.
	Temperature float32

	// MaxTokens caps tokens generated per response. Zero means backend default.
	MaxTokens int

	// OpenAI holds OpenAI-specific settings.
	OpenAI OpenAISettings
	// Azure holds Azure OpenAI-specific settings.
	Azure AzureSettings
	// Ollama holds Ollama-specific settings.
	Ollama OllamaSettings
	// Gemini holds Gemini-specific settings.
	Gemini GeminiSettings
	// Ark holds Ark-specific settings.
	Ark ArkSettings
}

// Validate reports the first missing required field for the selected backend.
// Error messages name the environment variable that usually supplies the
// field so startup failures are actionable.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendOllama:
		if c.Model == "" {
			return fmt.Errorf("provider: MODEL_NAME is required for the ollama backend")
		}

	case BackendOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("provider: OPENAI_API_KEY is required for the openai backend")
		}
		if c.Model == "" {
			return fmt.Errorf("provider: MODEL_NAME is required for the openai backend")
		}

	case BackendAzure:
		if c.Azure.APIKey == "" {
			return fmt.Errorf("provider: AZURE_OPENAI_API_KEY is required for the azure backend")
		}
		if c.Azure.Endpoint == "" {
			return fmt.Errorf("provider: AZURE_OPENAI_ENDPOINT is required for the azure backend")
		}
		if c.Azure.Deployment == "" {
			return fmt.Errorf("provider: AZURE_OPENAI_DEPLOYMENT is required for the azure backend")
		}

	case BackendGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("provider: GEMINI_API_KEY is required for the gemini backend")
		}
		if c.Model == "" {
			return fmt.Errorf("provider: MODEL_NAME is required for the gemini backend")
		}

	case BackendArk:
		if c.Ark.APIKey == "" {
			return fmt.Errorf("provider: ARK_API_KEY is required for the ark backend")
		}
		if c.Model == "" {
			return fmt.Errorf("provider: MODEL_NAME is required for the ark backend")
		}

	default:
		return fmt.Errorf("provider: unknown backend %q (valid: ollama, openai, azure, gemini, ark)", c.Backend)
	}
	return nil
}
