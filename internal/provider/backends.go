package provider

import (
	"context"
	"fmt"
	"strings"

	einoark "github.com/cloudwego/eino-ext/components/model/ark"
	einogemini "github.com/cloudwego/eino-ext/components/model/gemini"
	einoollama "github.com/cloudwego/eino-ext/components/model/ollama"
	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"
)

const defaultOllamaHost = "http://localhost:11434"

// defaultAzureAPIVersion is used when the config leaves the version empty.
const defaultAzureAPIVersion = "2024-02-01"

// azureReasoningPrefixes identifies o-series and codex deployments, which
// reject the temperature and max_tokens request parameters.
var azureReasoningPrefixes = []string{"o1", "o3", "o4", "codex"}

// isAzureReasoningModel reports whether the deployment name starts with a
// known reasoning-model prefix, case-insensitively.
func isAzureReasoningModel(deployment string) bool {
	lower := strings.ToLower(deployment)
	for _, p := range azureReasoningPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// newOllama constructs a chat model backed by a local Ollama instance.
func newOllama(ctx context.Context, cfg *Config) (model.ToolCallingChatModel, error) {
	host := cfg.Ollama.Host
	if host == "" {
		host = defaultOllamaHost
	}
	return einoollama.NewChatModel(ctx, &einoollama.ChatModelConfig{ //nolint:wrapcheck // constructor passthrough
		BaseURL: host,
		Model:   cfg.Model,
	})
}

// newOpenAI constructs a chat model backed by the OpenAI API or any
// OpenAI-compatible endpoint.
func newOpenAI(ctx context.Context, cfg *Config) (model.ToolCallingChatModel, error) {
	mc := &einoopenai.ChatModelConfig{
		Model:   cfg.Model,
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
	}
	temp := cfg.Temperature
	mc.Temperature = &temp
	if cfg.MaxTokens > 0 {
		mt := cfg.MaxTokens
		mc.MaxTokens = &mt
	}
	return einoopenai.NewChatModel(ctx, mc) //nolint:wrapcheck // constructor passthrough
}

// newAzure constructs a chat model backed by Azure OpenAI Service.
func newAzure(ctx context.Context, cfg *Config) (model.ToolCallingChatModel, error) {
	apiVersion := cfg.Azure.APIVersion
	if apiVersion == "" {
		apiVersion = defaultAzureAPIVersion
	}
	mc := &einoopenai.ChatModelConfig{
		Model:      cfg.Azure.Deployment,
		APIKey:     cfg.Azure.APIKey,
		BaseURL:    cfg.Azure.Endpoint,
		ByAzure:    true,
		APIVersion: apiVersion,
		// Use the deployment name as-is; the default mapper strips dots and
		// colons, which breaks deployment names like "gpt-4.1".
		AzureModelMapperFunc: func(model string) string { return model },
	}
	if !isAzureReasoningModel(cfg.Azure.Deployment) {
		temp := cfg.Temperature
		mc.Temperature = &temp
		if cfg.MaxTokens > 0 {
			mt := cfg.MaxTokens
			mc.MaxTokens = &mt
		}
	}
	return einoopenai.NewChatModel(ctx, mc) //nolint:wrapcheck // constructor passthrough
}

// newGemini constructs a chat model backed by Google Gemini (AI Studio).
func newGemini(ctx context.Context, cfg *Config) (model.ToolCallingChatModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("provider: create gemini client: %w", err)
	}
	return einogemini.NewChatModel(ctx, &einogemini.Config{ //nolint:wrapcheck // constructor passthrough
		Client: client,
		Model:  cfg.Model,
	})
}

// newArk constructs a chat model backed by Volcengine Ark.
func newArk(ctx context.Context, cfg *Config) (model.ToolCallingChatModel, error) {
	mc := &einoark.ChatModelConfig{
		Model:   cfg.Model,
		APIKey:  cfg.Ark.APIKey,
		BaseURL: cfg.Ark.BaseURL,
	}
	temp := cfg.Temperature
	mc.Temperature = &temp
	if cfg.MaxTokens > 0 {
		mt := cfg.MaxTokens
		mc.MaxTokens = &mt
	}
	return einoark.NewChatModel(ctx, mc) //nolint:wrapcheck // constructor passthrough
}
