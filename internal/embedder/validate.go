package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docqa-ai/docqa-go/internal/rag"
)

// knownChatModelPrefixes contains name fragments that identify chat/completion
// models which are NOT suitable for embedding. If the configured embedding
// model matches any of these, a warning is emitted so the operator knows they
// may have misconfigured the pipeline.
var knownChatModelPrefixes = []string{
	"gpt-4",
	"gpt-3.5",
	"gpt-35",
	"o1",
	"o3",
	"llama3",
	"llama2",
	"llama-3",
	"llama-2",
	"mistral",
	"mixtral",
	"gemma",
	"phi-",
	"phi3",
	"claude",
	"command-r",
	"deepseek",
	"qwen",
	"solar",
	"vicuna",
	"falcon",
	"yi-",
}

// looksLikeChatModel returns true when the model name resembles a known
// chat/completion model rather than a dedicated embedding model.
func looksLikeChatModel(model string) bool {
	lower := strings.ToLower(model)
	for _, prefix := range knownChatModelPrefixes {
		if strings.Contains(lower, prefix) {
			return true
		}
	}
	return false
}

// ValidateForRAG embeds a short probe string to confirm the configured
// backend is reachable and produces vectors of the expected width.
//
// This is a pre-flight check. Call it before ingesting or serving so
// operators get a clear error at startup rather than a cryptic failure
// during the first real embed call. It returns the probed vector width so
// callers can size vector store collections without a second round trip.
func ValidateForRAG(ctx context.Context, log *slog.Logger, e rag.Embedder, cfg Config) (int, error) {
	model := cfg.Model
	if model == "" {
		model = DefaultModel(cfg.Backend)
	}
	if looksLikeChatModel(model) {
		log.Warn("embedding model name looks like a chat model, not an embedding model",
			slog.String("model", model),
			slog.String("hint", "use a dedicated embedding model such as nomic-embed-text or text-embedding-3-small"),
		)
	}

	vecs, err := e.Embed(ctx, []string{"embedding preflight probe"})
	if err != nil {
		return 0, fmt.Errorf("embedder: preflight embed failed: %w", err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return 0, fmt.Errorf("embedder: preflight embed returned no vector")
	}

	dim := len(vecs[0])
	if cfg.Dimensions > 0 && dim != cfg.Dimensions {
		return 0, fmt.Errorf("embedder: model %q produced %d-dimensional vectors, config expects %d",
			model, dim, cfg.Dimensions)
	}
	return dim, nil
}
