package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"

	"github.com/docqa-ai/docqa-go/internal/agent"
	"github.com/docqa-ai/docqa-go/internal/embedder"
	"github.com/docqa-ai/docqa-go/internal/ingest"
	"github.com/docqa-ai/docqa-go/internal/provider"
	"github.com/docqa-ai/docqa-go/internal/rag"
	"github.com/docqa-ai/docqa-go/internal/store"
	"github.com/docqa-ai/docqa-go/internal/tools"
)

// Hybrid retrieval weights. Lexical (BM25) and semantic (dense embedding)
// rankings contribute equally to the fused result.
const (
	lexicalWeight = 0.5
	denseWeight   = 0.5
)

// modelConfig maps the resolved application config onto the provider package.
func modelConfig() *provider.Config {
	m := cfg.Model
	return &provider.Config{
		Backend:     provider.Backend(m.Backend),
		Model:       m.Name,
		Temperature: m.Temperature,
		MaxTokens:   m.MaxTokens,
		OpenAI: provider.OpenAISettings{
			APIKey:  m.OpenAI.APIKey,
			BaseURL: m.OpenAI.BaseURL,
		},
		Azure: provider.AzureSettings{
			APIKey:     m.Azure.APIKey,
			Endpoint:   m.Azure.Endpoint,
			Deployment: m.Azure.Deployment,
			APIVersion: m.Azure.APIVersion,
		},
		Ollama: provider.OllamaSettings{
			Host: m.Ollama.Host,
		},
		Gemini: provider.GeminiSettings{
			APIKey: m.Gemini.APIKey,
		},
		Ark: provider.ArkSettings{
			APIKey:  m.Ark.APIKey,
			BaseURL: m.Ark.BaseURL,
		},
	}
}

// embedderConfig maps the resolved application config onto the embedder
// package.
func embedderConfig() embedder.Config {
	e := cfg.Embedding
	return embedder.Config{
		Backend:    e.Backend,
		Model:      e.Model,
		Dimensions: e.Dimensions,
		APIKey:     e.APIKey,
		BaseURL:    e.BaseURL,
	}
}

// vectorConfig maps the resolved application config onto the vector store
// factory.
func vectorConfig() *rag.StoreConfig {
	v := cfg.Vector
	return &rag.StoreConfig{
		Backend:    rag.Backend(v.Backend),
		Collection: v.Collection,
		Qdrant: rag.QdrantConfig{
			Host:   v.Qdrant.Host,
			Port:   v.Qdrant.Port,
			APIKey: v.Qdrant.APIKey,
			UseTLS: v.Qdrant.TLS,
		},
		Chromem: rag.ChromemConfig{
			Path: v.Chromem.Path,
		},
		Pgvector: rag.PgvectorConfig{
			DSN: v.Pgvector.DSN,
		},
	}
}

// ingestConfig maps the resolved application config onto the ingestion
// pipeline.
func ingestConfig() *ingest.Config {
	return &ingest.Config{
		ChunkSize:    cfg.Ingest.ChunkSize,
		ChunkOverlap: cfg.Ingest.ChunkOverlap,
	}
}

// openHistoryStore opens the SQLite store that holds conversation history
// and the chunk catalog.
func openHistoryStore() (*store.SQLiteStore, error) {
	path := cfg.History.DBPath
	if path == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolving history DB path: %w", err)
		}
		path = p
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening history store at %s: %w", path, err)
	}
	logger.Debug("history store opened", slog.String("path", path))
	return st, nil
}

// stack is the wired dependency graph shared by the question-answering
// commands (ask, chat, serve). Close releases the vector store connection
// and the history database.
type stack struct {
	ChatModel model.ToolCallingChatModel
	Embedder  rag.Embedder
	Vectors   rag.VectorStore
	Store     *store.SQLiteStore
	Lexical   *rag.BM25Retriever
	Retriever rag.Retriever
	Assistant *agent.Assistant
}

// buildStack validates the configuration and constructs the chat model,
// embedder, vector store, history store, hybrid retriever, document tools
// and the assistant, in dependency order. topK overrides the configured
// retrieval depth when positive.
func buildStack(ctx context.Context, topK int) (*stack, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = cfg.Retrieval.TopK
	}

	chatModel, err := provider.New(ctx, modelConfig())
	if err != nil {
		return nil, fmt.Errorf("initialising model provider: %w", err)
	}
	logger.Debug("chat model initialised",
		slog.String("backend", cfg.Model.Backend),
		slog.String("model", cfg.Model.Name),
	)

	emb, err := embedder.New(embedderConfig())
	if err != nil {
		return nil, fmt.Errorf("initialising embedder: %w", err)
	}

	vectors, err := rag.NewVectorStore(ctx, vectorConfig())
	if err != nil {
		return nil, fmt.Errorf("connecting to the %s vector store: %w", cfg.Vector.Backend, err)
	}

	st, err := openHistoryStore()
	if err != nil {
		vectors.Close()
		return nil, err
	}

	// The lexical index is rebuilt from the chunk catalog at startup; the
	// vector store already holds the dense side.
	chunks, err := st.AllChunks(ctx)
	if err != nil {
		st.Close()
		vectors.Close()
		return nil, fmt.Errorf("loading chunk catalog: %w", err)
	}
	lexical := rag.NewBM25Retriever(ingest.DocumentsFromChunks(chunks))
	if lexical.Len() == 0 {
		logger.Warn("no documents indexed yet, answers will not be grounded",
			slog.String("hint", "run `docqa ingest` first"))
	}

	dense, err := rag.NewDenseRetriever(emb, vectors, topK)
	if err != nil {
		st.Close()
		vectors.Close()
		return nil, fmt.Errorf("building dense retriever: %w", err)
	}

	hybrid, err := rag.NewEnsembleRetriever(
		[]rag.Retriever{lexical, dense},
		[]float64{lexicalWeight, denseWeight},
	)
	if err != nil {
		st.Close()
		vectors.Close()
		return nil, fmt.Errorf("building hybrid retriever: %w", err)
	}

	searchTool, err := tools.NewSearchTool(hybrid, topK)
	if err != nil {
		st.Close()
		vectors.Close()
		return nil, fmt.Errorf("building search tool: %w", err)
	}
	sourcesTool, err := tools.NewSourcesTool(st)
	if err != nil {
		st.Close()
		vectors.Close()
		return nil, fmt.Errorf("building sources tool: %w", err)
	}

	assistant, err := agent.New(ctx, &agent.Config{
		ChatModel:        chatModel,
		Tools:            []tool.BaseTool{searchTool, sourcesTool},
		Retriever:        hybrid,
		TopK:             topK,
		History:          st,
		HistoryDepth:     cfg.Agent.HistoryDepth,
		MaxContextTokens: cfg.Agent.MaxContextTokens,
		MaxSteps:         cfg.Agent.MaxSteps,
	})
	if err != nil {
		st.Close()
		vectors.Close()
		return nil, fmt.Errorf("initialising assistant: %w", err)
	}

	return &stack{
		ChatModel: chatModel,
		Embedder:  emb,
		Vectors:   vectors,
		Store:     st,
		Lexical:   lexical,
		Retriever: hybrid,
		Assistant: assistant,
	}, nil
}

// Close releases the stack's external resources.
func (s *stack) Close() {
	if s.Store != nil {
		_ = s.Store.Close()
	}
	if s.Vectors != nil {
		_ = s.Vectors.Close()
	}
}

// formatSourceList renders retrieved documents as a compact provenance line,
// one entry per source page, in rank order.
func formatSourceList(docs []rag.Document) string {
	var parts []string
	seen := make(map[string]bool)
	for _, d := range docs {
		ref := d.Source
		if page := d.Metadata["page"]; page != "" && page != "0" {
			ref = fmt.Sprintf("%s p.%s", d.Source, page)
		}
		if seen[ref] {
			continue
		}
		seen[ref] = true
		parts = append(parts, ref)
	}
	return strings.Join(parts, ", ")
}
