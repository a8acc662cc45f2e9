package server

import (
	"context"
	"fmt"

	"github.com/docqa-ai/docqa-go/internal/rag"
)

// VectorStorePinger probes the vector store behind dense retrieval. It
// satisfies the Pinger interface and is used by GET /api/ready. Each store
// implements Ping natively (Qdrant's HealthCheck RPC, a pgvector SELECT 1,
// a no-op for the embedded chromem store).
type VectorStorePinger struct {
	// store is the vector store to probe.
	store rag.VectorStore
	// name identifies the backend in readiness responses (e.g. "qdrant").
	name string
}

// NewVectorStorePinger constructs a VectorStorePinger for the given store
// and backend name.
func NewVectorStorePinger(store rag.VectorStore, name string) *VectorStorePinger {
	return &VectorStorePinger{store: store, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *VectorStorePinger) Name() string { return p.name }

// Ping checks the vector store is reachable.
func (p *VectorStorePinger) Ping(ctx context.Context) error {
	if err := p.store.Ping(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// EmbedderPinger probes the embedding backend with a single short input.
// One probe embedding per readiness check is cheap, and it exercises the
// same endpoint, credentials and model the query path depends on.
type EmbedderPinger struct {
	// embedder is the embedding client to probe.
	embedder rag.Embedder
	// name identifies the backend in readiness responses (e.g. "ollama").
	name string
}

// NewEmbedderPinger constructs an EmbedderPinger for the given embedder and
// backend name.
func NewEmbedderPinger(e rag.Embedder, name string) *EmbedderPinger {
	return &EmbedderPinger{embedder: e, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *EmbedderPinger) Name() string { return p.name }

// Ping embeds a one-word probe and checks a vector came back.
func (p *EmbedderPinger) Ping(ctx context.Context) error {
	vecs, err := p.embedder.Embed(ctx, []string{"ping"})
	if err != nil {
		return fmt.Errorf("probe embed failed: %w", err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return fmt.Errorf("probe embed returned no vector")
	}
	return nil
}
