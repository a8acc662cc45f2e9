package rag

import (
	"context"
	"fmt"
)

// Backend identifies a vector store implementation.
type Backend string

const (
	// BackendQdrant stores vectors in a Qdrant server over gRPC.
	BackendQdrant Backend = "qdrant"

	// BackendChromem stores vectors in the embedded chromem-go database.
	BackendChromem Backend = "chromem"

	// BackendPgvector stores vectors in Postgres with the pgvector extension.
	BackendPgvector Backend = "pgvector"
)

// StoreConfig selects and configures a vector store backend. Collection names
// the Qdrant collection, chromem collection or Postgres table depending on
// the backend, so one setting covers all three.
type StoreConfig struct {
	// Backend selects the implementation.
	Backend Backend

	// Collection is the collection or table name shared by all backends.
	Collection string

	// Qdrant holds Qdrant connection settings.
	Qdrant QdrantConfig

	// Chromem holds embedded-store settings.
	Chromem ChromemConfig

	// Pgvector holds Postgres connection settings.
	Pgvector PgvectorConfig
}

// NewVectorStore constructs a VectorStore for the configured backend. It
// returns a clear error at startup for unknown backends rather than failing
// on the first request.
func NewVectorStore(ctx context.Context, cfg *StoreConfig) (VectorStore, error) {
	switch cfg.Backend {
	case BackendQdrant:
		q := cfg.Qdrant
		q.Collection = cfg.Collection
		return NewQdrantStore(&q)
	case BackendChromem:
		c := cfg.Chromem
		c.Collection = cfg.Collection
		return NewChromemStore(&c)
	case BackendPgvector:
		p := cfg.Pgvector
		p.Table = cfg.Collection
		return NewPgvectorStore(ctx, &p)
	default:
		return nil, fmt.Errorf("rag: unknown vector backend %q (valid: qdrant, chromem, pgvector)", cfg.Backend)
	}
}
