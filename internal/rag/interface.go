// Package rag provides the retrieval layer for document question answering:
// dense vector stores (Qdrant, chromem-go, Postgres/pgvector), an in-memory
// BM25 lexical index, and an ensemble retriever that fuses both with
// reciprocal rank fusion. Retrieved documents carry the source file and page
// metadata the agent cites in its answers.
package rag

import "context"

// Document is a retrievable chunk of an ingested file.
type Document struct {
	// ID uniquely identifies the chunk. IDs are deterministic UUIDs derived
	// from source, page and chunk index, so re-ingesting a file overwrites
	// its previous chunks instead of duplicating them.
	ID string

	// Content is the chunk text.
	Content string

	// Source is the basename of the file the chunk came from.
	Source string

	// Metadata holds string key-value pairs stored alongside the chunk.
	// Ingestion always sets "source" (file basename) and "page" (1-based).
	Metadata map[string]string

	// Score is the retrieval score, higher is better. Zero value means the
	// score was not computed.
	Score float32
}

// VectorStore is the interface for persisting and searching document embeddings.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// EnsureCollection creates the backing collection for vectors of the
	// given dimensionality if it does not already exist.
	EnsureCollection(ctx context.Context, dim int) error

	// Upsert stores or updates a batch of documents with their pre-computed embeddings.
	// The embeddings slice must be parallel to docs, embeddings[i] is the vector for docs[i].
	// Documents with an existing ID are overwritten.
	Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error

	// Search performs a semantic similarity search and returns the top-k
	// most relevant documents for the given query embedding.
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Document, error)

	// DeleteBySource removes every document ingested from the named source
	// file. Used when a file is re-ingested or removed from the corpus.
	DeleteBySource(ctx context.Context, source string) error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever is the high-level interface used by the agent to fetch relevant
// context for a given query.
// Implementations must be safe to call from multiple goroutines.
type Retriever interface {
	// Retrieve returns the top-k most relevant documents for the given
	// query, ordered by descending score.
	Retrieve(ctx context.Context, query string, topK int) ([]Document, error)
}
