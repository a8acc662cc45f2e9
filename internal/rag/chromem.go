package rag

import (
	"context"
	"fmt"
	"runtime"

	chromem "github.com/philippgille/chromem-go"
)

// ChromemConfig holds settings for the embedded chromem-go vector store.
type ChromemConfig struct {
	// Path is the on-disk directory for persistence. Empty runs in-memory,
	// which is useful for tests and throwaway sessions.
	Path string

	// Collection is the collection name to use.
	Collection string
}

// ChromemStore implements VectorStore backed by the embedded chromem-go
// database. It needs no external service, so it is the zero-setup backend.
// All embeddings are computed by our Embedder before they reach the store;
// chromem's own embedding hook is never used.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewChromemStore opens (or creates) a chromem database at cfg.Path and binds
// the configured collection. An empty path gives an in-memory store.
func NewChromemStore(cfg *ChromemConfig) (*ChromemStore, error) {
	var db *chromem.DB
	var err error
	if cfg.Path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, fmt.Errorf("chromem: failed to open database at %s: %w", cfg.Path, err)
		}
	}

	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem: failed to create collection %q: %w", cfg.Collection, err)
	}

	return &ChromemStore{db: db, collection: collection}, nil
}

// EnsureCollection is a no-op: chromem collections are created on open and
// carry no fixed dimensionality until the first document is added.
func (s *ChromemStore) EnsureCollection(ctx context.Context, dim int) error {
	return nil
}

// Upsert stores or updates a batch of documents with their embeddings.
func (s *ChromemStore) Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("chromem: %d documents but %d embeddings", len(docs), len(embeddings))
	}
	if len(docs) == 0 {
		return nil
	}

	out := make([]chromem.Document, 0, len(docs))
	for i, doc := range docs {
		metadata := map[string]string{"source": doc.Source}
		for k, v := range doc.Metadata {
			metadata[k] = v
		}
		out = append(out, chromem.Document{
			ID:        doc.ID,
			Content:   doc.Content,
			Metadata:  metadata,
			Embedding: embeddings[i],
		})
	}

	if err := s.collection.AddDocuments(ctx, out, runtime.NumCPU()); err != nil {
		return fmt.Errorf("chromem: upsert failed: %w", err)
	}

	return nil
}

// Search performs a cosine similarity search and returns the top-k results.
// chromem rejects queries asking for more results than stored documents, so
// topK is clamped to the collection size.
func (s *ChromemStore) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Document, error) {
	if n := s.collection.Count(); topK > n {
		topK = n
	}
	if topK == 0 {
		return nil, nil
	}

	results, err := s.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: queryEmbedding,
		NResults:       topK,
	})
	if err != nil {
		return nil, fmt.Errorf("chromem: search failed: %w", err)
	}

	docs := make([]Document, 0, len(results))
	for _, r := range results {
		doc := Document{
			ID:       r.ID,
			Content:  r.Content,
			Score:    r.Similarity,
			Metadata: make(map[string]string),
		}
		for k, v := range r.Metadata {
			doc.Metadata[k] = v
		}
		doc.Source = r.Metadata["source"]
		docs = append(docs, doc)
	}

	return docs, nil
}

// DeleteBySource removes every document whose metadata source matches the
// given file basename.
func (s *ChromemStore) DeleteBySource(ctx context.Context, source string) error {
	err := s.collection.Delete(ctx, map[string]string{"source": source}, nil)
	if err != nil {
		return fmt.Errorf("chromem: delete by source %q failed: %w", source, err)
	}
	return nil
}

// Ping always succeeds: the store is embedded in-process.
func (s *ChromemStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op: chromem persists synchronously on write.
func (s *ChromemStore) Close() error {
	return nil
}
