package rag

import (
	"context"
	"errors"
	"testing"
)

// fakeEmbedder returns one fixed vector per input text.
type fakeEmbedder struct {
	vec      []float32
	err      error
	gotTexts []string
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.gotTexts = texts
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

// fakeVectorStore records Search calls and returns canned documents.
type fakeVectorStore struct {
	docs    []Document
	err     error
	gotVec  []float32
	gotTopK int
}

func (f *fakeVectorStore) EnsureCollection(ctx context.Context, dim int) error { return nil }

func (f *fakeVectorStore) Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error {
	return nil
}

func (f *fakeVectorStore) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Document, error) {
	f.gotVec = queryEmbedding
	f.gotTopK = topK
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

func (f *fakeVectorStore) DeleteBySource(ctx context.Context, source string) error { return nil }
func (f *fakeVectorStore) Ping(ctx context.Context) error                          { return nil }
func (f *fakeVectorStore) Close() error                                            { return nil }

func Test_DenseRetriever_EmbedsQueryAndSearches(t *testing.T) {
	t.Parallel()

	embedder := &fakeEmbedder{vec: []float32{0.1, 0.2, 0.3}}
	store := &fakeVectorStore{docs: []Document{{ID: "d1", Content: "hit"}}}

	r, err := NewDenseRetriever(embedder, store, 10)
	if err != nil {
		t.Fatalf("NewDenseRetriever() error = %v", err)
	}

	docs, err := r.Retrieve(context.Background(), "what is an ingress?", 4)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "d1" {
		t.Fatalf("Retrieve() = %v, want the store's document", docs)
	}
	if len(embedder.gotTexts) != 1 || embedder.gotTexts[0] != "what is an ingress?" {
		t.Errorf("embedder received %v, want the raw query", embedder.gotTexts)
	}
	if store.gotTopK != 4 {
		t.Errorf("store searched with topK = %d, want 4", store.gotTopK)
	}
	if len(store.gotVec) != 3 {
		t.Errorf("store searched with %d-dim vector, want 3", len(store.gotVec))
	}
}

func Test_DenseRetriever_ZeroTopKUsesDefault(t *testing.T) {
	t.Parallel()

	embedder := &fakeEmbedder{vec: []float32{1}}
	store := &fakeVectorStore{}

	r, err := NewDenseRetriever(embedder, store, 6)
	if err != nil {
		t.Fatalf("NewDenseRetriever() error = %v", err)
	}

	if _, err := r.Retrieve(context.Background(), "q", 0); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if store.gotTopK != 6 {
		t.Errorf("store searched with topK = %d, want the default 6", store.gotTopK)
	}
}

func Test_DenseRetriever_EmbedderErrorPropagates(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("embedding api down")
	r, err := NewDenseRetriever(&fakeEmbedder{err: wantErr}, &fakeVectorStore{}, 10)
	if err != nil {
		t.Fatalf("NewDenseRetriever() error = %v", err)
	}

	if _, err := r.Retrieve(context.Background(), "q", 3); !errors.Is(err, wantErr) {
		t.Errorf("Retrieve() error = %v, want wrapped %v", err, wantErr)
	}
}

func Test_DenseRetriever_SearchErrorPropagates(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("collection missing")
	r, err := NewDenseRetriever(&fakeEmbedder{vec: []float32{1}}, &fakeVectorStore{err: wantErr}, 10)
	if err != nil {
		t.Fatalf("NewDenseRetriever() error = %v", err)
	}

	if _, err := r.Retrieve(context.Background(), "q", 3); !errors.Is(err, wantErr) {
		t.Errorf("Retrieve() error = %v, want wrapped %v", err, wantErr)
	}
}

func Test_DenseRetriever_NilDependenciesRejected(t *testing.T) {
	t.Parallel()

	if _, err := NewDenseRetriever(nil, &fakeVectorStore{}, 10); err == nil {
		t.Error("NewDenseRetriever(nil embedder) succeeded, want error")
	}
	if _, err := NewDenseRetriever(&fakeEmbedder{}, nil, 10); err == nil {
		t.Error("NewDenseRetriever(nil store) succeeded, want error")
	}
}
