package server

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// stubEmbedder is a minimal rag.Embedder for pinger tests.
type stubEmbedder struct {
	vecs [][]float32
	err  error
}

func (s *stubEmbedder) Embed(_ context.Context, _ []string) ([][]float32, error) {
	return s.vecs, s.err
}

func Test_EmbedderPinger_Healthy(t *testing.T) {
	t.Parallel()

	p := NewEmbedderPinger(&stubEmbedder{vecs: [][]float32{{0.1, 0.2}}}, "ollama")
	if err := p.Ping(context.Background()); err != nil {
		t.Errorf("expected healthy, got %v", err)
	}
	if p.Name() != "ollama" {
		t.Errorf("Name() = %q, want ollama", p.Name())
	}
}

func Test_EmbedderPinger_BackendError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("connection refused")
	p := NewEmbedderPinger(&stubEmbedder{err: wantErr}, "openai")
	if err := p.Ping(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("expected wrapped backend error, got %v", err)
	}
}

func Test_EmbedderPinger_EmptyVector(t *testing.T) {
	t.Parallel()

	p := NewEmbedderPinger(&stubEmbedder{vecs: [][]float32{}}, "openai")
	if err := p.Ping(context.Background()); err == nil {
		t.Error("expected an error for an empty probe vector")
	}
}

// Test_MultiPinger_FirstErrorWins verifies probes run in order and the first
// failure is returned with the dependency name prefixed.
func Test_MultiPinger_FirstErrorWins(t *testing.T) {
	t.Parallel()

	mp := NewMultiPinger(
		&fakePinger{name: "embedder"},
		&fakePinger{name: "qdrant", err: errors.New("unreachable")},
		&fakePinger{name: "never-reached", err: errors.New("other")},
	)

	err := mp.Ping(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "qdrant") {
		t.Errorf("expected the failing dependency named, got %v", err)
	}
}
