// Package tools defines the document tools the agent can invoke during a
// conversation. Each tool satisfies Eino's tool.InvokableTool interface so it
// can be registered directly with the ReAct agent.
package tools

import (
	"context"

	"github.com/docqa-ai/docqa-go/internal/rag"
	"github.com/docqa-ai/docqa-go/internal/store"
)

// Searcher retrieves ranked document chunks for a query. The ensemble
// retriever satisfies it.
type Searcher interface {
	Retrieve(ctx context.Context, query string, topK int) ([]rag.Document, error)
}

// Cataloger lists the ingested source documents. *store.SQLiteStore
// satisfies it.
type Cataloger interface {
	Sources(ctx context.Context) ([]store.SourceInfo, error)
}
