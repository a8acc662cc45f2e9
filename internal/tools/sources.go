package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// SourcesTool is an Eino tool that lists the ingested source documents, so
// the agent can tell the user what material it has available.
type SourcesTool struct {
	// catalog enumerates ingested sources.
	catalog Cataloger
}

// sourceEntry is one document in the tool output.
type sourceEntry struct {
	Source string `json:"source"`
	Chunks int    `json:"chunks"`
}

// NewSourcesTool constructs a SourcesTool over the given catalog.
func NewSourcesTool(catalog Cataloger) (*SourcesTool, error) {
	if catalog == nil {
		return nil, fmt.Errorf("tools: catalog must not be nil")
	}
	return &SourcesTool{catalog: catalog}, nil
}

// Name returns the tool name registered with the agent.
func (t *SourcesTool) Name() string { return "list_sources" }

// Description returns the LLM-facing description of this tool.
func (t *SourcesTool) Description() string {
	return "Lists the documents that have been ingested into the collection, with the number of " +
		"indexed passages per document. Use this when the user asks what documents are available " +
		"or when a search returns nothing and you want to confirm the collection is not empty."
}

// Info returns the Eino tool metadata. The tool takes no arguments.
func (t *SourcesTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name:        t.Name(),
		Desc:        t.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
	}, nil
}

// InvokableRun executes the tool. The input is ignored.
func (t *SourcesTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	infos, err := t.catalog.Sources(ctx)
	if err != nil {
		return "", fmt.Errorf("list_sources: %w", err)
	}
	if len(infos) == 0 {
		return "No documents have been ingested yet.", nil
	}

	entries := make([]sourceEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, sourceEntry{Source: info.Source, Chunks: info.Chunks})
	}

	out, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("list_sources: marshal results: %w", err)
	}
	return string(out), nil
}
