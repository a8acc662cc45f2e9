package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// SearchTool is an Eino tool that retrieves the most relevant document
// passages for a query. The agent calls it whenever it needs grounding
// material to answer a question.
type SearchTool struct {
	// searcher ranks chunks for a query.
	searcher Searcher

	// defaultTopK is the number of passages returned when the model does
	// not ask for a specific count.
	defaultTopK int
}

// searchInput is the JSON-serialisable input schema for SearchTool.
type searchInput struct {
	// Query is the search text.
	Query string `json:"query"`

	// TopK optionally overrides how many passages to return.
	TopK int `json:"top_k,omitempty"`
}

// searchResult is one passage in the tool output.
type searchResult struct {
	Source  string  `json:"source"`
	Page    int     `json:"page,omitempty"`
	Content string  `json:"content"`
	Score   float32 `json:"score"`
}

// NewSearchTool constructs a SearchTool over the given searcher.
func NewSearchTool(searcher Searcher, defaultTopK int) (*SearchTool, error) {
	if searcher == nil {
		return nil, fmt.Errorf("tools: searcher must not be nil")
	}
	if defaultTopK <= 0 {
		defaultTopK = 10
	}
	return &SearchTool{searcher: searcher, defaultTopK: defaultTopK}, nil
}

// Name returns the tool name registered with the agent.
func (t *SearchTool) Name() string { return "search_documents" }

// Description returns the LLM-facing description of this tool.
func (t *SearchTool) Description() string {
	return "Searches the ingested document collection and returns the most relevant passages as JSON. " +
		"Use this whenever the answer may be found in the user's documents. " +
		"Each passage carries its source file name and page number for citation."
}

// Info returns the Eino tool metadata including the JSON input schema.
func (t *SearchTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: t.Name(),
		Desc: t.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Type:     schema.String,
				Desc:     "The search query. Use a fully self-contained question or phrase.",
				Required: true,
			},
			"top_k": {
				Type: schema.Integer,
				Desc: "Optional number of passages to return. Leave unset for the default.",
			},
		}),
	}, nil
}

// InvokableRun executes the tool given a JSON-encoded input string and
// returns the ranked passages as a JSON array for the agent to consume.
func (t *SearchTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	var input searchInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("search_documents: invalid input: %w", err)
	}
	if input.Query == "" {
		return "", fmt.Errorf("search_documents: query is required")
	}

	topK := input.TopK
	if topK <= 0 {
		topK = t.defaultTopK
	}

	docs, err := t.searcher.Retrieve(ctx, input.Query, topK)
	if err != nil {
		return "", fmt.Errorf("search_documents: retrieval failed: %w", err)
	}
	if len(docs) == 0 {
		return "No matching passages were found in the ingested documents.", nil
	}

	results := make([]searchResult, 0, len(docs))
	for _, doc := range docs {
		page, _ := strconv.Atoi(doc.Metadata["page"])
		results = append(results, searchResult{
			Source:  doc.Source,
			Page:    page,
			Content: doc.Content,
			Score:   doc.Score,
		})
	}

	out, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("search_documents: marshal results: %w", err)
	}
	return string(out), nil
}
