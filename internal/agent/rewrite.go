package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/docqa-ai/docqa-go/internal/logging"
)

// Rewriter turns follow-up questions into self-contained queries using the
// conversation history, so retrieval works on "what does the warranty cover
// for the X200" instead of "what about the X200".
type Rewriter struct {
	runnable compose.Runnable[map[string]any, *schema.Message]
}

// NewRewriter compiles the two-step rewrite chain (prompt template, then
// chat model). The chain is compiled once and reused for every turn.
func NewRewriter(ctx context.Context, m model.ToolCallingChatModel) (*Rewriter, error) {
	if m == nil {
		return nil, fmt.Errorf("agent: rewriter model must not be nil")
	}

	tpl := prompt.FromMessages(schema.FString,
		schema.SystemMessage(rewriteSystemPrompt),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{question}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(tpl).AppendChatModel(m)
	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("agent: compile rewrite chain: %w", err)
	}
	return &Rewriter{runnable: runnable}, nil
}

// Rewrite returns a self-contained form of question. It makes exactly one
// model call; transport or model errors are terminal for the turn. An empty
// completion falls back to the original question.
func (r *Rewriter) Rewrite(ctx context.Context, question string, history []*schema.Message) (string, error) {
	out, err := r.runnable.Invoke(ctx, map[string]any{
		"history":  history,
		"question": question,
	})
	if err != nil {
		return "", fmt.Errorf("agent: query rewrite failed: %w", err)
	}

	rewritten := strings.TrimSpace(out.Content)
	if rewritten == "" {
		logging.FromContext(ctx).Warn("query rewrite returned empty content, keeping the original question")
		return question, nil
	}
	return rewritten, nil
}
