// Package agent runs the conversational answer flow: load the session
// history, rewrite the question to be self-contained, retrieve passages for
// it, then let a tool-calling ReAct agent answer with the retrieved context.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"

	"github.com/docqa-ai/docqa-go/internal/budget"
	"github.com/docqa-ai/docqa-go/internal/logging"
	"github.com/docqa-ai/docqa-go/internal/rag"
	"github.com/docqa-ai/docqa-go/internal/store"
)

const (
	// DefaultMaxSteps bounds the ReAct loop. One model call and one tool
	// round each count as a step, so 12 allows roughly six tool cycles.
	DefaultMaxSteps = 12

	// DefaultSession is used when the caller does not name a session.
	DefaultSession = "default"
)

// Config holds the dependencies required to construct an Assistant.
type Config struct {
	// ChatModel is the LLM backend constructed by the provider factory. It
	// serves both the rewrite chain and the ReAct loop.
	ChatModel model.ToolCallingChatModel

	// Tools is the list of document tools available to the agent.
	Tools []tool.BaseTool

	// Retriever supplies grounding passages for each question.
	Retriever rag.Retriever

	// TopK is the number of passages retrieved per question. Defaults to 10.
	TopK int

	// History is the optional conversation store used to persist and replay
	// prior turns. If nil, each question is answered statelessly.
	History store.ConversationStore

	// HistoryDepth is the number of prior turns (user+assistant pairs) to
	// inject per question. Defaults to 10.
	HistoryDepth int

	// MaxContextTokens is the estimated token budget for the full input
	// context (system prompt + history + user message). History is trimmed
	// oldest-first to fit. Defaults to budget.DefaultMaxContextTokens.
	MaxContextTokens int

	// MaxSteps bounds the ReAct loop. Defaults to DefaultMaxSteps. When the
	// bound is hit the turn fails with the loop's terminal error instead of
	// spinning.
	MaxSteps int
}

// Assistant answers document questions over a persistent conversation.
type Assistant struct {
	// reactAgent is the underlying Eino ReAct loop agent.
	reactAgent *react.Agent

	// rewriter produces the self-contained retrieval query.
	rewriter *Rewriter

	// retriever supplies grounding passages.
	retriever rag.Retriever

	// topK is the number of passages retrieved per question.
	topK int

	// history is the optional conversation store for multi-turn context.
	history store.ConversationStore

	// historyDepth is the number of prior turns injected per question.
	historyDepth int

	// maxContextTokens is the estimated token budget for the input context.
	maxContextTokens int
}

// New constructs an Assistant from the provided Config.
func New(ctx context.Context, cfg *Config) (*Assistant, error) {
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("agent: ChatModel must not be nil")
	}
	if cfg.Retriever == nil {
		return nil, fmt.Errorf("agent: Retriever must not be nil")
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = 10
	}
	depth := cfg.HistoryDepth
	if depth <= 0 {
		depth = 10
	}
	maxCtx := cfg.MaxContextTokens
	if maxCtx <= 0 {
		maxCtx = budget.DefaultMaxContextTokens
	}
	steps := cfg.MaxSteps
	if steps <= 0 {
		steps = DefaultMaxSteps
	}

	rewriter, err := NewRewriter(ctx, cfg.ChatModel)
	if err != nil {
		return nil, err
	}

	reactAgent, err := react.NewAgent(ctx, &react.AgentConfig{
		ToolCallingModel: cfg.ChatModel,
		ToolsConfig: compose.ToolsNodeConfig{
			Tools: cfg.Tools,
		},
		MaxStep: steps,
	})
	if err != nil {
		return nil, fmt.Errorf("agent: failed to create ReAct agent: %w", err)
	}

	return &Assistant{
		reactAgent:       reactAgent,
		rewriter:         rewriter,
		retriever:        cfg.Retriever,
		topK:             topK,
		history:          cfg.History,
		historyDepth:     depth,
		maxContextTokens: maxCtx,
	}, nil
}

// Answer runs the staged flow for one question and streams the answer tokens
// to w as they arrive. On success the returned state carries the rewritten
// query, the retrieved passages, and the full answer, and the turn has been
// persisted to the session history. Model and retrieval errors are terminal
// for the turn; the partially populated state is returned alongside them.
func (a *Assistant) Answer(ctx context.Context, sessionID, question string, w io.Writer) (*State, error) {
	if sessionID == "" {
		sessionID = DefaultSession
	}
	st := &State{SessionID: sessionID, Question: question}
	log := logging.FromContext(ctx)

	// Load prior turns. A read failure downgrades the turn to stateless
	// rather than failing it.
	var history []*schema.Message
	if a.history != nil {
		prior, err := a.history.Recent(ctx, sessionID, a.historyDepth*2)
		if err != nil {
			log.Warn("history: failed to load prior messages", slog.Any("error", err))
		} else {
			st.History = prior
			history = toSchemaMessages(prior)
		}
	}

	rewritten, err := a.rewriter.Rewrite(ctx, question, history)
	if err != nil {
		return st, err
	}
	st.Rewritten = rewritten
	log.Debug("query rewritten",
		slog.String("original", question),
		slog.String("rewritten", rewritten),
	)

	docs, err := a.retriever.Retrieve(ctx, rewritten, a.topK)
	if err != nil {
		return st, fmt.Errorf("agent: retrieval failed: %w", err)
	}
	st.Retrieved = docs
	st.Context = formatContext(docs)
	if len(docs) == 0 {
		log.Warn("no passages retrieved, the model answers from history alone",
			slog.String("query", rewritten))
	}

	messages := a.buildMessages(ctx, st, history)

	sr, err := a.reactAgent.Stream(ctx, messages)
	if err != nil {
		return st, fmt.Errorf("agent: stream failed: %w", err)
	}
	defer sr.Close()

	var answer strings.Builder
	for {
		msg, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return st, fmt.Errorf("agent: stream receive: %w", err)
		}
		if msg == nil || msg.Content == "" {
			continue
		}
		answer.WriteString(msg.Content)
		if _, err := fmt.Fprint(w, msg.Content); err != nil {
			return st, fmt.Errorf("agent: write answer: %w", err)
		}
	}
	st.Answer = answer.String()

	// Persist the turn with the original question (non-fatal on error).
	if a.history != nil {
		if err := a.history.Append(ctx, sessionID, store.RoleUser, question); err != nil {
			log.Warn("history: failed to persist user message", slog.Any("error", err))
		}
		if err := a.history.Append(ctx, sessionID, store.RoleAssistant, st.Answer); err != nil {
			log.Warn("history: failed to persist assistant message", slog.Any("error", err))
		}
	}

	return st, nil
}

// buildMessages assembles the agent input: the persona system prompt with the
// retrieved context, the trimmed history, then the original user question.
func (a *Assistant) buildMessages(ctx context.Context, st *State, history []*schema.Message) []*schema.Message {
	system := schema.SystemMessage(answerSystemPrompt(st.Context))
	user := schema.UserMessage(st.Question)

	// Trim history oldest-first so the estimated total fits the budget.
	fixed := []*schema.Message{system, user}
	before := len(history)
	history = budget.TrimHistory(fixed, history, a.maxContextTokens)
	if dropped := before - len(history); dropped > 0 {
		logging.FromContext(ctx).Warn("budget: dropped history messages to fit context window",
			slog.Int("dropped", dropped),
			slog.Int("retained", len(history)),
			slog.Int("max_tokens", a.maxContextTokens),
		)
	}

	out := make([]*schema.Message, 0, len(history)+2)
	out = append(out, system)
	out = append(out, history...)
	out = append(out, user)
	return out
}

// toSchemaMessages converts stored turns into model messages.
func toSchemaMessages(prior []store.Message) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(prior))
	for _, m := range prior {
		switch m.Role {
		case store.RoleUser:
			msgs = append(msgs, schema.UserMessage(m.Content))
		case store.RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(m.Content, nil))
		}
	}
	return msgs
}

// formatContext joins retrieved passages with their provenance so the model
// can cite sources.
func formatContext(docs []rag.Document) string {
	if len(docs) == 0 {
		return "(no passages were retrieved from the knowledge base)"
	}
	var sb strings.Builder
	for i, doc := range docs {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		if page := doc.Metadata["page"]; page != "" {
			fmt.Fprintf(&sb, "[%s, page %s]\n%s", doc.Source, page, doc.Content)
		} else {
			fmt.Fprintf(&sb, "[%s]\n%s", doc.Source, doc.Content)
		}
	}
	return sb.String()
}
