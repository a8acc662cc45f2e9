package agent

import (
	"github.com/docqa-ai/docqa-go/internal/rag"
	"github.com/docqa-ai/docqa-go/internal/store"
)

// State carries one conversational turn through the staged answer flow:
// history load, query rewrite, retrieval, agent answer. Fields are populated
// in declaration order as the stages run; no stage reads a field a later
// stage sets. Callers receive the populated state so they can report
// provenance alongside the answer.
type State struct {
	// SessionID identifies the conversation the turn belongs to.
	SessionID string

	// History holds the prior turns loaded for this request, oldest first.
	// Empty on the first turn or when the turn runs stateless.
	History []store.Message

	// Question is the user's question as asked. This is what enters the
	// visible conversation history.
	Question string

	// Rewritten is the self-contained form of the question. It drives
	// retrieval but never appears in the history.
	Rewritten string

	// Retrieved holds the passages injected into the system prompt.
	Retrieved []rag.Document

	// Context is the formatted passage block given to the model.
	Context string

	// Answer is the assistant's final answer.
	Answer string
}
