package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/docqa-ai/docqa-go/internal/agent"
	"github.com/docqa-ai/docqa-go/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	// It must be long enough for streaming answers.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// ChatTimeout bounds a single /api/chat request from receipt to stream
	// completion. Defaults to 5 minutes if zero.
	ChatTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on /api/chat
	// (requests/second). Zero disables rate limiting.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20
	// when rate limiting is enabled and this is zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// History serves GET /api/sessions and DELETE /api/sessions/{id}.
	// *store.SQLiteStore satisfies it. If nil, the session routes return 503.
	History SessionStore
	// Catalog serves GET /api/sources. *store.SQLiteStore satisfies it.
	// If nil, the sources route returns 503.
	Catalog SourceCatalog
	// MetricsRegistry receives the server's Prometheus metrics. Defaults to
	// prometheus.DefaultRegisterer. Tests inject a fresh registry.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// answerer is the interface handleChat calls to stream an answer.
// *agent.Assistant satisfies it; tests inject a fake.
type answerer interface {
	// Answer streams the assistant's answer for question to w and returns
	// the per-turn state, including the documents retrieval surfaced.
	Answer(ctx context.Context, sessionID, question string, w io.Writer) (*agent.State, error)
}

// SessionStore is the slice of the conversation store the session routes use.
type SessionStore interface {
	// Sessions lists all sessions with message counts, most recent first.
	Sessions(ctx context.Context) ([]store.SessionInfo, error)
	// Clear deletes all messages for the given session.
	Clear(ctx context.Context, sessionID string) error
}

// SourceCatalog lists the ingested documents for GET /api/sources.
type SourceCatalog interface {
	// Sources returns each ingested file with its chunk count.
	Sources(ctx context.Context) ([]store.SourceInfo, error)
}

// Server is the HTTP server that exposes the assistant over REST/SSE.
type Server struct {
	// assistant is the document QA assistant behind /api/chat.
	assistant *agent.Assistant
	// answerer is the interface used by handleChat; set to assistant in
	// production, overridden by a fake in tests.
	answerer answerer
	// sessions backs the session listing and clearing routes.
	sessions SessionStore
	// catalog backs the ingested-sources listing route.
	catalog SourceCatalog
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
	// rl enforces the per-IP limit on /api/chat; nil when disabled.
	rl *rateLimiter
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
	// closing is set when a graceful shutdown begins, so readiness fails
	// while in-flight requests drain.
	closing atomic.Bool
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	// Message is the user's question.
	Message string `json:"message"`
	// SessionID selects the conversation history to continue. Empty uses
	// the default session.
	SessionID string `json:"session_id,omitempty"`
}

// sourceRef is one entry in the "sources" SSE event: a document the answer
// drew on, in retrieval rank order.
type sourceRef struct {
	// Source is the ingested file the passage came from.
	Source string `json:"source"`
	// Page is the 1-based page number, omitted when unknown.
	Page int `json:"page,omitempty"`
	// Score is the fused retrieval score of the best-ranked passage.
	Score float32 `json:"score"`
}

// sessionResponse is one entry in the GET /api/sessions response.
type sessionResponse struct {
	// ID is the caller-chosen session identifier.
	ID string `json:"id"`
	// Messages is the number of persisted messages.
	Messages int `json:"messages"`
	// LastActive is the timestamp of the newest message.
	LastActive time.Time `json:"last_active"`
}

// sourceResponse is one entry in the GET /api/sources response.
type sourceResponse struct {
	// Source is the ingested file basename.
	Source string `json:"source"`
	// Chunks is the number of chunks stored for the file.
	Chunks int `json:"chunks"`
}
