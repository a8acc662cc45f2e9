// Package server implements the HTTP server that exposes the document QA
// assistant via a REST/SSE API: streaming chat, session management, the
// ingested-source catalog, health/readiness probes and Prometheus metrics.
// The server is started by the `docqa serve` CLI command.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/docqa-ai/docqa-go/internal/agent"
	"github.com/docqa-ai/docqa-go/internal/logging"
	"github.com/docqa-ai/docqa-go/internal/rag"
)

// New constructs a Server from the provided assistant and config.
func New(assistant *agent.Assistant, cfg *Config) (*Server, error) {
	if assistant == nil {
		return nil, fmt.Errorf("server: assistant must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// WriteTimeout must be long enough for streaming responses.
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.ChatTimeout == 0 {
		cfg.ChatTimeout = 5 * time.Minute
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}

	log := cfg.Logger
	if log == nil {
		log = logging.New("info", "json")
	}

	s := &Server{
		assistant: assistant,
		answerer:  assistant,
		sessions:  cfg.History,
		catalog:   cfg.Catalog,
		cfg:       cfg,
		log:       log,
		pingers:   cfg.Pingers,
		metrics:   newServerMetrics(cfg.MetricsRegistry),
	}

	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst == 0 {
			burst = defaultRateBurst
		}
		s.rl, s.stopRL = newRateLimiter(cfg.RateLimit, burst, log)
	}

	if cfg.APIKey == "" {
		log.Warn("server: API authentication disabled, set DOCQA_API_KEY to enable it")
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// routes assembles the request mux and the middleware chain around it.
// Health, readiness and metrics stay unauthenticated so orchestrators can
// probe them; everything else sits behind the Bearer token when one is set.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.cfg.MetricsGatherer, promhttp.HandlerOpts{}))

	chat := http.Handler(http.HandlerFunc(s.handleChat))
	if s.rl != nil {
		chat = s.rl.middleware(chat)
	}
	mux.Handle("POST /api/chat", s.protect("chat", chat))
	mux.Handle("GET /api/sessions", s.protect("sessions", http.HandlerFunc(s.handleSessions)))
	mux.Handle("DELETE /api/sessions/{id}", s.protect("session_clear", http.HandlerFunc(s.handleSessionClear)))
	mux.Handle("GET /api/sources", s.protect("sources", http.HandlerFunc(s.handleSources)))

	return requestLogger(s.log, mux)
}

// protect wraps a handler with request metrics and Bearer authentication.
// The metrics wrapper sits outermost so rejected requests are counted too.
func (s *Server) protect(name string, next http.Handler) http.Handler {
	return s.instrument(name, authMiddleware(s.cfg.APIKey, next))
}

// instrument records the request count and latency for a logical endpoint.
func (s *Server) instrument(name string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.metrics.httpRequestsTotal.
			WithLabelValues(r.Method, name, strconv.Itoa(rw.status)).Inc()
		s.metrics.httpDurationSeconds.
			WithLabelValues(r.Method, name).Observe(time.Since(start).Seconds())
	})
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	if s.stopRL != nil {
		defer s.stopRL()
	}

	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		// Fail readiness first so load balancers stop routing here while
		// in-flight requests drain.
		s.closing.Store(true)
		s.log.Info("server shutting down", slog.Duration("timeout", s.cfg.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleChat handles POST /api/chat requests. It streams the assistant's
// answer using Server-Sent Events (SSE) so clients can render tokens as they
// arrive: answer text in unnamed data frames, then a "sources" event with the
// documents the answer drew on, then a "done" event. Failures after the
// stream has started are delivered in-band as an "error" event.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	// Set SSE headers so the client receives a streaming response.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ChatTimeout)
	defer cancel()

	s.metrics.chatActiveStreams.Inc()
	defer s.metrics.chatActiveStreams.Dec()
	start := time.Now()

	// sseWriter wraps the ResponseWriter to emit SSE-formatted data events.
	sw := &sseWriter{w: w, flusher: flusher, frames: s.metrics.chatStreamFramesTotal}

	st, err := s.answerer.Answer(ctx, req.SessionID, req.Message, sw)
	if err != nil {
		outcome := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		s.observeChat(outcome, start)
		logging.FromContext(r.Context()).Error("chat request failed",
			slog.String("session_id", req.SessionID),
			slog.Any("error", err),
		)
		fmt.Fprintf(w, "event: error\ndata: %s\n\n", err.Error())
		flusher.Flush()
		return
	}

	if refs := sourceRefs(st.Retrieved); len(refs) > 0 {
		if payload, err := json.Marshal(refs); err == nil {
			fmt.Fprintf(w, "event: sources\ndata: %s\n\n", payload)
		}
	}

	// Signal stream completion.
	fmt.Fprintf(w, "event: done\ndata: [DONE]\n\n")
	flusher.Flush()
	s.observeChat("ok", start)
}

// observeChat records the outcome and duration of one /api/chat request.
func (s *Server) observeChat(outcome string, start time.Time) {
	s.metrics.chatRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.chatDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

// sourceRefs collapses retrieved chunks into one reference per source page,
// keeping retrieval rank order and the best-ranked score.
func sourceRefs(docs []rag.Document) []sourceRef {
	refs := make([]sourceRef, 0, len(docs))
	seen := make(map[string]bool, len(docs))
	for _, doc := range docs {
		page, _ := strconv.Atoi(doc.Metadata["page"])
		key := doc.Source + "#" + strconv.Itoa(page)
		if seen[key] {
			continue
		}
		seen[key] = true
		refs = append(refs, sourceRef{Source: doc.Source, Page: page, Score: doc.Score})
	}
	return refs
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"}) //nolint:errcheck // liveness body is best-effort
}

// sseWriter wraps an http.ResponseWriter to emit Server-Sent Event data frames.
type sseWriter struct {
	// w is the underlying response writer.
	w http.ResponseWriter

	// flusher flushes buffered data to the client after each write.
	flusher http.Flusher

	// frames counts emitted data frames; nil disables counting.
	frames prometheus.Counter
}

// Write formats p as one or more SSE data lines and flushes to the client.
// Each newline in p is prefixed with "data: " so multi-line chunks never
// break the SSE frame boundary.
func (s *sseWriter) Write(p []byte) (n int, err error) {
	chunk := strings.TrimRight(string(bytes.Clone(p)), "\n")
	lines := strings.Split(chunk, "\n")
	var buf strings.Builder
	for _, line := range lines {
		buf.WriteString("data: ")
		buf.WriteString(line)
		buf.WriteString("\n")
	}
	buf.WriteString("\n")
	if _, err = fmt.Fprint(s.w, buf.String()); err != nil {
		return 0, err
	}
	s.flusher.Flush()
	if s.frames != nil {
		s.frames.Inc()
	}
	return len(p), nil
}
