// Package server — sessions.go contains the conversation-session and
// ingested-source HTTP handlers.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/docqa-ai/docqa-go/internal/logging"
)

// writeJSONError writes a JSON-formatted error response with the given status code.
func writeJSONError(w http.ResponseWriter, msg string, status int) {
	http.Error(w, `{"error":"`+msg+`"}`, status)
}

// writeJSON encodes v as the JSON response body.
func writeJSON(r *http.Request, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("response encode error", slog.Any("error", err))
	}
}

// handleSessions handles GET /api/sessions.
// It lists every persisted conversation with its message count, most recent
// first, so clients can offer a session picker.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		writeJSONError(w, "session store not configured", http.StatusServiceUnavailable)
		return
	}

	infos, err := s.sessions.Sessions(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("session list failed", slog.Any("error", err))
		writeJSONError(w, "failed to list sessions", http.StatusInternalServerError)
		return
	}

	resp := make([]sessionResponse, 0, len(infos))
	for _, info := range infos {
		resp = append(resp, sessionResponse{
			ID:         info.ID,
			Messages:   info.Messages,
			LastActive: info.LastActive,
		})
	}
	writeJSON(r, w, resp)
}

// handleSessionClear handles DELETE /api/sessions/{id}.
// Clearing a session that does not exist succeeds: the end state is the same.
func (s *Server) handleSessionClear(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		writeJSONError(w, "session store not configured", http.StatusServiceUnavailable)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		writeJSONError(w, "session id is required", http.StatusBadRequest)
		return
	}

	if err := s.sessions.Clear(r.Context(), id); err != nil {
		logging.FromContext(r.Context()).Error("session clear failed",
			slog.String("session_id", id),
			slog.Any("error", err),
		)
		writeJSONError(w, "failed to clear session", http.StatusInternalServerError)
		return
	}

	writeJSON(r, w, map[string]bool{"ok": true})
}

// handleSources handles GET /api/sources.
// It lists the ingested documents with their chunk counts.
func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		writeJSONError(w, "chunk catalog not configured", http.StatusServiceUnavailable)
		return
	}

	infos, err := s.catalog.Sources(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("source list failed", slog.Any("error", err))
		writeJSONError(w, "failed to list sources", http.StatusInternalServerError)
		return
	}

	resp := make([]sourceResponse, 0, len(infos))
	for _, info := range infos {
		resp = append(resp, sourceResponse{Source: info.Source, Chunks: info.Chunks})
	}
	writeJSON(r, w, resp)
}
