package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/docqa-ai/docqa-go/internal/store"
)

// ---------------------------------------------------------------------------
// Fakes for the session and source routes
// ---------------------------------------------------------------------------

type fakeSessionStore struct {
	infos     []store.SessionInfo
	err       error
	clearedID string
}

func (f *fakeSessionStore) Sessions(_ context.Context) ([]store.SessionInfo, error) {
	return f.infos, f.err
}

func (f *fakeSessionStore) Clear(_ context.Context, sessionID string) error {
	f.clearedID = sessionID
	return f.err
}

type fakeCatalog struct {
	infos []store.SourceInfo
	err   error
}

func (f *fakeCatalog) Sources(_ context.Context) ([]store.SourceInfo, error) {
	return f.infos, f.err
}

// ---------------------------------------------------------------------------
// GET /api/sessions
// ---------------------------------------------------------------------------

func Test_HandleSessions_ListsSessions(t *testing.T) {
	t.Parallel()

	lastActive := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := newTestServer()
	s.sessions = &fakeSessionStore{infos: []store.SessionInfo{
		{ID: "support-1", Messages: 4, LastActive: lastActive},
		{ID: "default", Messages: 2, LastActive: lastActive.Add(-time.Hour)},
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	w := httptest.NewRecorder()

	s.handleSessions(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}

	var resp []sessionResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(resp))
	}
	if resp[0].ID != "support-1" || resp[0].Messages != 4 {
		t.Errorf("resp[0] = %+v, want support-1 with 4 messages", resp[0])
	}
	if !resp[0].LastActive.Equal(lastActive) {
		t.Errorf("resp[0].LastActive = %v, want %v", resp[0].LastActive, lastActive)
	}
}

func Test_HandleSessions_Empty(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	s.sessions = &fakeSessionStore{}

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	w := httptest.NewRecorder()

	s.handleSessions(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	// An empty list must encode as [], not null.
	if body := w.Body.String(); !json.Valid([]byte(body)) || body[0] != '[' {
		t.Errorf("expected JSON array body, got: %s", body)
	}
}

func Test_HandleSessions_StoreError(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	s.sessions = &fakeSessionStore{err: errors.New("db locked")}

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	w := httptest.NewRecorder()

	s.handleSessions(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func Test_HandleSessions_NotConfigured(t *testing.T) {
	t.Parallel()

	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	w := httptest.NewRecorder()

	s.handleSessions(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without a session store, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// DELETE /api/sessions/{id} — exercised through the mux so PathValue works
// ---------------------------------------------------------------------------

func Test_HandleSessionClear_ViaRoutes(t *testing.T) {
	t.Parallel()

	fake := &fakeSessionStore{}
	s := newTestServer()
	s.sessions = fake

	h := s.routes()
	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/support-1", nil)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}
	if fake.clearedID != "support-1" {
		t.Errorf("expected session support-1 cleared, got %q", fake.clearedID)
	}

	var resp map[string]bool
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp["ok"] {
		t.Errorf("expected ok:true, got %v", resp)
	}
}

func Test_HandleSessionClear_StoreError(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	s.sessions = &fakeSessionStore{err: errors.New("db locked")}

	h := s.routes()
	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/x", nil)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// GET /api/sources
// ---------------------------------------------------------------------------

func Test_HandleSources_ListsDocuments(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	s.catalog = &fakeCatalog{infos: []store.SourceInfo{
		{Source: "manual.pdf", Chunks: 42},
		{Source: "faq.md", Chunks: 7},
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/sources", nil)
	w := httptest.NewRecorder()

	s.handleSources(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}

	var resp []sourceResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(resp))
	}
	if resp[0].Source != "manual.pdf" || resp[0].Chunks != 42 {
		t.Errorf("resp[0] = %+v, want manual.pdf with 42 chunks", resp[0])
	}
}

func Test_HandleSources_NotConfigured(t *testing.T) {
	t.Parallel()

	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/sources", nil)
	w := httptest.NewRecorder()

	s.handleSources(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without a catalog, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Route wiring — auth placement
// ---------------------------------------------------------------------------

// Test_Routes_AuthShieldsAPIRoutes verifies that the Bearer token guards the
// data routes while health stays open for orchestrator probes.
func Test_Routes_AuthShieldsAPIRoutes(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	s.cfg.APIKey = "secret"
	s.catalog = &fakeCatalog{}

	h := s.routes()

	health := httptest.NewRecorder()
	h.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if health.Code != http.StatusOK {
		t.Errorf("health: expected 200 without token, got %d", health.Code)
	}

	denied := httptest.NewRecorder()
	h.ServeHTTP(denied, httptest.NewRequest(http.MethodGet, "/api/sources", nil))
	if denied.Code != http.StatusUnauthorized {
		t.Errorf("sources: expected 401 without token, got %d", denied.Code)
	}

	allowed := httptest.NewRecorder()
	authed := httptest.NewRequest(http.MethodGet, "/api/sources", nil)
	authed.Header.Set("Authorization", "Bearer secret")
	h.ServeHTTP(allowed, authed)
	if allowed.Code != http.StatusOK {
		t.Errorf("sources: expected 200 with token, got %d", allowed.Code)
	}
}
