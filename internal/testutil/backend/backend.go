// Package backend is an in-process fake of the retrieval service used by tests.
package backend

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/risclient/internal/domain/search/mode"
)

// Call is one recorded request.
type Call struct {
	Method      string
	Path        string
	Query       url.Values
	ContentType string
	Header      http.Header
	Body        []byte
}

// Server is a chi-routed fake backend. Default handlers answer every endpoint
// the client uses; Handle overrides one route.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	calls     []Call
	overrides map[string]http.HandlerFunc
	histories map[string][]string
	results   []map[string]any
	summary   map[string]any
}

// New starts a fake backend and closes it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		overrides: make(map[string]http.HandlerFunc),
		histories: make(map[string][]string),
		results:   DefaultResults(),
		summary:   map[string]any{"total_products": 3, "average_price": 19.99},
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Use(s.override)
	r.Post("/search/{mode}", s.handleSearch)
	r.Post("/chat", s.handleChat)
	r.Get("/analytics/summary", s.handleSummary)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// DefaultResults is the search body served until SetResults is called:
// one scored hit followed by one unscored hit.
func DefaultResults() []map[string]any {
	return []map[string]any{
		{"payload": map[string]any{"id": "p1", "title": "Trail runner"}, "score": 0.92},
		{"payload": map[string]any{"id": "p2", "title": "Road shoe"}},
	}
}

// Handle replaces the handler for method and path.
func (s *Server) Handle(method, path string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[method+" "+path] = h
}

// SetResults replaces the body returned by every search endpoint. Nil encodes as JSON null.
func (s *Server) SetResults(results []map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = results
}

// SetSummary replaces the /analytics/summary body.
func (s *Server) SetSummary(summary map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = summary
}

// Calls returns all recorded requests in arrival order.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallCount returns how many requests hit method and path.
func (s *Server) CallCount(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

// LastCall returns the most recent request, or false when none arrived.
func (s *Server) LastCall() (Call, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return Call{}, false
	}
	return s.calls[len(s.calls)-1], true
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.calls = append(s.calls, Call{
			Method:      r.Method,
			Path:        r.URL.Path,
			Query:       r.URL.Query(),
			ContentType: r.Header.Get("Content-Type"),
			Header:      r.Header.Clone(),
			Body:        body,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) override(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		h, ok := s.overrides[r.Method+" "+r.URL.Path]
		s.mu.Unlock()
		if ok {
			h(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	m := mode.Mode(chi.URLParam(r, "mode"))
	if !m.IsValid() {
		writeDetail(w, http.StatusNotFound, "Not Found")
		return
	}
	if m == mode.Image {
		if _, _, err := r.FormFile("file"); err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "file is required")
			return
		}
	} else {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "invalid body: "+err.Error())
			return
		}
	}

	s.mu.Lock()
	res := s.results
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Message   string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body: "+err.Error())
		return
	}

	reply := "echo: " + req.Message

	s.mu.Lock()
	h := append(s.histories[req.SessionID], req.Message, reply)
	s.histories[req.SessionID] = h
	history := append([]string(nil), h...)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"history": history, "reply": reply})
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	sum := s.summary
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, sum)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail writes a FastAPI-style error body.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// WriteJSON is exported for override handlers.
func WriteJSON(w http.ResponseWriter, status int, v any) { writeJSON(w, status, v) }

// WriteDetail is exported for override handlers.
func WriteDetail(w http.ResponseWriter, status int, detail string) { writeDetail(w, status, detail) }
