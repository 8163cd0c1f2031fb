// Package api implements the HTTP API server for oversite.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/akshatvasisht/oversite/internal/model"
	"github.com/akshatvasisht/oversite/internal/score"
	"github.com/akshatvasisht/oversite/internal/store"
	"github.com/akshatvasisht/oversite/internal/track"
)

// Server is the oversite HTTP API server.
type Server struct {
	addr     string
	mux      *http.ServeMux
	server   *http.Server
	store    store.Store
	tracker  *track.Tracker
	pipeline *score.Pipeline
}

// New creates a new API server.
func New(addr string, st store.Store, tracker *track.Tracker, pipeline *score.Pipeline) *Server {
	s := &Server{addr: addr, store: st, tracker: tracker, pipeline: pipeline}
	s.mux = http.NewServeMux()
	s.registerRoutes()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("POST /api/v1/session/start", s.handleSessionStart)
	s.mux.HandleFunc("POST /api/v1/session/end", s.handleSessionEnd)
	s.mux.HandleFunc("GET /api/v1/session/{id}/trace", s.handleSessionTrace)
	s.mux.HandleFunc("GET /api/v1/session/{id}/score", s.handleSessionScore)

	s.mux.HandleFunc("POST /api/v1/files", s.handleCreateFile)
	s.mux.HandleFunc("POST /api/v1/events/editor", s.handleEditorEvent)
	s.mux.HandleFunc("POST /api/v1/events/panel", s.handlePanelEvent)
	s.mux.HandleFunc("POST /api/v1/events/execute", s.handleExecuteEvent)

	s.mux.HandleFunc("POST /api/v1/ai/chat", s.handleChat)
	s.mux.HandleFunc("GET /api/v1/ai/history", s.handleChatHistory)

	s.mux.HandleFunc("POST /api/v1/suggestions", s.handleCreateSuggestion)
	s.mux.HandleFunc("GET /api/v1/suggestions/{id}", s.handleGetSuggestion)
	s.mux.HandleFunc("POST /api/v1/suggestions/{id}/chunks/{index}/decide", s.handleDecide)
	s.mux.HandleFunc("POST /api/v1/suggestions/{id}/resolve", s.handleResolve)

	s.mux.HandleFunc("GET /api/v1/analytics/overview", s.handleAnalyticsOverview)

	s.mux.HandleFunc("GET /api/ws", s.handleWebSocket)
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	log.Printf("oversite API server listening on %s", s.addr)
	return s.server.ListenAndServe()
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// readJSON decodes a JSON request body into v.
func readJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("empty request body")
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}

// writeDomainError maps the model error taxonomy onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case model.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error())
	case model.IsValidation(err) || model.IsRange(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case isNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
