package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ebuka1017/Robin/internal/cache"
	"github.com/ebuka1017/Robin/internal/domain"
)

// sessionCacheTTL bounds how long session metadata stays cached after a
// read or create.
const sessionCacheTTL = time.Hour

// registerRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions/start", s.handleSessionStart)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleSessionGet)
	mux.HandleFunc("POST /api/sessions/{id}/end", s.handleSessionEnd)
	mux.HandleFunc("GET /api/sessions/{id}/status", s.handleSessionStatus)
	mux.HandleFunc("GET /api/history/{id}", s.handleHistory)
	mux.HandleFunc("GET /api/tools/calls", s.handleToolCalls)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /ws/audio", s.handleAudioStream)

	mux.HandleFunc("/", handleNotFound)
}

type sessionStartRequest struct {
	UserID string `json:"user_id,omitempty"`
}

type sessionStartResponse struct {
	SessionID    string    `json:"session_id"`
	WebsocketURL string    `json:"websocket_url"`
	CreatedAt    time.Time `json:"created_at"`
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	var req sessionStartRequest
	if r.Body != nil {
		// An empty body means an anonymous session.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	ttl := time.Duration(s.cfg.Session.TTLHours) * time.Hour
	sess, err := s.sessions.CreateSession(req.UserID, ttl)
	if err != nil {
		s.log.Error().Err(err).Msg("session create failed")
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}

	s.cache.Set(r.Context(), cache.SessionKey(sess.ID), sess, sessionCacheTTL)
	s.log.Info().Str("session", sess.ID).Str("user", sess.UserID).Msg("session started")

	writeJSON(w, http.StatusOK, sessionStartResponse{
		SessionID:    sess.ID,
		WebsocketURL: fmt.Sprintf("/ws/audio?session_id=%s", sess.ID),
		CreatedAt:    sess.StartTime,
	})
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var cached domain.Session
	if s.cache.Get(r.Context(), cache.SessionKey(id), &cached) {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	sess := s.sessions.GetSession(id)
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	s.cache.Set(r.Context(), cache.SessionKey(id), sess, sessionCacheTTL)
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSessionEnd(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	sess := s.sessions.GetSession(id)
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	s.sessions.UpdateSessionState(id, domain.SessionEnded)
	s.cache.Delete(r.Context(), cache.SessionKey(id))
	s.marker.ClearActive(r.Context(), id)

	s.log.Info().Str("session", id).Msg("session ended via api")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ended", "session_id": id})
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	// The live marker answers first; the store only decides for sessions
	// without an open stream.
	if s.marker.IsActive(r.Context(), id) {
		writeJSON(w, http.StatusOK, map[string]string{"session_id": id, "status": "active"})
		return
	}

	sess := s.sessions.GetSession(id)
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_id": id, "status": string(sess.State)})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if s.sessions.GetSession(id) == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	limit := queryLimit(r, 50)
	messages := s.sessions.Messages(id, limit)
	if messages == nil {
		messages = []domain.ConversationTurn{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":    id,
		"message_count": len(messages),
		"messages":      messages,
	})
}

func (s *Server) handleToolCalls(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session_id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "session_id required")
		return
	}

	if s.sessions.GetSession(id) == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	limit := queryLimit(r, 50)
	calls := s.sessions.ToolCalls(id, limit)
	if calls == nil {
		calls = []domain.ToolCallRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":      id,
		"tool_call_count": len(calls),
		"tool_calls":      calls,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UnixMilli(),
	})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]string{
		"error": "not found",
		"path":  r.URL.Path,
	})
}

func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
