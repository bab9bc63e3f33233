package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"handbook-ai/internal/contextutil"
	"handbook-ai/internal/storage"
)

// SessionHandler handles HTTP requests for chat session management.
type SessionHandler struct {
	sessions storage.SessionStore
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions storage.SessionStore) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// CreateSessionRequest represents the payload for creating a session.
//
// swagger:model CreateSessionRequest
type CreateSessionRequest struct {
	Owner string `json:"owner,omitempty"`
}

// SessionResponse represents a chat session.
//
// swagger:model SessionResponse
type SessionResponse struct {
	ID           string    `json:"id"`
	Owner        string    `json:"owner"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// MessageResponse represents one recorded chat turn.
//
// swagger:model MessageResponse
type MessageResponse struct {
	Seq       int                `json:"seq"`
	Role      string             `json:"role"`
	Content   string             `json:"content"`
	Sources   []CitationResponse `json:"sources,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// CitationResponse represents a citation stored with a message.
//
// swagger:model CitationResponse
type CitationResponse struct {
	Source  string `json:"source"`
	Excerpt string `json:"excerpt"`
}

// Create handles POST /api/sessions.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req CreateSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.WarnContext(ctx, "invalid request body", "error", err)
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	id, err := h.sessions.CreateSession(ctx, req.Owner)
	if err != nil {
		logger.ErrorContext(ctx, "failed to create session", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	owner := req.Owner
	if owner == "" {
		owner = storage.AnonymousOwner
	}
	logger.InfoContext(ctx, "session created", "session_id", id, "owner", owner)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// List handles GET /api/sessions. The owner query parameter defaults to
// the anonymous owner.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	owner := r.URL.Query().Get("owner")
	sessions, err := h.sessions.ListSessions(ctx, owner)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list sessions", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	resp := make([]SessionResponse, len(sessions))
	for i, s := range sessions {
		resp[i] = SessionResponse{
			ID:           s.ID,
			Owner:        s.Owner,
			CreatedAt:    s.CreatedAt,
			UpdatedAt:    s.UpdatedAt,
			MessageCount: s.MessageCount,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// History handles GET /api/sessions/{id}/messages.
func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	id := chi.URLParam(r, "id")
	messages, err := h.sessions.GetHistory(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		logger.ErrorContext(ctx, "failed to load history", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}

	resp := make([]MessageResponse, len(messages))
	for i, m := range messages {
		sources := make([]CitationResponse, len(m.Sources))
		for j, c := range m.Sources {
			sources[j] = CitationResponse{Source: c.Source, Excerpt: c.Excerpt}
		}
		if len(sources) == 0 {
			sources = nil
		}
		resp[i] = MessageResponse{
			Seq:       m.Seq,
			Role:      m.Role,
			Content:   m.Content,
			Sources:   sources,
			CreatedAt: m.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Delete handles DELETE /api/sessions/{id}.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	id := chi.URLParam(r, "id")
	if err := h.sessions.DeleteSession(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		logger.ErrorContext(ctx, "failed to delete session", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	logger.InfoContext(ctx, "session deleted", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}
