package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"handbook-ai/internal/contextutil"
	"handbook-ai/internal/rag"
	"handbook-ai/internal/storage"
)

// AskHandler handles HTTP requests for handbook questions.
type AskHandler struct {
	ragEngine rag.Engine
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(ragEngine rag.Engine) *AskHandler {
	return &AskHandler{ragEngine: ragEngine}
}

// AskRequest represents the HTTP request payload for handbook questions.
// This mirrors the rag.AskRequest but is defined here for HTTP layer separation.
//
// swagger:model AskRequest
type AskRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

// SourceResponse represents one cited handbook passage.
//
// swagger:model SourceResponse
type SourceResponse struct {
	// Source document the passage came from
	Source string `json:"source"`

	// Index of the chunk within the document
	ChunkIndex int `json:"chunk_index"`

	// Similarity score of the passage against the question
	Score float32 `json:"score"`

	// The passage text
	Text string `json:"text"`
}

// AskResponse represents the HTTP response payload for handbook questions.
//
// swagger:model AskResponse
type AskResponse struct {
	// The generated answer
	Answer string `json:"answer"`

	// Handbook passages the answer was drawn from
	Sources []SourceResponse `json:"sources"`
}

// ErrorResponse represents an error response.
//
// swagger:model ErrorResponse
type ErrorResponse struct {
	Error string `json:"error"`
}

// ServeHTTP handles HTTP requests for handbook questions.
//
// swagger:route POST /api/ask askQuestion
//
// # Ask a question about the handbook
//
// Answers the question from the indexed handbook and returns the passages
// used. If a session_id is provided, both the question and the answer are
// recorded in that session's history.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Answer with cited passages
//	  schema:
//	    "$ref": "#/definitions/AskResponse"
//	'400':
//	  description: Bad request (missing question)
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'404':
//	  description: Unknown session
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Question == "" {
		logger.WarnContext(ctx, "empty question in request")
		writeError(w, http.StatusBadRequest, "Question is required")
		return
	}

	ragResp, err := h.ragEngine.GetResponse(ctx, rag.AskRequest{
		Question:  req.Question,
		SessionID: req.SessionID,
	})
	if err != nil {
		switch {
		case errors.Is(err, rag.ErrEmptyQuestion):
			writeError(w, http.StatusBadRequest, "Question is required")
		case errors.Is(err, storage.ErrNotFound):
			logger.WarnContext(ctx, "unknown session", "session_id", req.SessionID)
			writeError(w, http.StatusNotFound, "Session not found")
		default:
			logger.ErrorContext(ctx, "failed to answer question", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to answer question")
		}
		return
	}

	sources := make([]SourceResponse, len(ragResp.Sources))
	for i, src := range ragResp.Sources {
		sources[i] = SourceResponse{
			Source:     src.Source,
			ChunkIndex: src.ChunkIndex,
			Score:      src.Score,
			Text:       src.Text,
		}
	}

	writeJSON(w, http.StatusOK, AskResponse{
		Answer:  ragResp.Answer,
		Sources: sources,
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{Error: message})
}
