package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_engine.go -package=mocks handbook-ai/internal/rag Engine

import (
	"context"

	"handbook-ai/internal/llm"
)

// Embedder maps texts to fixed-dimension vectors. The retriever requires
// the same model the index was built with.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// ChatClient generates a completion for a list of chat messages.
type ChatClient interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// AskRequest is a question, optionally tied to a chat session.
type AskRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

// Source is one retrieved handbook passage cited by an answer.
type Source struct {
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
	Text       string  `json:"text"`
}

// AskResponse is the answer with the passages it was drawn from. Backend
// failures surface as an error message in Answer with empty Sources, so
// callers always have one uniform shape to render.
type AskResponse struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Engine answers questions over the indexed handbook.
type Engine interface {
	// GetResponse retrieves context for the question, generates a grounded
	// answer, and records both turns in the session when sessionID is set.
	GetResponse(ctx context.Context, req AskRequest) (AskResponse, error)
}
