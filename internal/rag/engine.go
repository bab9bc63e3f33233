package rag

import (
	"context"
	"errors"
	"fmt"

	"handbook-ai/internal/contextutil"
	"handbook-ai/internal/storage"
	"handbook-ai/internal/vectorstore"
)

const excerptRunes = 200

// ErrEmptyQuestion is returned when the caller submits a blank question.
var ErrEmptyQuestion = errors.New("question must not be empty")

type ragEngine struct {
	retriever   *Retriever
	synthesizer *Synthesizer
	sessions    storage.SessionStore
}

// NewEngine wires retrieval, synthesis and chat history into an Engine.
func NewEngine(retriever *Retriever, synthesizer *Synthesizer, sessions storage.SessionStore) Engine {
	return &ragEngine{
		retriever:   retriever,
		synthesizer: synthesizer,
		sessions:    sessions,
	}
}

// GetResponse answers a question against the indexed handbook and records
// both sides of the exchange in the session history. History failures are
// logged but never block the answer.
func (e *ragEngine) GetResponse(ctx context.Context, req AskRequest) (AskResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if req.Question == "" {
		return AskResponse{}, ErrEmptyQuestion
	}

	if req.SessionID != "" {
		if err := e.sessions.AppendMessage(ctx, req.SessionID, "user", req.Question, nil); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return AskResponse{}, fmt.Errorf("recording question: %w", err)
			}
			logger.WarnContext(ctx, "failed to record user message", "session_id", req.SessionID, "error", err)
		}
	}

	chunks, err := e.retriever.Retrieve(ctx, req.Question)
	if err != nil {
		logger.ErrorContext(ctx, "retrieval failed", "error", err)
		answer := fmt.Sprintf("An error occurred: %v", err)
		e.recordAnswer(ctx, req.SessionID, answer, nil)
		return AskResponse{Answer: answer, Sources: []Source{}}, nil
	}

	answer, used := e.synthesizer.Synthesize(ctx, req.Question, chunks)
	resp := AskResponse{Answer: answer, Sources: toSources(used)}

	e.recordAnswer(ctx, req.SessionID, answer, used)
	return resp, nil
}

func (e *ragEngine) recordAnswer(ctx context.Context, sessionID, answer string, used []vectorstore.ScoredPoint) {
	if sessionID == "" {
		return
	}
	logger := contextutil.LoggerFromContext(ctx)
	if err := e.sessions.AppendMessage(ctx, sessionID, "assistant", answer, toCitations(used)); err != nil {
		logger.WarnContext(ctx, "failed to record assistant message", "session_id", sessionID, "error", err)
	}
}

func toSources(chunks []vectorstore.ScoredPoint) []Source {
	sources := make([]Source, 0, len(chunks))
	for _, chunk := range chunks {
		sources = append(sources, Source{
			Source:     chunk.Source,
			ChunkIndex: chunk.ChunkIndex,
			Score:      chunk.Score,
			Text:       chunk.Text,
		})
	}
	return sources
}

func toCitations(chunks []vectorstore.ScoredPoint) []storage.Citation {
	if len(chunks) == 0 {
		return nil
	}
	citations := make([]storage.Citation, 0, len(chunks))
	for _, chunk := range chunks {
		citations = append(citations, storage.Citation{
			Source:  chunk.Source,
			Excerpt: excerpt(chunk.Text),
		})
	}
	return citations
}

func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= excerptRunes {
		return text
	}
	return string(runes[:excerptRunes]) + "..."
}
