package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_session_store.go -package=mocks handbook-ai/internal/storage SessionStore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("record not found")

// SessionStore persists chat sessions and their messages. The local and
// SQLite backends satisfy the same contract: appends are atomic with the
// message counter, histories are ordered, and deletion removes both the
// session and every message or neither.
type SessionStore interface {
	// CreateSession starts a new session for owner ("" means anonymous)
	// and returns its id.
	CreateSession(ctx context.Context, owner string) (string, error)

	// AppendMessage appends one turn to a session. The message insert and
	// the session's message_count increment happen atomically.
	AppendMessage(ctx context.Context, sessionID, role, content string, sources []Citation) error

	// GetHistory returns all messages of a session in append order.
	GetHistory(ctx context.Context, sessionID string) ([]ChatMessage, error)

	// ListSessions returns the owner's sessions, most recently updated first.
	ListSessions(ctx context.Context, owner string) ([]ChatSession, error)

	// DeleteSession removes a session and all its messages.
	DeleteSession(ctx context.Context, sessionID string) error
}

// AnonymousOwner is the owner recorded for sessions without a user id.
const AnonymousOwner = "anonymous"
