package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemorySessionStore is the local SessionStore. Sessions live only for
// the process lifetime; semantics match the SQLite backend.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*ChatSession
	messages map[string][]ChatMessage
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*ChatSession),
		messages: make(map[string][]ChatMessage),
	}
}

// CreateSession starts a new session and returns its id.
func (s *MemorySessionStore) CreateSession(_ context.Context, owner string) (string, error) {
	if owner == "" {
		owner = AnonymousOwner
	}
	id := uuid.New().String()
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &ChatSession{
		ID:        id,
		Owner:     owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id, nil
}

// AppendMessage appends one turn. The message append and counter
// increment share the critical section, so the counter cannot desync.
func (s *MemorySessionStore) AppendMessage(_ context.Context, sessionID, role, content string, sources []Citation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}

	now := time.Now().UTC()
	s.messages[sessionID] = append(s.messages[sessionID], ChatMessage{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Seq:       session.MessageCount,
		Role:      role,
		Content:   content,
		Sources:   append([]Citation(nil), sources...),
		CreatedAt: now,
	})
	session.MessageCount++
	session.UpdatedAt = now
	return nil
}

// GetHistory returns all messages of a session in append order.
func (s *MemorySessionStore) GetHistory(_ context.Context, sessionID string) ([]ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return nil, ErrNotFound
	}
	return append([]ChatMessage(nil), s.messages[sessionID]...), nil
}

// ListSessions returns the owner's sessions, most recently updated first.
func (s *MemorySessionStore) ListSessions(_ context.Context, owner string) ([]ChatSession, error) {
	if owner == "" {
		owner = AnonymousOwner
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var sessions []ChatSession
	for _, session := range s.sessions {
		if session.Owner == owner {
			sessions = append(sessions, *session)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].UpdatedAt.Equal(sessions[j].UpdatedAt) {
			return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
		}
		return sessions[i].ID < sessions[j].ID
	})
	return sessions, nil
}

// DeleteSession removes a session and its messages together.
func (s *MemorySessionStore) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, sessionID)
	delete(s.messages, sessionID)
	return nil
}
