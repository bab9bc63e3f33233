package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionRepo is the durable SessionStore backed by SQLite. It implements
// the SessionStore interface.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo creates a new SessionRepo.
func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// CreateSession starts a new session and returns its id.
func (r *SessionRepo) CreateSession(ctx context.Context, owner string) (string, error) {
	if owner == "" {
		owner = AnonymousOwner
	}
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO sessions (id, owner, created_at, updated_at, message_count) VALUES (?, ?, ?, ?, 0)",
		id, owner, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return id, nil
}

// AppendMessage appends one turn to a session. The insert, the counter
// increment, and the updated_at bump run in a single transaction so the
// counter can never desync from the stored messages.
func (r *SessionRepo) AppendMessage(ctx context.Context, sessionID, role, content string, sources []Citation) error {
	var sourcesJSON []byte
	if len(sources) > 0 {
		var err error
		sourcesJSON, err = json.Marshal(sources)
		if err != nil {
			return fmt.Errorf("failed to marshal sources: %w", err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// The next sequence number is claimed inside the transaction; the
	// UNIQUE (session_id, seq) constraint rejects a concurrent claim and
	// SQLite's locking makes one of the writers retry at the driver level.
	var seq int
	err = tx.QueryRowContext(ctx,
		"SELECT message_count FROM sessions WHERE id = ?", sessionID,
	).Scan(&seq)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		"INSERT INTO messages (id, session_id, seq, role, content, sources, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		uuid.New().String(), sessionID, seq, role, content, nullableString(sourcesJSON), now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE sessions SET message_count = message_count + 1, updated_at = ? WHERE id = ?",
		now, sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit append: %w", err)
	}
	return nil
}

// GetHistory returns all messages of a session in append order.
func (r *SessionRepo) GetHistory(ctx context.Context, sessionID string) ([]ChatMessage, error) {
	if err := r.sessionExists(ctx, sessionID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT id, session_id, seq, role, content, sources, created_at FROM messages WHERE session_id = ? ORDER BY seq",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var messages []ChatMessage
	for rows.Next() {
		var msg ChatMessage
		var sourcesJSON sql.NullString
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Seq, &msg.Role, &msg.Content, &sourcesJSON, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if sourcesJSON.Valid && sourcesJSON.String != "" {
			if err := json.Unmarshal([]byte(sourcesJSON.String), &msg.Sources); err != nil {
				return nil, fmt.Errorf("failed to parse sources: %w", err)
			}
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return messages, nil
}

// ListSessions returns the owner's sessions, most recently updated first.
func (r *SessionRepo) ListSessions(ctx context.Context, owner string) ([]ChatSession, error) {
	if owner == "" {
		owner = AnonymousOwner
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT id, owner, created_at, updated_at, message_count FROM sessions WHERE owner = ? ORDER BY updated_at DESC, id",
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var sessions []ChatSession
	for rows.Next() {
		var s ChatSession
		if err := rows.Scan(&s.ID, &s.Owner, &s.CreatedAt, &s.UpdatedAt, &s.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return sessions, nil
}

// DeleteSession removes a session and all its messages in one transaction,
// so a partially deleted session is never observable.
func (r *SessionRepo) DeleteSession(ctx context.Context, sessionID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deletion: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit deletion: %w", err)
	}
	return nil
}

func (r *SessionRepo) sessionExists(ctx context.Context, sessionID string) error {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM sessions WHERE id = ?", sessionID).Scan(&one)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	return nil
}

func nullableString(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	return string(data)
}
