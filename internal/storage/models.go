package storage

import "time"

// ChatSession is the metadata for one conversation.
type ChatSession struct {
	ID           string    `json:"id"`
	Owner        string    `json:"owner"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// Citation points at the handbook passage an answer was drawn from.
type Citation struct {
	Source  string `json:"source"`
	Excerpt string `json:"excerpt"`
}

// ChatMessage is one turn in a session. Messages are append-only and
// ordered by sequence within their session.
type ChatMessage struct {
	ID        string     `json:"id"`
	SessionID string     `json:"session_id"`
	Seq       int        `json:"seq"`
	Role      string     `json:"role"` // "user" or "assistant"
	Content   string     `json:"content"`
	Sources   []Citation `json:"sources,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
