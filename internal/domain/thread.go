package domain

import (
	"context"
	"time"
)

// ChatThread groups the messages of one conversation inside a session.
type ChatThread struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ThreadRepository defines the interface for thread storage
type ThreadRepository interface {
	Create(ctx context.Context, thread *ChatThread) error
	Get(ctx context.Context, id int64) (*ChatThread, error)
	// GetInSession returns the thread only if it belongs to the given
	// session; otherwise ErrNotFound.
	GetInSession(ctx context.Context, id, sessionID int64) (*ChatThread, error)
	ListBySession(ctx context.Context, sessionID int64) ([]ChatThread, error)
}
