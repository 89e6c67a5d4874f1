package domain

import (
	"context"
	"time"
)

// ChatSession is the top level of the conversation hierarchy: one user owns
// many sessions, one session owns many threads.
type ChatSession struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionRepository defines the interface for session storage
type SessionRepository interface {
	Create(ctx context.Context, session *ChatSession) error
	Get(ctx context.Context, id int64) (*ChatSession, error)
	// GetOwned returns the session only if it belongs to the given user;
	// a foreign or missing session yields ErrNotFound.
	GetOwned(ctx context.Context, id, userID int64) (*ChatSession, error)
	ListByUser(ctx context.Context, userID int64) ([]ChatSession, error)
	// ReassignUser moves all sessions owned by fromUserID to toUserID.
	ReassignUser(ctx context.Context, fromUserID, toUserID int64) error
	Touch(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}
