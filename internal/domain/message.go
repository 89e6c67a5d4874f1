package domain

import (
	"context"
	"time"
)

// MessageRole represents the sender of a message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// ChatMessage is one utterance inside a thread.
type ChatMessage struct {
	ID        int64       `json:"id"`
	ThreadID  int64       `json:"thread_id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

// MessageRepository defines the interface for message storage
type MessageRepository interface {
	Create(ctx context.Context, message *ChatMessage) error
	ListByThread(ctx context.Context, threadID int64) ([]ChatMessage, error)
}
