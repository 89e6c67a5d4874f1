package domain

import (
	"context"
	"time"
)

// User is the owner of chat sessions, keyed by a unique email-like identity.
type User struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Designation string    `json:"designation,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UserUpdate carries a user merge/rename request. If NewEmail already belongs
// to another user, the current user's sessions are reassigned to it.
type UserUpdate struct {
	CurrentEmail string `json:"current_email" validate:"required,email"`
	NewEmail     string `json:"new_email" validate:"required,email"`
	Name         string `json:"name,omitempty"`
}

// UserRepository defines the interface for user storage
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id int64) error
}
