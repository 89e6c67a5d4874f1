package domain

import (
	"context"
	"time"
)

// Lead is a contact captured from the widget's lead form.
type Lead struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Company   string    `json:"company,omitempty"`
	Message   string    `json:"message,omitempty"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LeadCreate is the request body for creating a lead.
type LeadCreate struct {
	Name    string `json:"name" validate:"required,max=255"`
	Email   string `json:"email" validate:"required,email,max=255"`
	Phone   string `json:"phone,omitempty" validate:"max=32"`
	Company string `json:"company,omitempty" validate:"max=255"`
	Message string `json:"message,omitempty"`
	Source  string `json:"source,omitempty" validate:"max=64"`
}

// LeadRepository defines the interface for lead storage
type LeadRepository interface {
	Create(ctx context.Context, lead *Lead) error
	List(ctx context.Context, limit, offset int) ([]Lead, int, error)
}
