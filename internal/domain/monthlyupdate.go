package domain

import (
	"context"
	"time"
)

// MonthlyUpdate is one regulatory-change record imported from the monthly
// updates spreadsheet feed.
type MonthlyUpdate struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Category      string    `json:"category"`
	Description   string    `json:"description"`
	ChangeType    string    `json:"change_type"`
	State         string    `json:"state"`
	EffectiveDate time.Time `json:"effective_date"`
	UpdateDate    time.Time `json:"update_date"`
	SourceURL     string    `json:"source_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// MonthlyUpdateFilter selects monthly updates for listing.
type MonthlyUpdateFilter struct {
	Category string
	State    string
	Skip     int
	Limit    int
}

// MonthlyUpdateRepository defines the interface for monthly update storage
type MonthlyUpdateRepository interface {
	List(ctx context.Context, filter MonthlyUpdateFilter) ([]MonthlyUpdate, int, error)
	// Recent returns the most recent updates by update_date, newest first.
	Recent(ctx context.Context, limit int) ([]MonthlyUpdate, error)
	// RecentSince returns updates whose update_date falls within the window.
	RecentSince(ctx context.Context, since time.Time) ([]MonthlyUpdate, error)
	// BulkInsert appends all rows in a single transaction, returning the
	// number written. Rows whose natural identity already exists are
	// silently discarded.
	BulkInsert(ctx context.Context, updates []MonthlyUpdate) (int, error)
}
