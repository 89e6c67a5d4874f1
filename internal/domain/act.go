package domain

import (
	"context"
	"time"
)

// Act is one regulatory-applicability record imported from the Acts
// spreadsheet feed. The natural key is (state, industry, legislative_area).
type Act struct {
	ID                    int64     `json:"id"`
	State                 string    `json:"state"`
	Industry              string    `json:"industry"`
	CompanyType           string    `json:"company_type,omitempty"`
	LegislativeArea       string    `json:"legislative_area,omitempty"`
	CentralActs           string    `json:"central_acts,omitempty"`
	StateActs             string    `json:"state_acts,omitempty"`
	EmployeeApplicability string    `json:"employee_applicability,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// ActFilter selects acts. A dimension matches when the stored value equals
// the filter value, or the stored value is the sentinel "all" or "central"
// (case-insensitive) marking the row as universally applicable.
type ActFilter struct {
	State                 string
	Industry              string
	LegislativeArea       string
	EmployeeApplicability string
	Search                string
	Skip                  int
	Limit                 int
}

// ActFilterOptions lists the distinct values available per filter dimension.
type ActFilterOptions struct {
	States                []string `json:"states"`
	Industries            []string `json:"industries"`
	LegislativeAreas      []string `json:"legislative_areas"`
	EmployeeApplicability []string `json:"employee_applicability"`
}

// ActRepository defines the interface for act storage
type ActRepository interface {
	Get(ctx context.Context, id int64) (*Act, error)
	List(ctx context.Context, filter ActFilter) ([]Act, int, error)
	FilterOptions(ctx context.Context) (*ActFilterOptions, error)
	// BulkInsert appends all rows in a single transaction and returns the
	// number of rows written; any failure rolls back the whole batch.
	BulkInsert(ctx context.Context, acts []Act) (int, error)
	// BulkUpsert inserts all rows, updating non-key columns when the
	// natural key conflicts. Returns the number of rows sent.
	BulkUpsert(ctx context.Context, acts []Act) (int, error)
}
