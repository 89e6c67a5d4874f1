package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/regulynx/compliance-chat/internal/domain"
)

// ActRepository implements domain.ActRepository
type ActRepository struct {
	pool *pgxpool.Pool
}

// NewActRepository creates a new act repository
func NewActRepository(db *DB) *ActRepository {
	return &ActRepository{pool: db.Pool}
}

func (r *ActRepository) Get(ctx context.Context, id int64) (*domain.Act, error) {
	query := `
		SELECT id, state, industry, company_type, legislative_area,
		       central_acts, state_acts, employee_applicability,
		       created_at, updated_at
		FROM acts
		WHERE id = $1
	`
	var a domain.Act
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID,
		&a.State,
		&a.Industry,
		&a.CompanyType,
		&a.LegislativeArea,
		&a.CentralActs,
		&a.StateActs,
		&a.EmployeeApplicability,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get act: %w", err)
	}
	return &a, nil
}

// List returns acts matching the filter plus the total match count. A filtered
// dimension also matches rows whose stored value is "all" or "central", which
// mark the row as universally applicable.
func (r *ActRepository) List(ctx context.Context, filter domain.ActFilter) ([]domain.Act, int, error) {
	where, args := buildActFilter(filter)

	countQuery := "SELECT COUNT(*) FROM acts" + where
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count acts: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Skip)
	query := fmt.Sprintf(`
		SELECT id, state, industry, company_type, legislative_area,
		       central_acts, state_acts, employee_applicability,
		       created_at, updated_at
		FROM acts%s
		ORDER BY id ASC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list acts: %w", err)
	}
	defer rows.Close()

	var acts []domain.Act
	for rows.Next() {
		var a domain.Act
		if err := rows.Scan(
			&a.ID,
			&a.State,
			&a.Industry,
			&a.CompanyType,
			&a.LegislativeArea,
			&a.CentralActs,
			&a.StateActs,
			&a.EmployeeApplicability,
			&a.CreatedAt,
			&a.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan act: %w", err)
		}
		acts = append(acts, a)
	}
	return acts, total, nil
}

func buildActFilter(filter domain.ActFilter) (string, []any) {
	var clauses []string
	var args []any

	sentinel := func(col, value string) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(
			"(%s = $%d OR %s ILIKE 'all' OR %s ILIKE 'central')",
			col, len(args), col, col,
		))
	}

	if filter.State != "" {
		sentinel("state", filter.State)
	}
	if filter.Industry != "" {
		sentinel("industry", filter.Industry)
	}
	if filter.LegislativeArea != "" {
		sentinel("legislative_area", filter.LegislativeArea)
	}
	if filter.EmployeeApplicability != "" {
		sentinel("employee_applicability", filter.EmployeeApplicability)
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(
			"(central_acts ILIKE $%d OR state_acts ILIKE $%d OR company_type ILIKE $%d OR legislative_area ILIKE $%d)",
			n, n, n, n,
		))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *ActRepository) FilterOptions(ctx context.Context) (*domain.ActFilterOptions, error) {
	opts := &domain.ActFilterOptions{}
	for _, col := range []struct {
		name string
		dest *[]string
	}{
		{"state", &opts.States},
		{"industry", &opts.Industries},
		{"legislative_area", &opts.LegislativeAreas},
		{"employee_applicability", &opts.EmployeeApplicability},
	} {
		query := fmt.Sprintf(
			"SELECT DISTINCT %s FROM acts WHERE %s <> '' ORDER BY %s ASC",
			col.name, col.name, col.name,
		)
		rows, err := r.pool.Query(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s options: %w", col.name, err)
		}
		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan %s option: %w", col.name, err)
			}
			*col.dest = append(*col.dest, v)
		}
		rows.Close()
	}
	return opts, nil
}

// BulkInsert appends all acts inside one transaction using COPY. Any failure
// rolls back the whole batch. Returns the number of rows written.
func (r *ActRepository) BulkInsert(ctx context.Context, acts []domain.Act) (int, error) {
	if len(acts) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"acts"},
		[]string{"state", "industry", "company_type", "legislative_area", "central_acts", "state_acts", "employee_applicability"},
		pgx.CopyFromSlice(len(acts), func(i int) ([]any, error) {
			a := acts[i]
			return []any{a.State, a.Industry, a.CompanyType, a.LegislativeArea, a.CentralActs, a.StateActs, a.EmployeeApplicability}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk insert acts: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit bulk insert: %w", err)
	}
	return int(copied), nil
}

// BulkUpsert inserts all acts, replacing non-key columns when the natural key
// (state, industry, legislative_area) already exists.
func (r *ActRepository) BulkUpsert(ctx context.Context, acts []domain.Act) (int, error) {
	if len(acts) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO acts (state, industry, company_type, legislative_area, central_acts, state_acts, employee_applicability)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT ON CONSTRAINT uq_state_industry_legislative
		DO UPDATE SET
			company_type = EXCLUDED.company_type,
			central_acts = EXCLUDED.central_acts,
			state_acts = EXCLUDED.state_acts,
			employee_applicability = EXCLUDED.employee_applicability,
			updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, a := range acts {
		batch.Queue(query, a.State, a.Industry, a.CompanyType, a.LegislativeArea, a.CentralActs, a.StateActs, a.EmployeeApplicability)
	}

	results := tx.SendBatch(ctx, batch)
	for range acts {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return 0, fmt.Errorf("failed to upsert act: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("failed to close upsert batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit bulk upsert: %w", err)
	}
	return len(acts), nil
}
