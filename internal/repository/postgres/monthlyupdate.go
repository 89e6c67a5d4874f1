package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/regulynx/compliance-chat/internal/domain"
)

// MonthlyUpdateRepository implements domain.MonthlyUpdateRepository
type MonthlyUpdateRepository struct {
	pool *pgxpool.Pool
}

// NewMonthlyUpdateRepository creates a new monthly update repository
func NewMonthlyUpdateRepository(db *DB) *MonthlyUpdateRepository {
	return &MonthlyUpdateRepository{pool: db.Pool}
}

const monthlyUpdateColumns = `id, title, category, description, change_type, state, effective_date, update_date, source_url, created_at`

func scanMonthlyUpdate(row pgx.Row) (*domain.MonthlyUpdate, error) {
	var u domain.MonthlyUpdate
	err := row.Scan(
		&u.ID,
		&u.Title,
		&u.Category,
		&u.Description,
		&u.ChangeType,
		&u.State,
		&u.EffectiveDate,
		&u.UpdateDate,
		&u.SourceURL,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *MonthlyUpdateRepository) List(ctx context.Context, filter domain.MonthlyUpdateFilter) ([]domain.MonthlyUpdate, int, error) {
	var clauses []string
	var args []any

	if filter.Category != "" {
		args = append(args, filter.Category)
		clauses = append(clauses, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.State != "" {
		args = append(args, filter.State)
		clauses = append(clauses, fmt.Sprintf("(state = $%d OR state ILIKE 'all' OR state ILIKE 'central')", len(args)))
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM monthly_updates"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count monthly updates: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Skip)
	query := fmt.Sprintf(
		"SELECT %s FROM monthly_updates%s ORDER BY update_date DESC, id DESC LIMIT $%d OFFSET $%d",
		monthlyUpdateColumns, where, len(args)-1, len(args),
	)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list monthly updates: %w", err)
	}
	defer rows.Close()

	updates, err := collectMonthlyUpdates(rows)
	if err != nil {
		return nil, 0, err
	}
	return updates, total, nil
}

func (r *MonthlyUpdateRepository) Recent(ctx context.Context, limit int) ([]domain.MonthlyUpdate, error) {
	if limit <= 0 {
		limit = 5
	}
	query := fmt.Sprintf(
		"SELECT %s FROM monthly_updates ORDER BY update_date DESC, id DESC LIMIT $1",
		monthlyUpdateColumns,
	)
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent updates: %w", err)
	}
	defer rows.Close()
	return collectMonthlyUpdates(rows)
}

func (r *MonthlyUpdateRepository) RecentSince(ctx context.Context, since time.Time) ([]domain.MonthlyUpdate, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM monthly_updates WHERE update_date >= $1 ORDER BY update_date DESC, id DESC",
		monthlyUpdateColumns,
	)
	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list updates since %s: %w", since.Format("2006-01-02"), err)
	}
	defer rows.Close()
	return collectMonthlyUpdates(rows)
}

func collectMonthlyUpdates(rows pgx.Rows) ([]domain.MonthlyUpdate, error) {
	var updates []domain.MonthlyUpdate
	for rows.Next() {
		u, err := scanMonthlyUpdate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan monthly update: %w", err)
		}
		updates = append(updates, *u)
	}
	return updates, nil
}

// BulkInsert appends all updates inside one transaction. Rows whose identity
// (title, state, update_date) already exists are silently discarded. Returns
// the number of rows actually written.
func (r *MonthlyUpdateRepository) BulkInsert(ctx context.Context, updates []domain.MonthlyUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO monthly_updates (title, category, description, change_type, state, effective_date, update_date, source_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, u := range updates {
		batch.Queue(query, u.Title, u.Category, u.Description, u.ChangeType, u.State, u.EffectiveDate, u.UpdateDate, u.SourceURL)
	}

	results := tx.SendBatch(ctx, batch)
	inserted := 0
	for range updates {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return 0, fmt.Errorf("failed to insert monthly update: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("failed to close insert batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit bulk insert: %w", err)
	}
	return inserted, nil
}
