package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/regulynx/compliance-chat/internal/domain"
)

// ThreadRepository implements domain.ThreadRepository
type ThreadRepository struct {
	pool *pgxpool.Pool
}

// NewThreadRepository creates a new thread repository
func NewThreadRepository(db *DB) *ThreadRepository {
	return &ThreadRepository{pool: db.Pool}
}

func (r *ThreadRepository) Create(ctx context.Context, thread *domain.ChatThread) error {
	query := `
		INSERT INTO chat_threads (session_id, title)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		thread.SessionID,
		thread.Title,
	).Scan(&thread.ID, &thread.CreatedAt, &thread.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create thread: %w", err)
	}
	return nil
}

func (r *ThreadRepository) Get(ctx context.Context, id int64) (*domain.ChatThread, error) {
	query := `
		SELECT id, session_id, title, created_at, updated_at
		FROM chat_threads
		WHERE id = $1
	`
	var t domain.ChatThread
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID,
		&t.SessionID,
		&t.Title,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}
	return &t, nil
}

func (r *ThreadRepository) GetInSession(ctx context.Context, id, sessionID int64) (*domain.ChatThread, error) {
	query := `
		SELECT id, session_id, title, created_at, updated_at
		FROM chat_threads
		WHERE id = $1 AND session_id = $2
	`
	var t domain.ChatThread
	err := r.pool.QueryRow(ctx, query, id, sessionID).Scan(
		&t.ID,
		&t.SessionID,
		&t.Title,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get thread in session: %w", err)
	}
	return &t, nil
}

func (r *ThreadRepository) ListBySession(ctx context.Context, sessionID int64) ([]domain.ChatThread, error) {
	query := `
		SELECT id, session_id, title, created_at, updated_at
		FROM chat_threads
		WHERE session_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	var threads []domain.ChatThread
	for rows.Next() {
		var t domain.ChatThread
		if err := rows.Scan(
			&t.ID,
			&t.SessionID,
			&t.Title,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		threads = append(threads, t)
	}
	return threads, nil
}
