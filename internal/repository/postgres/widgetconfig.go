package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/regulynx/compliance-chat/internal/domain"
)

// WidgetConfigRepository implements domain.WidgetConfigRepository
type WidgetConfigRepository struct {
	pool *pgxpool.Pool
}

// NewWidgetConfigRepository creates a new widget config repository
func NewWidgetConfigRepository(db *DB) *WidgetConfigRepository {
	return &WidgetConfigRepository{pool: db.Pool}
}

const widgetConfigColumns = `id, tenant_id, tenant_name, secret_key, bot_id, allowed_origins, active, created_at, updated_at`

func (r *WidgetConfigRepository) getBy(ctx context.Context, column, value string) (*domain.WidgetConfig, error) {
	query := fmt.Sprintf("SELECT %s FROM widget_config WHERE %s = $1", widgetConfigColumns, column)
	var w domain.WidgetConfig
	err := r.pool.QueryRow(ctx, query, value).Scan(
		&w.ID,
		&w.TenantID,
		&w.TenantName,
		&w.SecretKey,
		&w.BotID,
		&w.AllowedOrigins,
		&w.Active,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get widget config by %s: %w", column, err)
	}
	return &w, nil
}

func (r *WidgetConfigRepository) GetBySecretKey(ctx context.Context, key string) (*domain.WidgetConfig, error) {
	return r.getBy(ctx, "secret_key", key)
}

func (r *WidgetConfigRepository) GetByTenantID(ctx context.Context, tenantID string) (*domain.WidgetConfig, error) {
	return r.getBy(ctx, "tenant_id", tenantID)
}
