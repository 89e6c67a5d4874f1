package domain

import (
	"context"
	"strings"
	"time"
)

// WidgetConfig is the per-tenant record behind the embeddable chat widget.
// It maps a secret credential and an optional bot identifier to a tenant
// name and an origin allow-list; Active gates usability.
type WidgetConfig struct {
	ID             int64     `json:"id"`
	TenantID       string    `json:"tenant_id"`
	TenantName     string    `json:"tenant_name"`
	SecretKey      string    `json:"-"`
	BotID          string    `json:"bot_id,omitempty"`
	AllowedOrigins string    `json:"allowed_origins,omitempty"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Origins splits the stored comma-separated origin allow-list.
func (w *WidgetConfig) Origins() []string {
	if w.AllowedOrigins == "" {
		return nil
	}
	var out []string
	for _, o := range strings.Split(w.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// WidgetConfigRepository defines the interface for tenant config storage
type WidgetConfigRepository interface {
	GetBySecretKey(ctx context.Context, key string) (*WidgetConfig, error)
	GetByTenantID(ctx context.Context, tenantID string) (*WidgetConfig, error)
}
