package service

import (
	"context"
	"strings"

	"github.com/regulynx/compliance-chat/internal/domain"
)

// WidgetValidation is the payload returned to an embedding page after its
// credentials check out.
type WidgetValidation struct {
	Valid          bool     `json:"valid"`
	TenantID       string   `json:"tenant_id"`
	TenantName     string   `json:"tenant_name"`
	BotID          string   `json:"bot_id,omitempty"`
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
}

// WidgetService validates widget embed credentials against tenant
// configuration.
type WidgetService struct {
	repo domain.WidgetConfigRepository
}

// NewWidgetService creates a new widget service
func NewWidgetService(repo domain.WidgetConfigRepository) *WidgetService {
	return &WidgetService{repo: repo}
}

// Validate resolves a tenant from the widget's credentials. An explicit
// widget ID wins over the secret key; an inactive tenant is rejected as
// revoked rather than unknown.
func (s *WidgetService) Validate(ctx context.Context, secretKey, widgetID string) (*WidgetValidation, error) {
	var (
		cfg *domain.WidgetConfig
		err error
	)
	if widgetID = strings.TrimSpace(widgetID); widgetID != "" {
		cfg, err = s.repo.GetByTenantID(ctx, widgetID)
	} else {
		cfg, err = s.repo.GetBySecretKey(ctx, strings.TrimSpace(secretKey))
	}
	if err != nil {
		return nil, err
	}
	if !cfg.Active {
		return nil, domain.ErrTenantInactive
	}

	return &WidgetValidation{
		Valid:          true,
		TenantID:       cfg.TenantID,
		TenantName:     cfg.TenantName,
		BotID:          cfg.BotID,
		AllowedOrigins: cfg.Origins(),
	}, nil
}

// Authenticate resolves a tenant from an API key. Used by the auth
// middleware for widget-issued keys.
func (s *WidgetService) Authenticate(ctx context.Context, key string) (*domain.WidgetConfig, error) {
	cfg, err := s.repo.GetBySecretKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if !cfg.Active {
		return nil, domain.ErrTenantInactive
	}
	return cfg, nil
}
