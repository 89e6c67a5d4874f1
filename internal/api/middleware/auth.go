package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/regulynx/compliance-chat/internal/api/response"
	"github.com/regulynx/compliance-chat/internal/domain"
)

type contextKey string

const tenantKey contextKey = "tenant"

// TenantResolver resolves an API key to the tenant configuration behind it.
type TenantResolver interface {
	Authenticate(ctx context.Context, key string) (*domain.WidgetConfig, error)
}

// AuthMiddleware authenticates requests by X-API-Key. A key is accepted when
// it matches an active tenant's secret key or one of the statically
// configured system keys.
type AuthMiddleware struct {
	tenants    TenantResolver
	staticKeys []string
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(tenants TenantResolver, staticKeys []string) *AuthMiddleware {
	return &AuthMiddleware{tenants: tenants, staticKeys: staticKeys}
}

// Authenticate validates the X-API-Key header
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if key == "" {
			response.Unauthorized(w, "missing API key")
			return
		}

		if m.matchStatic(key) {
			next.ServeHTTP(w, r)
			return
		}

		if m.tenants != nil {
			tenant, err := m.tenants.Authenticate(r.Context(), key)
			if err == nil {
				ctx := context.WithValue(r.Context(), tenantKey, tenant)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			if errors.Is(err, domain.ErrTenantInactive) {
				response.Forbidden(w, "tenant access revoked")
				return
			}
			if !errors.Is(err, domain.ErrNotFound) {
				response.InternalError(w, "failed to validate API key")
				return
			}
		}

		response.Unauthorized(w, "invalid API key")
	})
}

func (m *AuthMiddleware) matchStatic(key string) bool {
	match := false
	for _, k := range m.staticKeys {
		// Constant-time compare over every configured key.
		if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			match = true
		}
	}
	return match
}

// GetTenant gets the authenticated tenant from context. Nil for callers
// authenticated with a static system key.
func GetTenant(ctx context.Context) *domain.WidgetConfig {
	tenant, _ := ctx.Value(tenantKey).(*domain.WidgetConfig)
	return tenant
}
