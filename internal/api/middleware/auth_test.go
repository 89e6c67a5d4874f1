package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/regulynx/compliance-chat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTenantResolver struct {
	tenants map[string]*domain.WidgetConfig
	err     error
}

func (s *stubTenantResolver) Authenticate(ctx context.Context, key string) (*domain.WidgetConfig, error) {
	if s.err != nil {
		return nil, s.err
	}
	tenant, ok := s.tenants[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !tenant.Active {
		return nil, domain.ErrTenantInactive
	}
	return tenant, nil
}

func callAuth(m *AuthMiddleware, key string) (*httptest.ResponseRecorder, *domain.WidgetConfig) {
	var seen *domain.WidgetConfig
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetTenant(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/acts", nil)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rec := httptest.NewRecorder()
	m.Authenticate(next).ServeHTTP(rec, req)
	return rec, seen
}

func TestAuthMiddleware(t *testing.T) {
	resolver := &stubTenantResolver{tenants: map[string]*domain.WidgetConfig{
		"sk-acme":    {TenantID: "acme", Active: true},
		"sk-revoked": {TenantID: "gone", Active: false},
	}}
	m := NewAuthMiddleware(resolver, []string{"system-key"})

	t.Run("missing key", func(t *testing.T) {
		rec, _ := callAuth(m, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("static key passes without tenant", func(t *testing.T) {
		rec, tenant := callAuth(m, "system-key")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, tenant)
	})

	t.Run("tenant key attaches tenant", func(t *testing.T) {
		rec, tenant := callAuth(m, "sk-acme")
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, tenant)
		assert.Equal(t, "acme", tenant.TenantID)
	})

	t.Run("revoked tenant is forbidden", func(t *testing.T) {
		rec, _ := callAuth(m, "sk-revoked")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown key is unauthorized", func(t *testing.T) {
		rec, _ := callAuth(m, "sk-unknown")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
