package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/regulynx/compliance-chat/internal/api/response"
	"github.com/regulynx/compliance-chat/internal/domain"
	"github.com/regulynx/compliance-chat/internal/service"
)

// WidgetHandler handles widget embed endpoints
type WidgetHandler struct {
	widgetService *service.WidgetService
}

// NewWidgetHandler creates a new widget handler
func NewWidgetHandler(widgetService *service.WidgetService) *WidgetHandler {
	return &WidgetHandler{widgetService: widgetService}
}

type widgetValidateRequest struct {
	SecretKey string `json:"secret_key,omitempty"`
	WidgetID  string `json:"widget_id,omitempty"`
}

// Validate checks a widget's embed credentials and returns its tenant
// configuration.
func (h *WidgetHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req widgetValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if req.SecretKey == "" && req.WidgetID == "" {
		response.BadRequest(w, "secret_key or widget_id is required")
		return
	}

	result, err := h.widgetService.Validate(r.Context(), req.SecretKey, req.WidgetID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTenantInactive):
			response.Forbidden(w, "tenant access revoked")
		case errors.Is(err, domain.ErrNotFound):
			response.Forbidden(w, "invalid widget credentials")
		default:
			response.InternalError(w, err.Error())
		}
		return
	}
	response.OK(w, result)
}
