package handler

import (
	"encoding/json"
	"net/http"

	"github.com/regulynx/compliance-chat/internal/api/response"
	"github.com/regulynx/compliance-chat/internal/domain"
	"github.com/regulynx/compliance-chat/internal/service"
)

// LeadHandler handles lead capture endpoints
type LeadHandler struct {
	leadService *service.LeadService
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(leadService *service.LeadService) *LeadHandler {
	return &LeadHandler{leadService: leadService}
}

// Create captures a new lead
func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.LeadCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	lead, err := h.leadService.Create(r.Context(), req)
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}
	response.Created(w, lead)
}

// List returns captured leads, newest first
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := queryInt(q.Get("limit"), 50)
	skip := queryInt(q.Get("skip"), 0)

	leads, total, err := h.leadService.List(r.Context(), limit, skip)
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}
	response.Paginated(w, leads, total, skip, limit)
}
