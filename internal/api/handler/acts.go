package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/regulynx/compliance-chat/internal/api/response"
	"github.com/regulynx/compliance-chat/internal/domain"
	"github.com/regulynx/compliance-chat/internal/importer"
	"github.com/regulynx/compliance-chat/internal/service"
)

// ActsHandler handles regulatory act endpoints
type ActsHandler struct {
	actsService *service.ActsService
	runner      *importer.Runner
	upsert      importer.FileProcessor
}

// NewActsHandler creates a new acts handler
func NewActsHandler(actsService *service.ActsService, runner *importer.Runner, upsert importer.FileProcessor) *ActsHandler {
	return &ActsHandler{actsService: actsService, runner: runner, upsert: upsert}
}

// List returns acts matching the query filters
func (h *ActsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ActFilter{
		State:                 q.Get("state"),
		Industry:              q.Get("industry"),
		LegislativeArea:       q.Get("legislative_area"),
		EmployeeApplicability: q.Get("employee_applicability"),
		Search:                q.Get("search"),
		Skip:                  queryInt(q.Get("skip"), 0),
		Limit:                 queryInt(q.Get("limit"), 50),
	}

	acts, total, err := h.actsService.List(r.Context(), filter)
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}
	response.Paginated(w, acts, total, filter.Skip, filter.Limit)
}

// Get returns one act by ID
func (h *ActsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "actID")
	if err != nil {
		response.BadRequest(w, "invalid act ID")
		return
	}

	act, err := h.actsService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.NotFound(w, "act not found")
			return
		}
		response.InternalError(w, err.Error())
		return
	}
	response.OK(w, act)
}

// FilterOptions returns the distinct values per filter dimension
func (h *ActsHandler) FilterOptions(w http.ResponseWriter, r *http.Request) {
	options, err := h.actsService.FilterOptions(r.Context())
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}
	response.OK(w, options)
}

type actsImportRequest struct {
	Mode string `json:"mode,omitempty" validate:"omitempty,oneof=insert upsert"`
}

// Import runs one acts import over the inbox folder synchronously and
// returns the final job status. Mode "upsert" replaces conflicting rows
// instead of failing the file.
func (h *ActsHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req actsImportRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid request body")
			return
		}
		if err := validate.Struct(req); err != nil {
			response.BadRequest(w, err.Error())
			return
		}
	}

	var status *domain.ImportJobStatus
	if req.Mode == "upsert" {
		status = h.runner.RunWith(r.Context(), h.upsert)
	} else {
		status = h.runner.Run(r.Context())
	}
	response.OK(w, status)
}

// ImportStatus returns the latest acts import job status
func (h *ActsHandler) ImportStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.runner.Status(r.Context())
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}
	response.OK(w, status)
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
