package handler

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/regulynx/compliance-chat/internal/api/response"
	"github.com/regulynx/compliance-chat/internal/domain"
	"github.com/regulynx/compliance-chat/internal/importer"
	"github.com/regulynx/compliance-chat/internal/service"
	"github.com/rs/zerolog/log"
)

const maxUploadSize = 32 << 20 // 32 MiB

// UpdatesHandler handles monthly regulatory update endpoints
type UpdatesHandler struct {
	updatesService *service.UpdatesService
	runner         *importer.Runner
	inboxFolder    string
}

// NewUpdatesHandler creates a new updates handler
func NewUpdatesHandler(updatesService *service.UpdatesService, runner *importer.Runner, inboxFolder string) *UpdatesHandler {
	return &UpdatesHandler{updatesService: updatesService, runner: runner, inboxFolder: inboxFolder}
}

// List returns monthly updates matching the query filters
func (h *UpdatesHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.MonthlyUpdateFilter{
		Category: q.Get("category"),
		State:    q.Get("state"),
		Skip:     queryInt(q.Get("skip"), 0),
		Limit:    queryInt(q.Get("limit"), 50),
	}

	updates, total, err := h.updatesService.List(r.Context(), filter)
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}
	response.Paginated(w, updates, total, filter.Skip, filter.Limit)
}

// Recent returns the newest monthly updates
func (h *UpdatesHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r.URL.Query().Get("limit"), 5)

	updates, err := h.updatesService.Recent(r.Context(), limit)
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}
	response.OK(w, map[string]any{"updates": updates})
}

// Import accepts a spreadsheet upload, drops it into the inbox folder and
// runs one import job synchronously, returning the final job status.
func (h *UpdatesHandler) Import(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		response.BadRequest(w, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "file is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".xlsx" && ext != ".xls" {
		response.BadRequest(w, fmt.Sprintf("unsupported file type %s", ext))
		return
	}

	if err := h.saveUpload(file, filepath.Base(header.Filename)); err != nil {
		log.Error().Err(err).Str("file", header.Filename).Msg("failed to store uploaded file")
		response.InternalError(w, "failed to store uploaded file")
		return
	}

	status := h.runner.Run(r.Context())
	response.OK(w, status)
}

// ImportStatus returns the latest monthly updates import job status
func (h *UpdatesHandler) ImportStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.runner.Status(r.Context())
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}
	response.OK(w, status)
}

func (h *UpdatesHandler) saveUpload(src io.Reader, name string) error {
	if err := os.MkdirAll(h.inboxFolder, 0o755); err != nil {
		return fmt.Errorf("failed to create inbox folder: %w", err)
	}

	dst, err := os.Create(filepath.Join(h.inboxFolder, name))
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
