package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/BerylCAtieno/agreement-analyzer/internal/models"
	"github.com/BerylCAtieno/agreement-analyzer/internal/services"
	"github.com/BerylCAtieno/agreement-analyzer/internal/utils"
	"github.com/gorilla/mux"
)

const (
	DefaultMaxFileSize = 5 << 20 // 5MB

	// room for the text, state and email fields next to the file part
	formOverhead = 1 << 20
)

type DocumentHandler struct {
	service     services.DocumentService
	maxFileSize int64
	logger      *utils.Logger
}

func NewDocumentHandler(service services.DocumentService, maxFileSize int64, logger *utils.Logger) *DocumentHandler {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &DocumentHandler{
		service:     service,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// AnalyzeDocument accepts a multipart or urlencoded form with either a
// `file` part or a `text` field, plus optional `state` and `email`.
func (h *DocumentHandler) AnalyzeDocument(w http.ResponseWriter, r *http.Request) {
	limit := h.maxFileSize + formOverhead
	tooLarge := utils.NewBadRequestError(fmt.Sprintf("File size exceeds %s limit", humanSize(h.maxFileSize)))

	// Check Content-Length header first to reject oversized requests early
	if r.ContentLength > limit {
		h.respondError(w, tooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr), strings.Contains(err.Error(), "request body too large"):
			h.respondError(w, tooLarge)
			return
		case errors.Is(err, http.ErrNotMultipart):
			if err := r.ParseForm(); err != nil {
				h.respondError(w, utils.NewBadRequestError("Invalid form data"))
				return
			}
		default:
			h.respondError(w, utils.NewBadRequestError("Invalid form data"))
			return
		}
	}

	req := &models.AnalyzeRequest{
		Text:         r.FormValue("text"),
		Jurisdiction: r.FormValue("state"),
		Owner:        r.FormValue("email"),
	}

	// Pasted text wins; the file part is then ignored.
	if req.Text == "" {
		if err := h.readUpload(r, req, tooLarge); err != nil {
			h.respondError(w, err)
			return
		}
	}

	resp, err := h.service.AnalyzeDocument(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *DocumentHandler) readUpload(r *http.Request, req *models.AnalyzeRequest, tooLarge error) error {
	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return utils.NewBadRequestError("No file or text provided")
	case err != nil:
		return utils.NewBadRequestError("Invalid file upload")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		return utils.NewInternalError("Failed to read file")
	}
	if int64(len(data)) > h.maxFileSize {
		return tooLarge
	}
	if len(data) == 0 {
		return utils.NewBadRequestError("Uploaded file is empty")
	}

	req.File = data
	req.Filename = header.Filename
	req.ContentType = header.Header.Get("Content-Type")

	h.logger.Info("File upload attempt",
		"filename", header.Filename,
		"reported_content_type", req.ContentType,
		"size", len(data))
	return nil
}

func (h *DocumentHandler) History(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["email"]
	if email == "" {
		h.respondError(w, utils.NewBadRequestError("Email is required"))
		return
	}

	entries, err := h.service.History(r.Context(), email)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, entries)
}

func (h *DocumentHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.Analysis(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, entry)
}

func (h *DocumentHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Health(r.Context()); err != nil {
		h.logger.Warn("Health check failed", "error", err)
		h.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func humanSize(n int64) string {
	if n >= 1<<20 && n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	if n >= 1<<10 && n%(1<<10) == 0 {
		return fmt.Sprintf("%dKB", n>>10)
	}
	return fmt.Sprintf("%d bytes", n)
}

func (h *DocumentHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", "error", err)
	}
}

func (h *DocumentHandler) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"
	message := "Internal server error"

	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		status = appErr.StatusCode
		code = appErr.Code
		message = appErr.Message
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request error", "status", status, "code", code, "error", err)
	} else {
		h.logger.Warn("Request error", "status", status, "code", code, "error", message)
	}

	h.respondJSON(w, status, map[string]string{"error": message, "code": code})
}
