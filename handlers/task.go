package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"docConverter/converter"
	"docConverter/dto"
	"docConverter/middleware"
	"docConverter/models"
	"docConverter/store"
	"docConverter/validation"
)

const multipartMemoryLimit = 32 << 20

// TaskService is the slice of the service layer the HTTP handlers need.
type TaskService interface {
	Submit(ctx context.Context, mode models.ConversionMode, filename string, file io.Reader) (models.Task, error)
	Status(ctx context.Context, taskID string) (dto.StatusResponse, error)
	Download(ctx context.Context, taskID string) (path, filename string, err error)
	Content(ctx context.Context, taskID string) (dto.ContentResponse, error)
	DownloadBatch(ctx context.Context, taskIDs []string) (name string, data []byte, err error)
}

type TaskHandler struct {
	service TaskService
	logger  *zap.Logger
}

func NewTaskHandler(service TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		service: service,
		logger:  logger,
	}
}

// Routes mounts the conversion API onto a chi router.
func (h *TaskHandler) Routes(r chi.Router) {
	r.Post("/convert", h.Convert)
	r.Get("/status/{taskID}", h.Status)
	r.Get("/download/{taskID}", h.Download)
	r.Post("/download/batch", h.BatchDownload)
	r.Get("/content/{taskID}", h.Content)
}

func (h *TaskHandler) Convert(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		h.handleError(w, "Failed to parse form", err, traceID, http.StatusBadRequest)
		return
	}

	mode := models.ConversionMode(r.FormValue("mode"))
	if mode == "" {
		h.handleError(w, "Conversion mode is required", nil, traceID, http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.handleError(w, "Failed to get file", err, traceID, http.StatusBadRequest)
		return
	}
	defer file.Close()

	task, err := h.service.Submit(r.Context(), mode, header.Filename, file)
	if err != nil {
		h.handleError(w, err.Error(), err, traceID, errStatus(err))
		return
	}

	h.logger.Info("File accepted for conversion",
		zap.String("trace_id", traceID),
		zap.String("task_id", task.ID),
		zap.String("mode", string(mode)),
		zap.String("filename", header.Filename),
	)

	h.respondJSON(w, http.StatusCreated, dto.ConvertResponse{
		TaskID:  task.ID,
		Mode:    string(task.Mode),
		Status:  string(task.Status),
		Message: "conversion started",
	})
}

func (h *TaskHandler) Status(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	taskID := chi.URLParam(r, "taskID")
	if taskID == "" {
		h.handleError(w, "Task ID is required", nil, traceID, http.StatusBadRequest)
		return
	}

	resp, err := h.service.Status(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			h.handleError(w, "Task not found", err, traceID, http.StatusNotFound)
			return
		}
		h.handleError(w, "Failed to get task status", err, traceID, http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *TaskHandler) Download(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	taskID := chi.URLParam(r, "taskID")
	if taskID == "" {
		h.handleError(w, "Task ID is required", nil, traceID, http.StatusBadRequest)
		return
	}

	path, filename, err := h.service.Download(r.Context(), taskID)
	if err != nil {
		h.handleError(w, err.Error(), err, traceID, errStatus(err))
		return
	}

	w.Header().Set("Content-Type", contentTypeFor(filepath.Ext(path)))
	w.Header().Set("Content-Disposition", contentDisposition(filename))
	http.ServeFile(w, r, path)
}

func (h *TaskHandler) Content(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	taskID := chi.URLParam(r, "taskID")
	if taskID == "" {
		h.handleError(w, "Task ID is required", nil, traceID, http.StatusBadRequest)
		return
	}

	resp, err := h.service.Content(r.Context(), taskID)
	if err != nil {
		h.handleError(w, err.Error(), err, traceID, errStatus(err))
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *TaskHandler) BatchDownload(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	var req dto.BatchDownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleError(w, "Invalid request body", err, traceID, http.StatusBadRequest)
		return
	}

	name, data, err := h.service.DownloadBatch(r.Context(), req.TaskIDs)
	if err != nil {
		h.handleError(w, err.Error(), err, traceID, errStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", contentDisposition(name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// errCode maps the error taxonomy onto the stable category reported in
// error bodies.
func errCode(err error) string {
	switch {
	case err == nil:
		return "bad_request"
	case errors.Is(err, store.ErrTaskNotFound):
		return "task_not_found"
	case errors.Is(err, validation.ErrFileTooLarge):
		return "file_too_large"
	case errors.Is(err, validation.ErrTooManyFiles):
		return "too_many_files"
	case errors.Is(err, validation.ErrInvalidFileType):
		return "invalid_file_type"
	case errors.Is(err, validation.ErrPathEscape):
		return "path_escape"
	case errors.Is(err, converter.ErrUnsupportedMode):
		return "unsupported_mode"
	case errors.Is(err, converter.ErrBackendUnavailable):
		return "backend_unavailable"
	}

	var convErr *converter.Error
	if errors.As(err, &convErr) {
		return "conversion_failed"
	}
	return "internal_error"
}

// errStatus maps the error taxonomy onto HTTP status codes.
func errStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, validation.ErrFileTooLarge), errors.Is(err, validation.ErrTooManyFiles):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, validation.ErrInvalidFileType), errors.Is(err, converter.ErrUnsupportedMode):
		return http.StatusBadRequest
	}

	var convErr *converter.Error
	if errors.As(err, &convErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func contentTypeFor(ext string) string {
	switch strings.ToLower(ext) {
	case ".md":
		return "text/markdown; charset=utf-8"
	case ".html":
		return "text/html; charset=utf-8"
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

// contentDisposition builds an RFC 5987 attachment header that survives
// non-ASCII filenames.
func contentDisposition(filename string) string {
	return fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(filename))
}

func (h *TaskHandler) handleError(w http.ResponseWriter, message string, err error, traceID string, status int) {
	h.logger.Error(message,
		zap.String("trace_id", traceID),
		zap.Error(err),
	)

	code := errCode(err)
	if code == "internal_error" && status < http.StatusInternalServerError {
		// Malformed input rejected before the service saw it.
		code = "bad_request"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Code:    code,
		TraceID: traceID,
	})
}

func (h *TaskHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
