package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/palettekit/palette-api/internal/api/middleware"
	"github.com/palettekit/palette-api/internal/api/shared"
	"github.com/palettekit/palette-api/internal/service"
)

// TaskHandler handles task-related HTTP requests.
type TaskHandler struct {
	taskService *service.TaskService
	validator   *validator.Validate
	logger      *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *service.TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		validator:   validator.New(),
		logger:      logger.With("component", "task_handler"),
	}
}

// CreateTask handles POST /api/tasks requests. Processing is asynchronous, so
// a successful submission returns 202 Accepted with the pending task.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetOwnerID(r)
	if !ok || owner == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Owner ID not found or invalid")
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	created, err := h.taskService.CreateGenerationTask(r.Context(), owner, req.Metadata())
	if err != nil {
		status := statusForError(err)
		if status >= 500 {
			h.logger.Error("failed to create task", "error", err, "owner", owner)
		}
		shared.RespondWithError(w, r, status, messageForStatus(status, err))
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, taskToResponse(created))
}

// GetTask handles GET /api/tasks/{id} requests.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetOwnerID(r)
	if !ok || owner == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Owner ID not found or invalid")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	t, err := h.taskService.GetTask(r.Context(), owner, id)
	if err != nil {
		status := statusForError(err)
		if status >= 500 {
			h.logger.Error("failed to get task", "error", err, "task_id", id)
		}
		shared.RespondWithError(w, r, status, messageForStatus(status, err))
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(t))
}

// ListVariations handles GET /api/tasks/{id}/variations requests. Variations
// appear as they complete, so a processing task may return a partial list.
func (h *TaskHandler) ListVariations(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetOwnerID(r)
	if !ok || owner == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Owner ID not found or invalid")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	variations, err := h.taskService.ListVariations(r.Context(), owner, id)
	if err != nil {
		status := statusForError(err)
		if status >= 500 {
			h.logger.Error("failed to list variations", "error", err, "task_id", id)
		}
		shared.RespondWithError(w, r, status, messageForStatus(status, err))
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, variationsToResponse(variations))
}

// GetVariationImage handles GET /api/variations/{id} requests, serving the
// stored image bytes.
func (h *TaskHandler) GetVariationImage(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetOwnerID(r)
	if !ok || owner == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Owner ID not found or invalid")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid variation ID")
		return
	}

	v, err := h.taskService.GetVariation(r.Context(), owner, id)
	if err != nil {
		status := statusForError(err)
		if status >= 500 {
			h.logger.Error("failed to get variation", "error", err, "variation_id", id)
		}
		shared.RespondWithError(w, r, status, messageForStatus(status, err))
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(v.Image))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(v.Image); err != nil {
		h.logger.Error("failed to write variation image", "error", err, "variation_id", id)
	}
}
