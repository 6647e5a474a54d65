package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"devtrack/internal/task"
)

// TasksHandler serves task CRUD to members of the owning workspace.
type TasksHandler struct {
	manager *task.Manager
	access  *access
	logger  *slog.Logger
}

// taskRequest carries the writable task fields. On update, absent fields
// keep their stored value and an empty assignee_id unassigns the task.
type taskRequest struct {
	ProjectID   string         `json:"project_id"`
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	Priority    *task.Priority `json:"priority"`
	Status      *task.Status   `json:"status"`
	DueDate     *time.Time     `json:"due_date"`
	AssigneeID  *string        `json:"assignee_id"`
}

func (req taskRequest) apply(t *task.Task) {
	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Description != nil {
		t.Description = emptyToNil(*req.Description)
	}
	if req.Priority != nil {
		t.Priority = *req.Priority
	}
	if req.Status != nil {
		t.Status = *req.Status
	}
	if req.DueDate != nil {
		t.DueDate = req.DueDate
	}
	if req.AssigneeID != nil {
		t.AssigneeID = emptyToNil(*req.AssigneeID)
	}
}

func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// List handles GET /api/tasks?project_id=
func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseUUID(w, r.URL.Query().Get("project_id"), "project")
	if !ok {
		return
	}
	if _, ok := h.access.project(w, r, projectID, levelMember); !ok {
		return
	}

	tasks, err := h.manager.ListByProject(r.Context(), projectID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list tasks", "project_id", projectID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []*task.Task{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tasks": tasks,
		"count": len(tasks),
	})
}

// Get handles GET /api/tasks/{id}
func (h *TasksHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r.PathValue("id"), "task")
	if !ok {
		return
	}
	t, ok := h.access.task(w, r, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Create handles POST /api/tasks. The request Origin becomes the base
// of the link in the assignment mail.
func (h *TasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	projectID, ok := parseUUID(w, req.ProjectID, "project")
	if !ok {
		return
	}
	if _, ok := h.access.project(w, r, projectID, levelMember); !ok {
		return
	}

	t := &task.Task{ProjectID: projectID}
	req.apply(t)

	if err := h.manager.Create(r.Context(), t, r.Header.Get("Origin")); err != nil {
		h.writeTaskError(w, r, err, "create")
		return
	}

	writeJSON(w, http.StatusCreated, t)
}

// Update handles PUT /api/tasks/{id}
func (h *TasksHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r.PathValue("id"), "task")
	if !ok {
		return
	}

	var req taskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, ok := h.access.task(w, r, id)
	if !ok {
		return
	}
	req.apply(t)

	if err := h.manager.Update(r.Context(), t, r.Header.Get("Origin")); err != nil {
		h.writeTaskError(w, r, err, "update")
		return
	}

	writeJSON(w, http.StatusOK, t)
}

// Delete handles DELETE /api/tasks/{id}
func (h *TasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r.PathValue("id"), "task")
	if !ok {
		return
	}
	if _, ok := h.access.task(w, r, id); !ok {
		return
	}

	if err := h.manager.Delete(r.Context(), id); err != nil {
		h.writeTaskError(w, r, err, "delete")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TasksHandler) writeTaskError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, task.ErrInvalidTitle):
		writeError(w, http.StatusBadRequest, "title is required")
	case errors.Is(err, task.ErrInvalidPriority):
		writeError(w, http.StatusBadRequest, "priority must be LOW, MEDIUM or HIGH")
	case errors.Is(err, task.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "status must be TODO, IN_PROGRESS or DONE")
	case errors.Is(err, task.ErrMissingRelation):
		writeError(w, http.StatusBadRequest, "project or assignee does not exist")
	case errors.Is(err, task.ErrNotFound):
		writeError(w, http.StatusNotFound, "task not found")
	default:
		h.logger.ErrorContext(r.Context(), "failed to "+op+" task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to "+op+" task")
	}
}

