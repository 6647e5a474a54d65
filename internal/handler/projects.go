package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"devtrack/internal/project"
)

// ProjectsHandler serves project CRUD. Reads need membership in the
// project's workspace; writes need the ADMIN role.
type ProjectsHandler struct {
	manager *project.Manager
	access  *access
	logger  *slog.Logger
}

type projectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	WorkspaceID string `json:"workspace_id"`
}

// List handles GET /api/projects?workspace_id=
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	workspaceID := r.URL.Query().Get("workspace_id")
	if workspaceID == "" {
		writeError(w, http.StatusBadRequest, "workspace_id is required")
		return
	}
	if !h.access.workspace(w, r, workspaceID, levelMember) {
		return
	}

	projects, err := h.manager.ListByWorkspace(r.Context(), workspaceID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list projects", "workspace_id", workspaceID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list projects")
		return
	}
	if projects == nil {
		projects = []*project.Project{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"projects": projects,
		"count":    len(projects),
	})
}

// Get handles GET /api/projects/{id}
func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r.PathValue("id"), "project")
	if !ok {
		return
	}
	p, ok := h.access.project(w, r, id, levelMember)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Create handles POST /api/projects
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.WorkspaceID == "" {
		writeError(w, http.StatusBadRequest, "workspace_id is required")
		return
	}
	if !h.access.workspace(w, r, req.WorkspaceID, levelAdmin) {
		return
	}

	p := &project.Project{Name: req.Name, Description: req.Description, WorkspaceID: req.WorkspaceID}
	if err := h.manager.Create(r.Context(), p); err != nil {
		switch {
		case errors.Is(err, project.ErrInvalidName):
			writeError(w, http.StatusBadRequest, "name is required")
		case errors.Is(err, project.ErrWorkspaceMissing):
			writeError(w, http.StatusNotFound, "workspace not found")
		default:
			h.logger.ErrorContext(r.Context(), "failed to create project", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create project")
		}
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

// Update handles PUT /api/projects/{id}
func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r.PathValue("id"), "project")
	if !ok {
		return
	}

	var req projectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, ok := h.access.project(w, r, id, levelAdmin)
	if !ok {
		return
	}
	p.Name = req.Name
	p.Description = req.Description

	if err := h.manager.Update(r.Context(), p); err != nil {
		switch {
		case errors.Is(err, project.ErrInvalidName):
			writeError(w, http.StatusBadRequest, "name is required")
		case errors.Is(err, project.ErrNotFound):
			writeError(w, http.StatusNotFound, "project not found")
		default:
			h.logger.ErrorContext(r.Context(), "failed to update project", "project_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to update project")
		}
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// Delete handles DELETE /api/projects/{id}
func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r.PathValue("id"), "project")
	if !ok {
		return
	}
	if _, ok := h.access.project(w, r, id, levelAdmin); !ok {
		return
	}

	if err := h.manager.Delete(r.Context(), id); err != nil {
		if errors.Is(err, project.ErrNotFound) {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to delete project", "project_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete project")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
