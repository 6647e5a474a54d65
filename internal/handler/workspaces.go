package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"devtrack/internal/workspace"
)

// WorkspacesHandler serves the caller's workspaces and membership management.
type WorkspacesHandler struct {
	manager *workspace.Manager
	access  *access
	logger  *slog.Logger
}

type workspaceDetail struct {
	*workspace.Workspace
	Members []*workspace.MemberProfile `json:"members"`
}

// List handles GET /api/workspaces
func (h *WorkspacesHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	workspaces, err := h.manager.ListForUser(r.Context(), userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list workspaces", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list workspaces")
		return
	}
	if workspaces == nil {
		workspaces = []*workspace.Workspace{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"workspaces": workspaces,
		"count":      len(workspaces),
	})
}

// Get handles GET /api/workspaces/{id}
func (h *WorkspacesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.access.workspace(w, r, id, levelMember) {
		return
	}

	ws, err := h.manager.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, workspace.ErrNotFound) {
			writeError(w, http.StatusNotFound, "workspace not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to get workspace", "workspace_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get workspace")
		return
	}

	members, err := h.manager.ListMembers(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list members", "workspace_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	if members == nil {
		members = []*workspace.MemberProfile{}
	}

	writeJSON(w, http.StatusOK, workspaceDetail{Workspace: ws, Members: members})
}

type addMemberRequest struct {
	Email string         `json:"email"`
	Role  workspace.Role `json:"role"`
}

// AddMember handles POST /api/workspaces/{id}/members
func (h *WorkspacesHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req addMemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !h.access.workspace(w, r, id, levelAdmin) {
		return
	}

	member, err := h.manager.AddMemberByEmail(r.Context(), id, req.Email, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, workspace.ErrInvalidRole):
			writeError(w, http.StatusBadRequest, "role must be ADMIN or MEMBER")
		case errors.Is(err, workspace.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "no user with that email")
		case errors.Is(err, workspace.ErrNotFound):
			writeError(w, http.StatusNotFound, "workspace not found")
		case errors.Is(err, workspace.ErrAlreadyExists):
			writeError(w, http.StatusConflict, "user is already a member")
		default:
			h.logger.ErrorContext(r.Context(), "failed to add member", "workspace_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to add member")
		}
		return
	}

	writeJSON(w, http.StatusCreated, member)
}
