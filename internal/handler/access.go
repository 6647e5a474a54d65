package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"devtrack/internal/auth"
	"devtrack/internal/project"
	"devtrack/internal/task"
	"devtrack/internal/workspace"
)

// access resolves which workspace a resource lives in and checks the
// caller's membership in it.
type access struct {
	workspaces *workspace.Manager
	projects   *project.Manager
	tasks      *task.Manager
	logger     *slog.Logger
}

type accessLevel int

const (
	levelMember accessLevel = iota
	levelAdmin
)

// workspace writes the error response and returns false when the caller
// lacks the requested level in workspaceID.
func (a *access) workspace(w http.ResponseWriter, r *http.Request, workspaceID string, level accessLevel) bool {
	userID, ok := callerID(w, r)
	if !ok {
		return false
	}

	var err error
	if level == levelAdmin {
		_, err = a.workspaces.RequireAdmin(r.Context(), workspaceID, userID)
	} else {
		_, err = a.workspaces.RequireMember(r.Context(), workspaceID, userID)
	}

	switch {
	case err == nil:
		return true
	case errors.Is(err, workspace.ErrNotMember), errors.Is(err, workspace.ErrForbidden):
		auth.WriteForbidden(w)
	default:
		a.logger.ErrorContext(r.Context(), "failed to check workspace membership",
			"workspace_id", workspaceID, "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check workspace access")
	}
	return false
}

// project loads a project and checks access to its workspace.
func (a *access) project(w http.ResponseWriter, r *http.Request, id uuid.UUID, level accessLevel) (*project.Project, bool) {
	p, err := a.projects.GetByID(r.Context(), id)
	if err != nil {
		a.writeLookupError(r.Context(), w, err, project.ErrNotFound, "project")
		return nil, false
	}
	if !a.workspace(w, r, p.WorkspaceID, level) {
		return nil, false
	}
	return p, true
}

// task loads a task and checks membership in the workspace that owns its project.
func (a *access) task(w http.ResponseWriter, r *http.Request, id uuid.UUID) (*task.Task, bool) {
	t, err := a.tasks.GetByID(r.Context(), id)
	if err != nil {
		a.writeLookupError(r.Context(), w, err, task.ErrNotFound, "task")
		return nil, false
	}
	if _, ok := a.project(w, r, t.ProjectID, levelMember); !ok {
		return nil, false
	}
	return t, true
}

func (a *access) writeLookupError(ctx context.Context, w http.ResponseWriter, err, notFound error, kind string) {
	if errors.Is(err, notFound) {
		writeError(w, http.StatusNotFound, kind+" not found")
		return
	}
	a.logger.ErrorContext(ctx, "failed to load "+kind, "error", err)
	writeError(w, http.StatusInternalServerError, "failed to get "+kind)
}

func parseUUID(w http.ResponseWriter, raw, kind string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+kind+" ID")
		return uuid.Nil, false
	}
	return id, true
}
