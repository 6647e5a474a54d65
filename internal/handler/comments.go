package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"devtrack/internal/auth"
	"devtrack/internal/comment"
)

// CommentsHandler serves task discussion.
type CommentsHandler struct {
	manager *comment.Manager
	access  *access
	logger  *slog.Logger
}

type commentRequest struct {
	TaskID  string `json:"task_id"`
	Content string `json:"content"`
}

// List handles GET /api/comments?task_id=
func (h *CommentsHandler) List(w http.ResponseWriter, r *http.Request) {
	taskID, ok := parseUUID(w, r.URL.Query().Get("task_id"), "task")
	if !ok {
		return
	}
	if _, ok := h.access.task(w, r, taskID); !ok {
		return
	}

	comments, err := h.manager.ListByTask(r.Context(), taskID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list comments", "task_id", taskID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list comments")
		return
	}
	if comments == nil {
		comments = []*comment.WithAuthor{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"comments": comments,
		"count":    len(comments),
	})
}

// Create handles POST /api/comments
func (h *CommentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	taskID, ok := parseUUID(w, req.TaskID, "task")
	if !ok {
		return
	}
	if _, ok := h.access.task(w, r, taskID); !ok {
		return
	}
	userID, _ := callerID(w, r)

	c := &comment.Comment{TaskID: taskID, UserID: userID, Content: req.Content}
	if err := h.manager.Create(r.Context(), c); err != nil {
		switch {
		case errors.Is(err, comment.ErrEmptyContent):
			writeError(w, http.StatusBadRequest, "content is required")
		case errors.Is(err, comment.ErrMissingRelation):
			writeError(w, http.StatusNotFound, "task not found")
		default:
			h.logger.ErrorContext(r.Context(), "failed to create comment", "task_id", taskID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create comment")
		}
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

// Delete handles DELETE /api/comments/{id}. Only the author may delete.
func (h *CommentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r.PathValue("id"), "comment")
	if !ok {
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	if err := h.manager.Delete(r.Context(), id, userID); err != nil {
		switch {
		case errors.Is(err, comment.ErrNotFound):
			writeError(w, http.StatusNotFound, "comment not found")
		case errors.Is(err, comment.ErrNotAuthor):
			auth.WriteForbidden(w)
		default:
			h.logger.ErrorContext(r.Context(), "failed to delete comment", "comment_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to delete comment")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
