package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"devtrack/internal/database"
	"devtrack/internal/event"
)

var (
	ErrNotFound        = errors.New("task not found")
	ErrInvalidTitle    = errors.New("task title is required")
	ErrInvalidPriority = errors.New("invalid task priority")
	ErrInvalidStatus   = errors.New("invalid task status")
	ErrMissingRelation = errors.New("project or assignee does not exist")
)

// Publisher emits application events onto the bus.
type Publisher interface {
	Publish(ctx context.Context, e event.Event) error
}

// Manager handles business logic for tasks. Creating a task with an
// assignee, or changing a task's assignee, publishes a TaskAssigned event.
type Manager struct {
	ds        *Datastore
	publisher Publisher
	logger    *slog.Logger
}

// NewManager creates a new task manager.
func NewManager(ds *Datastore, publisher Publisher, logger *slog.Logger) *Manager {
	return &Manager{ds: ds, publisher: publisher, logger: logger}
}

// Create assigns a new id, fills defaults and inserts the task. origin is
// the browser origin of the request, carried into the assignment mail link.
func (m *Manager) Create(ctx context.Context, t *Task, origin string) error {
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if err := validate(t); err != nil {
		return err
	}
	t.ID = uuid.New()

	if err := m.ds.Create(ctx, t); err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrMissingRelation
		}
		return fmt.Errorf("failed to create task: %w", err)
	}

	if t.AssigneeID != nil {
		m.notifyAssigned(ctx, t.ID, origin)
	}
	return nil
}

// Update overwrites the task's mutable fields. A changed assignee
// publishes a TaskAssigned event.
func (m *Manager) Update(ctx context.Context, t *Task, origin string) error {
	if err := validate(t); err != nil {
		return err
	}

	previous, err := m.ds.Update(ctx, t)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrNotFound
		case database.IsForeignKeyViolation(err):
			return ErrMissingRelation
		}
		return fmt.Errorf("failed to update task: %w", err)
	}

	if t.AssigneeID != nil && (!previous.Valid || previous.String != *t.AssigneeID) {
		m.notifyAssigned(ctx, t.ID, origin)
	}
	return nil
}

func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	rowsAffected, err := m.ds.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Manager) GetByID(ctx context.Context, id uuid.UUID) (*Task, error) {
	t, err := m.ds.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

func (m *Manager) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*Task, error) {
	tasks, err := m.ds.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// GetAssignment reads everything the assignment mail needs. Ids that
// are not valid UUIDs cannot exist and report ErrNotFound.
func (m *Manager) GetAssignment(ctx context.Context, taskID string) (*Assignment, error) {
	id, err := uuid.Parse(taskID)
	if err != nil {
		return nil, ErrNotFound
	}

	a, err := m.ds.GetAssignment(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task assignment: %w", err)
	}
	return a, nil
}

// notifyAssigned publishes the assignment event. The task is already
// stored, so a publish failure is logged rather than returned.
func (m *Manager) notifyAssigned(ctx context.Context, id uuid.UUID, origin string) {
	ev := event.TaskAssigned{TaskID: id.String(), Origin: origin}
	if err := m.publisher.Publish(ctx, ev); err != nil {
		m.logger.ErrorContext(ctx, "failed to publish task assignment",
			"task_id", id, "error", err)
	}
}

func validate(t *Task) error {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return ErrInvalidTitle
	}
	if !t.Priority.Valid() {
		return ErrInvalidPriority
	}
	if !t.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}
