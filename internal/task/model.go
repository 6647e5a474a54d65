package task

import (
	"time"

	"github.com/google/uuid"
)

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

func (s Status) Valid() bool {
	return s == StatusTodo || s == StatusInProgress || s == StatusDone
}

// Task is a unit of work in a project. Description, DueDate and
// AssigneeID are optional.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Priority    Priority   `json:"priority"`
	Status      Status     `json:"status"`
	DueDate     *time.Time `json:"due_date"`
	AssigneeID  *string    `json:"assignee_id"`
	ProjectID   uuid.UUID  `json:"project_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Assignee is the user a task is assigned to.
type Assignee struct {
	ID    string
	Email string
	Name  string
}

// Assignment is a task joined with everything the assignment mail needs.
// Assignee is nil when the task has no assignee.
type Assignment struct {
	TaskID        uuid.UUID
	Title         string
	Description   string
	Priority      Priority
	DueDate       *time.Time
	ProjectID     uuid.UUID
	ProjectName   string
	WorkspaceID   string
	WorkspaceName string
	Assignee      *Assignee
}
