package task

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// DBTX is the interface for database operations.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Datastore handles persistence operations for tasks.
// It returns raw errors; translation happens in the Manager.
type Datastore struct {
	db DBTX
}

// NewDatastore creates a new task datastore.
func NewDatastore(db DBTX) *Datastore {
	return &Datastore{db: db}
}

const taskColumns = `id, title, description, priority, status, due_date, assignee_id, project_id, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*Task, error) {
	t := &Task{}
	var (
		description sql.NullString
		dueDate     sql.NullTime
		assigneeID  sql.NullString
		priority    string
		status      string
	)
	if err := row.Scan(
		&t.ID, &t.Title, &description, &priority, &status, &dueDate, &assigneeID,
		&t.ProjectID, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.Priority = Priority(priority)
	t.Status = Status(status)
	if description.Valid {
		t.Description = &description.String
	}
	if dueDate.Valid {
		t.DueDate = &dueDate.Time
	}
	if assigneeID.Valid {
		t.AssigneeID = &assigneeID.String
	}
	return t, nil
}

func (ds *Datastore) Create(ctx context.Context, t *Task) error {
	query := `
		INSERT INTO tasks (id, title, description, priority, status, due_date, assignee_id, project_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING created_at, updated_at`

	return ds.db.QueryRowContext(ctx, query,
		t.ID, t.Title, t.Description, string(t.Priority), string(t.Status), t.DueDate, t.AssigneeID, t.ProjectID,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
}

// Update overwrites the mutable fields of a task in one statement and
// returns the assignee the task had before. Returns sql.ErrNoRows if the
// task does not exist.
func (ds *Datastore) Update(ctx context.Context, t *Task) (sql.NullString, error) {
	query := `
		UPDATE tasks AS t
		SET title = $2, description = $3, priority = $4, status = $5,
		    due_date = $6, assignee_id = $7, updated_at = NOW()
		FROM (SELECT id, assignee_id FROM tasks WHERE id = $1 FOR UPDATE) AS prev
		WHERE t.id = prev.id
		RETURNING prev.assignee_id, t.project_id, t.created_at, t.updated_at`

	var previous sql.NullString
	err := ds.db.QueryRowContext(ctx, query,
		t.ID, t.Title, t.Description, string(t.Priority), string(t.Status), t.DueDate, t.AssigneeID,
	).Scan(&previous, &t.ProjectID, &t.CreatedAt, &t.UpdatedAt)

	return previous, err
}

func (ds *Datastore) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := ds.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// GetByID returns sql.ErrNoRows if the task does not exist.
func (ds *Datastore) GetByID(ctx context.Context, id uuid.UUID) (*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return scanTask(ds.db.QueryRowContext(ctx, query, id))
}

func (ds *Datastore) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*Task, error) {
	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE project_id = $1
		ORDER BY created_at ASC`

	rows, err := ds.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	return tasks, rows.Err()
}

// GetAssignment reads a task with its assignee, project and workspace.
// Returns sql.ErrNoRows if the task does not exist.
func (ds *Datastore) GetAssignment(ctx context.Context, taskID uuid.UUID) (*Assignment, error) {
	query := `
		SELECT t.id, t.title, COALESCE(t.description, ''), t.priority, t.due_date,
		       p.id, p.name, w.id, w.name,
		       u.id, u.email, u.name
		FROM tasks t
		INNER JOIN projects p ON p.id = t.project_id
		INNER JOIN workspaces w ON w.id = p.workspace_id
		LEFT JOIN users u ON u.id = t.assignee_id
		WHERE t.id = $1`

	a := &Assignment{}
	var (
		priority      string
		dueDate       sql.NullTime
		assigneeID    sql.NullString
		assigneeEmail sql.NullString
		assigneeName  sql.NullString
	)
	err := ds.db.QueryRowContext(ctx, query, taskID).Scan(
		&a.TaskID, &a.Title, &a.Description, &priority, &dueDate,
		&a.ProjectID, &a.ProjectName, &a.WorkspaceID, &a.WorkspaceName,
		&assigneeID, &assigneeEmail, &assigneeName,
	)
	if err != nil {
		return nil, err
	}

	a.Priority = Priority(priority)
	if dueDate.Valid {
		a.DueDate = &dueDate.Time
	}
	if assigneeID.Valid {
		a.Assignee = &Assignee{
			ID:    assigneeID.String,
			Email: assigneeEmail.String,
			Name:  assigneeName.String,
		}
	}

	return a, nil
}
