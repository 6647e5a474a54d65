package project

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

// Datastore handles persistence operations for projects.
// It returns raw errors; translation happens in the Manager.
type Datastore struct {
	db DBTX
}

// NewDatastore creates a new project datastore.
func NewDatastore(db DBTX) *Datastore {
	return &Datastore{db: db}
}

const projectColumns = `id, name, description, workspace_id, created_at, updated_at`

func (ds *Datastore) Create(ctx context.Context, p *Project) error {
	query := `
		INSERT INTO projects (id, name, description, workspace_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING created_at, updated_at`

	return ds.db.QueryRowContext(ctx, query,
		p.ID, p.Name, p.Description, p.WorkspaceID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (ds *Datastore) Update(ctx context.Context, p *Project) (int64, error) {
	query := `
		UPDATE projects
		SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1`

	result, err := ds.db.ExecContext(ctx, query, p.ID, p.Name, p.Description)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (ds *Datastore) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := ds.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// GetByID returns sql.ErrNoRows if the project does not exist.
func (ds *Datastore) GetByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`

	p := &Project{}
	err := ds.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.WorkspaceID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return p, nil
}

func (ds *Datastore) ListByWorkspace(ctx context.Context, workspaceID string) ([]*Project, error) {
	query := `SELECT ` + projectColumns + `
		FROM projects
		WHERE workspace_id = $1
		ORDER BY created_at ASC`

	rows, err := ds.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var projects []*Project
	for rows.Next() {
		p := &Project{}
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.WorkspaceID, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}

	return projects, rows.Err()
}
