package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"devtrack/internal/database"
)

var (
	ErrNotFound         = errors.New("project not found")
	ErrInvalidName      = errors.New("project name is required")
	ErrWorkspaceMissing = errors.New("workspace does not exist")
)

// Manager handles business logic for projects.
type Manager struct {
	ds *Datastore
}

// NewManager creates a new project manager.
func NewManager(ds *Datastore) *Manager {
	return &Manager{ds: ds}
}

// Create assigns a new id and inserts the project.
func (m *Manager) Create(ctx context.Context, p *Project) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return ErrInvalidName
	}
	p.ID = uuid.New()

	if err := m.ds.Create(ctx, p); err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrWorkspaceMissing
		}
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func (m *Manager) Update(ctx context.Context, p *Project) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return ErrInvalidName
	}

	rowsAffected, err := m.ds.Update(ctx, p)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a project together with its tasks and their comments.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	rowsAffected, err := m.ds.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Manager) GetByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	p, err := m.ds.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

func (m *Manager) ListByWorkspace(ctx context.Context, workspaceID string) ([]*Project, error) {
	projects, err := m.ds.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}
