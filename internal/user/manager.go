package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"devtrack/internal/database"
)

// Domain errors
var (
	ErrNotFound      = errors.New("user not found")
	ErrAlreadyExists = errors.New("user already exists")
	ErrInvalidID     = errors.New("user id is required")
)

// Manager handles business logic for users.
type Manager struct {
	ds *Datastore
}

// NewManager creates a new user manager.
func NewManager(ds *Datastore) *Manager {
	return &Manager{ds: ds}
}

// Create inserts a user. Replaying a creation for an existing id yields
// ErrAlreadyExists; ids are never generated here.
func (m *Manager) Create(ctx context.Context, u *User) error {
	if strings.TrimSpace(u.ID) == "" {
		return ErrInvalidID
	}

	if err := m.ds.Create(ctx, u); err != nil {
		if database.IsUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Update overwrites email, name and image of an existing user.
func (m *Manager) Update(ctx context.Context, u *User) error {
	if strings.TrimSpace(u.ID) == "" {
		return ErrInvalidID
	}

	rowsAffected, err := m.ds.Update(ctx, u)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a user by id.
func (m *Manager) Delete(ctx context.Context, id string) error {
	rowsAffected, err := m.ds.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves a user by ID.
func (m *Manager) GetByID(ctx context.Context, id string) (*User, error) {
	u, err := m.ds.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetByEmail retrieves a user by email address.
func (m *Manager) GetByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrNotFound
	}

	u, err := m.ds.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}
