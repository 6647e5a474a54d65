package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"devtrack/internal/database"
)

// Domain errors returned by the Manager.
var (
	ErrNotFound        = errors.New("workspace not found")
	ErrInvalidID       = errors.New("workspace or membership id is required")
	ErrInvalidName     = errors.New("workspace name is required")
	ErrAlreadyExists   = errors.New("workspace or membership already exists")
	ErrMissingRelation = errors.New("workspace or user does not exist")
	ErrNotMember       = errors.New("user is not a member of this workspace")
	ErrForbidden       = errors.New("workspace admin role required")
	ErrInvalidRole     = errors.New("invalid workspace role")
	ErrUserNotFound    = errors.New("no user with that email")
)

// Manager handles business logic for workspaces and memberships.
// It coordinates operations and translates datastore errors to domain errors.
type Manager struct {
	ds *Datastore
}

// NewManager creates a new workspace manager.
func NewManager(ds *Datastore) *Manager {
	return &Manager{ds: ds}
}

// Create inserts a workspace keyed by the provider organization id.
func (m *Manager) Create(ctx context.Context, w *Workspace) error {
	if strings.TrimSpace(w.ID) == "" {
		return ErrInvalidID
	}
	if strings.TrimSpace(w.Name) == "" {
		return ErrInvalidName
	}

	if err := m.ds.Create(ctx, w); err != nil {
		if database.IsUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	return nil
}

// Update overwrites name, slug and image of a workspace.
func (m *Manager) Update(ctx context.Context, w *Workspace) error {
	if strings.TrimSpace(w.ID) == "" {
		return ErrInvalidID
	}

	rowsAffected, err := m.ds.Update(ctx, w)
	if err != nil {
		return fmt.Errorf("failed to update workspace: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a workspace and all associated data.
func (m *Manager) Delete(ctx context.Context, id string) error {
	rowsAffected, err := m.ds.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves a workspace by ID.
func (m *Manager) GetByID(ctx context.Context, id string) (*Workspace, error) {
	w, err := m.ds.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	return w, nil
}

// ListForUser retrieves the workspaces a user belongs to.
func (m *Manager) ListForUser(ctx context.Context, userID string) ([]*Workspace, error) {
	workspaces, err := m.ds.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	return workspaces, nil
}

// ListWithMemberCounts retrieves every workspace with its member count.
func (m *Manager) ListWithMemberCounts(ctx context.Context) ([]*Summary, error) {
	summaries, err := m.ds.ListWithMemberCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	return summaries, nil
}

// AddMember inserts a membership keyed by the provider's membership id.
// An empty id is rejected; only AddMemberByEmail generates ids.
func (m *Manager) AddMember(ctx context.Context, member *Member) error {
	if strings.TrimSpace(member.ID) == "" {
		return ErrInvalidID
	}
	if member.Role == "" {
		member.Role = RoleMember
	}
	if !member.Role.Valid() {
		return ErrInvalidRole
	}

	if err := m.ds.AddMember(ctx, member); err != nil {
		switch {
		case database.IsUniqueViolation(err):
			return ErrAlreadyExists
		case database.IsForeignKeyViolation(err):
			return ErrMissingRelation
		}
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

// AddMemberByEmail adds the user registered under email to a workspace.
// The membership gets a generated id since it does not come from the provider.
func (m *Manager) AddMemberByEmail(ctx context.Context, workspaceID, email string, role Role) (*Member, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrUserNotFound
	}
	if role == "" {
		role = RoleMember
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	member := &Member{ID: uuid.NewString(), WorkspaceID: workspaceID, Role: role}
	if err := m.ds.AddMemberByEmail(ctx, member, email); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrUserNotFound
		case database.IsUniqueViolation(err):
			return nil, ErrAlreadyExists
		case database.IsForeignKeyViolation(err):
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to add member: %w", err)
	}
	return member, nil
}

// GetMembership retrieves a user's membership in a workspace.
func (m *Manager) GetMembership(ctx context.Context, workspaceID, userID string) (*Member, error) {
	member, err := m.ds.GetMembership(ctx, workspaceID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotMember
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return member, nil
}

// RequireMember returns the caller's membership or ErrNotMember.
func (m *Manager) RequireMember(ctx context.Context, workspaceID, userID string) (*Member, error) {
	return m.GetMembership(ctx, workspaceID, userID)
}

// RequireAdmin returns the caller's membership if it has the ADMIN role.
func (m *Manager) RequireAdmin(ctx context.Context, workspaceID, userID string) (*Member, error) {
	member, err := m.GetMembership(ctx, workspaceID, userID)
	if err != nil {
		return nil, err
	}
	if member.Role != RoleAdmin {
		return nil, ErrForbidden
	}
	return member, nil
}

// ListMembers retrieves the members of a workspace.
func (m *Manager) ListMembers(ctx context.Context, workspaceID string) ([]*MemberProfile, error) {
	members, err := m.ds.ListMembers(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}
