package workspace

import (
	"context"
	"database/sql"
)

// DBTX is the interface for database operations.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Datastore handles persistence operations for workspaces and memberships.
// It performs only database operations and returns raw errors.
// Business logic and error translation belong in the Manager.
type Datastore struct {
	db DBTX
}

// NewDatastore creates a new workspace datastore.
func NewDatastore(db DBTX) *Datastore {
	return &Datastore{db: db}
}

// Create inserts a workspace keyed by the provider organization id.
func (ds *Datastore) Create(ctx context.Context, w *Workspace) error {
	query := `
		INSERT INTO workspaces (id, name, slug, image_url, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at`

	return ds.db.QueryRowContext(ctx, query,
		w.ID, w.Name, w.Slug, w.ImageURL, w.OwnerID,
	).Scan(&w.CreatedAt, &w.UpdatedAt)
}

// Update modifies name, slug and image of an existing workspace.
func (ds *Datastore) Update(ctx context.Context, w *Workspace) (int64, error) {
	query := `
		UPDATE workspaces
		SET name = $2, slug = $3, image_url = $4, updated_at = NOW()
		WHERE id = $1`

	result, err := ds.db.ExecContext(ctx, query, w.ID, w.Name, w.Slug, w.ImageURL)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// Delete removes a workspace. Memberships, projects and tasks cascade.
func (ds *Datastore) Delete(ctx context.Context, id string) (int64, error) {
	result, err := ds.db.ExecContext(ctx, `DELETE FROM workspaces WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// GetByID retrieves a workspace by its ID.
// Returns sql.ErrNoRows if not found.
func (ds *Datastore) GetByID(ctx context.Context, id string) (*Workspace, error) {
	query := `
		SELECT id, name, slug, image_url, owner_id, created_at, updated_at
		FROM workspaces
		WHERE id = $1`

	w := &Workspace{}
	err := ds.db.QueryRowContext(ctx, query, id).Scan(
		&w.ID, &w.Name, &w.Slug, &w.ImageURL, &w.OwnerID, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return w, nil
}

// ListForUser retrieves the workspaces a user belongs to.
func (ds *Datastore) ListForUser(ctx context.Context, userID string) ([]*Workspace, error) {
	query := `
		SELECT w.id, w.name, w.slug, w.image_url, w.owner_id, w.created_at, w.updated_at
		FROM workspaces w
		INNER JOIN workspace_members m ON m.workspace_id = w.id
		WHERE m.user_id = $1
		ORDER BY w.created_at ASC`

	rows, err := ds.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var workspaces []*Workspace
	for rows.Next() {
		w := &Workspace{}
		if err := rows.Scan(
			&w.ID, &w.Name, &w.Slug, &w.ImageURL, &w.OwnerID, &w.CreatedAt, &w.UpdatedAt,
		); err != nil {
			return nil, err
		}
		workspaces = append(workspaces, w)
	}

	return workspaces, rows.Err()
}

// ListWithMemberCounts retrieves every workspace with its number of members.
func (ds *Datastore) ListWithMemberCounts(ctx context.Context) ([]*Summary, error) {
	query := `
		SELECT w.id, w.name, w.slug, w.image_url, w.owner_id, w.created_at, w.updated_at,
		       COUNT(m.id) AS member_count
		FROM workspaces w
		LEFT JOIN workspace_members m ON m.workspace_id = w.id
		GROUP BY w.id
		ORDER BY w.created_at ASC`

	rows, err := ds.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var summaries []*Summary
	for rows.Next() {
		s := &Summary{}
		if err := rows.Scan(
			&s.ID, &s.Name, &s.Slug, &s.ImageURL, &s.OwnerID, &s.CreatedAt, &s.UpdatedAt,
			&s.MemberCount,
		); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

// --- Membership ---

// AddMember inserts a membership row.
func (ds *Datastore) AddMember(ctx context.Context, m *Member) error {
	query := `
		INSERT INTO workspace_members (id, workspace_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at`

	return ds.db.QueryRowContext(ctx, query,
		m.ID, m.WorkspaceID, m.UserID, string(m.Role),
	).Scan(&m.CreatedAt)
}

// GetMembership retrieves a user's membership in a workspace.
// Returns sql.ErrNoRows if the user is not a member.
func (ds *Datastore) GetMembership(ctx context.Context, workspaceID, userID string) (*Member, error) {
	query := `
		SELECT id, workspace_id, user_id, role, created_at
		FROM workspace_members
		WHERE workspace_id = $1 AND user_id = $2`

	m := &Member{}
	var role string
	err := ds.db.QueryRowContext(ctx, query, workspaceID, userID).Scan(
		&m.ID, &m.WorkspaceID, &m.UserID, &role, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Role = Role(role)

	return m, nil
}

// ListMembers retrieves the members of a workspace with their profiles.
func (ds *Datastore) ListMembers(ctx context.Context, workspaceID string) ([]*MemberProfile, error) {
	query := `
		SELECT m.id, m.workspace_id, m.user_id, m.role, m.created_at, u.email, u.name, u.image
		FROM workspace_members m
		INNER JOIN users u ON u.id = m.user_id
		WHERE m.workspace_id = $1
		ORDER BY m.created_at ASC`

	rows, err := ds.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var members []*MemberProfile
	for rows.Next() {
		p := &MemberProfile{}
		var role string
		if err := rows.Scan(
			&p.ID, &p.WorkspaceID, &p.UserID, &role, &p.CreatedAt, &p.Email, &p.Name, &p.Image,
		); err != nil {
			return nil, err
		}
		p.Role = Role(role)
		members = append(members, p)
	}

	return members, rows.Err()
}

// AddMemberByEmail inserts a membership for the user with the given email.
// Returns sql.ErrNoRows if no user has that email.
func (ds *Datastore) AddMemberByEmail(ctx context.Context, m *Member, email string) error {
	query := `
		INSERT INTO workspace_members (id, workspace_id, user_id, role, created_at)
		SELECT $1, $2, u.id, $4, NOW()
		FROM users u
		WHERE lower(u.email) = lower($3)
		LIMIT 1
		RETURNING user_id, created_at`

	return ds.db.QueryRowContext(ctx, query,
		m.ID, m.WorkspaceID, email, string(m.Role),
	).Scan(&m.UserID, &m.CreatedAt)
}
