package user

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

// Datastore handles database operations for users.
// It returns raw database errors; the Manager translates them.
type Datastore struct {
	db DBTX
}

// NewDatastore creates a new user datastore.
func NewDatastore(db DBTX) *Datastore {
	return &Datastore{db: db}
}

const userColumns = `id, email, name, image, created_at, updated_at`

// Create inserts a user keyed by the provider id.
func (ds *Datastore) Create(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (id, email, name, image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING created_at, updated_at`

	return ds.db.QueryRowContext(ctx, query, u.ID, u.Email, u.Name, u.Image).
		Scan(&u.CreatedAt, &u.UpdatedAt)
}

// Update overwrites the profile fields of an existing user.
func (ds *Datastore) Update(ctx context.Context, u *User) (int64, error) {
	query := `
		UPDATE users
		SET email = $2, name = $3, image = $4, updated_at = NOW()
		WHERE id = $1`

	result, err := ds.db.ExecContext(ctx, query, u.ID, u.Email, u.Name, u.Image)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Delete removes a user.
func (ds *Datastore) Delete(ctx context.Context, id string) (int64, error) {
	result, err := ds.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// GetByID retrieves a user by provider id.
// Returns sql.ErrNoRows if not found.
func (ds *Datastore) GetByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(ds.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a user by email address.
// Returns sql.ErrNoRows if not found.
func (ds *Datastore) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1) LIMIT 1`
	return scanUser(ds.db.QueryRowContext(ctx, query, email))
}

func scanUser(row *sql.Row) (*User, error) {
	u := &User{}
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Image, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return u, nil
}
