// Package comment stores discussion on tasks.
package comment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"devtrack/internal/database"
)

var (
	ErrNotFound        = errors.New("comment not found")
	ErrEmptyContent    = errors.New("comment content is required")
	ErrNotAuthor       = errors.New("only the author can delete a comment")
	ErrMissingRelation = errors.New("task or user does not exist")
)

// Comment is a message a user left on a task.
type Comment struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	UserID    string    `json:"user_id"`
	TaskID    uuid.UUID `json:"task_id"`
	CreatedAt time.Time `json:"created_at"`
}

// WithAuthor is a comment joined with its author's profile.
type WithAuthor struct {
	Comment
	AuthorName  string `json:"author_name"`
	AuthorImage string `json:"author_image"`
}

// DBTX is the interface for database operations.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Datastore handles persistence operations for comments.
type Datastore struct {
	db DBTX
}

func NewDatastore(db DBTX) *Datastore {
	return &Datastore{db: db}
}

func (ds *Datastore) Create(ctx context.Context, c *Comment) error {
	query := `
		INSERT INTO comments (id, content, user_id, task_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at`

	return ds.db.QueryRowContext(ctx, query, c.ID, c.Content, c.UserID, c.TaskID).Scan(&c.CreatedAt)
}

func (ds *Datastore) GetByID(ctx context.Context, id uuid.UUID) (*Comment, error) {
	query := `SELECT id, content, user_id, task_id, created_at FROM comments WHERE id = $1`

	c := &Comment{}
	err := ds.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Content, &c.UserID, &c.TaskID, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (ds *Datastore) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*WithAuthor, error) {
	query := `
		SELECT c.id, c.content, c.user_id, c.task_id, c.created_at, u.name, u.image
		FROM comments c
		INNER JOIN users u ON u.id = c.user_id
		WHERE c.task_id = $1
		ORDER BY c.created_at ASC`

	rows, err := ds.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var comments []*WithAuthor
	for rows.Next() {
		c := &WithAuthor{}
		if err := rows.Scan(
			&c.ID, &c.Content, &c.UserID, &c.TaskID, &c.CreatedAt, &c.AuthorName, &c.AuthorImage,
		); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}

	return comments, rows.Err()
}

// DeleteByAuthor removes a comment only if userID wrote it.
func (ds *Datastore) DeleteByAuthor(ctx context.Context, id uuid.UUID, userID string) (int64, error) {
	result, err := ds.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Manager handles business logic for comments.
type Manager struct {
	ds *Datastore
}

func NewManager(ds *Datastore) *Manager {
	return &Manager{ds: ds}
}

func (m *Manager) Create(ctx context.Context, c *Comment) error {
	c.Content = strings.TrimSpace(c.Content)
	if c.Content == "" {
		return ErrEmptyContent
	}
	c.ID = uuid.New()

	if err := m.ds.Create(ctx, c); err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrMissingRelation
		}
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

func (m *Manager) GetByID(ctx context.Context, id uuid.UUID) (*Comment, error) {
	c, err := m.ds.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return c, nil
}

func (m *Manager) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*WithAuthor, error) {
	comments, err := m.ds.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// Delete removes a comment written by userID. ErrNotAuthor is returned
// when the comment exists but belongs to someone else.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	rowsAffected, err := m.ds.DeleteByAuthor(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	if _, err := m.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrNotAuthor
}
