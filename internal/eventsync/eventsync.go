// Package eventsync keeps the local store in step with identity provider
// events and sends the task assignment mail.
//
// Handlers that write rows keyed by provider ids log failures and return
// nil: the provider retries deliveries that fail, and a retried create
// would only hit the same primary key again. Sending mail is safe to
// retry, so the assignment handler returns transport errors.
package eventsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"devtrack/internal/event"
	"devtrack/internal/mail"
	"devtrack/internal/task"
	"devtrack/internal/user"
	"devtrack/internal/workspace"
)

// UserStore is the user persistence the syncer writes through.
type UserStore interface {
	Create(ctx context.Context, u *user.User) error
	Update(ctx context.Context, u *user.User) error
	Delete(ctx context.Context, id string) error
}

// WorkspaceStore is the workspace persistence the syncer writes through.
type WorkspaceStore interface {
	Create(ctx context.Context, w *workspace.Workspace) error
	Update(ctx context.Context, w *workspace.Workspace) error
	Delete(ctx context.Context, id string) error
	AddMember(ctx context.Context, m *workspace.Member) error
}

// AssignmentReader loads a task with its assignee, project and workspace.
// It returns task.ErrNotFound for unknown tasks.
type AssignmentReader interface {
	GetAssignment(ctx context.Context, taskID string) (*task.Assignment, error)
}

// Syncer handles one event at a time. It holds no state besides its
// collaborators and may be shared between goroutines.
type Syncer struct {
	users       UserStore
	workspaces  WorkspaceStore
	assignments AssignmentReader
	mailer      mail.Sender
	from        string
	logger      *slog.Logger
}

// Config holds the Syncer's collaborators.
type Config struct {
	Users       UserStore
	Workspaces  WorkspaceStore
	Assignments AssignmentReader
	Mailer      mail.Sender
	From        string
	Logger      *slog.Logger
}

func New(cfg Config) *Syncer {
	return &Syncer{
		users:       cfg.Users,
		workspaces:  cfg.Workspaces,
		assignments: cfg.Assignments,
		mailer:      cfg.Mailer,
		from:        cfg.From,
		logger:      cfg.Logger,
	}
}

// Handle applies e. It returns an error only when the assignment mail
// could not be sent.
func (s *Syncer) Handle(ctx context.Context, e event.Event) error {
	switch e := e.(type) {
	case event.UserCreated:
		s.userCreated(ctx, e)
	case event.UserUpdated:
		s.userUpdated(ctx, e)
	case event.UserDeleted:
		s.userDeleted(ctx, e)
	case event.OrganizationCreated:
		s.organizationCreated(ctx, e)
	case event.OrganizationUpdated:
		s.organizationUpdated(ctx, e)
	case event.OrganizationDeleted:
		s.organizationDeleted(ctx, e)
	case event.MembershipCreated:
		s.membershipCreated(ctx, e)
	case event.TaskAssigned:
		return s.taskAssigned(ctx, e)
	default:
		s.logger.WarnContext(ctx, "no handler for event", "event", fmt.Sprintf("%T", e))
	}
	return nil
}

func (s *Syncer) userCreated(ctx context.Context, e event.UserCreated) {
	u := userFromProfile(e.UserProfile)
	if err := s.users.Create(ctx, u); err != nil {
		s.logger.ErrorContext(ctx, "failed to create user", "user_id", e.ID, "error", err)
		return
	}
	s.logger.InfoContext(ctx, "user created", "user_id", e.ID)
}

func (s *Syncer) userUpdated(ctx context.Context, e event.UserUpdated) {
	u := userFromProfile(e.UserProfile)
	if err := s.users.Update(ctx, u); err != nil {
		s.logger.ErrorContext(ctx, "failed to update user", "user_id", e.ID, "error", err)
		return
	}
	s.logger.InfoContext(ctx, "user updated", "user_id", e.ID)
}

func (s *Syncer) userDeleted(ctx context.Context, e event.UserDeleted) {
	if err := s.users.Delete(ctx, e.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete user", "user_id", e.ID, "error", err)
		return
	}
	s.logger.InfoContext(ctx, "user deleted", "user_id", e.ID)
}

func (s *Syncer) organizationCreated(ctx context.Context, e event.OrganizationCreated) {
	w := workspaceFromOrganization(e.Organization)
	if err := s.workspaces.Create(ctx, w); err != nil {
		s.logger.ErrorContext(ctx, "failed to create workspace", "workspace_id", e.ID, "error", err)
		return
	}
	s.logger.InfoContext(ctx, "workspace created", "workspace_id", e.ID, "owner_id", e.CreatedBy)
}

func (s *Syncer) organizationUpdated(ctx context.Context, e event.OrganizationUpdated) {
	w := workspaceFromOrganization(e.Organization)
	if err := s.workspaces.Update(ctx, w); err != nil {
		s.logger.ErrorContext(ctx, "failed to update workspace", "workspace_id", e.ID, "error", err)
		return
	}
	s.logger.InfoContext(ctx, "workspace updated", "workspace_id", e.ID)
}

func (s *Syncer) organizationDeleted(ctx context.Context, e event.OrganizationDeleted) {
	if err := s.workspaces.Delete(ctx, e.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete workspace", "workspace_id", e.ID, "error", err)
		return
	}
	s.logger.InfoContext(ctx, "workspace deleted", "workspace_id", e.ID)
}

func (s *Syncer) membershipCreated(ctx context.Context, e event.MembershipCreated) {
	m := &workspace.Member{
		ID:          e.ID,
		WorkspaceID: e.OrganizationID,
		UserID:      e.UserID,
		Role:        workspace.RoleFromProvider(e.Role),
	}
	if err := s.workspaces.AddMember(ctx, m); err != nil {
		s.logger.ErrorContext(ctx, "failed to add workspace member",
			"membership_id", e.ID, "workspace_id", e.OrganizationID, "user_id", e.UserID, "error", err)
		return
	}
	s.logger.InfoContext(ctx, "workspace member added",
		"workspace_id", e.OrganizationID, "user_id", e.UserID, "role", m.Role)
}

func (s *Syncer) taskAssigned(ctx context.Context, e event.TaskAssigned) error {
	a, err := s.assignments.GetAssignment(ctx, e.TaskID)
	if errors.Is(err, task.ErrNotFound) {
		s.logger.WarnContext(ctx, "assigned task not found, no mail sent", "task_id", e.TaskID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load task %s: %w", e.TaskID, err)
	}
	if a.Assignee == nil || a.Assignee.Email == "" {
		s.logger.InfoContext(ctx, "task has no assignee, no mail sent", "task_id", e.TaskID)
		return nil
	}

	subject, html, err := mail.RenderTaskAssignment(mail.TaskAssignment{
		AssigneeName:  a.Assignee.Name,
		Title:         a.Title,
		Description:   a.Description,
		DueDate:       a.DueDate,
		ProjectID:     a.ProjectID.String(),
		ProjectName:   a.ProjectName,
		WorkspaceID:   a.WorkspaceID,
		WorkspaceName: a.WorkspaceName,
		Origin:        e.Origin,
	})
	if err != nil {
		return err
	}

	msg := mail.Message{
		From:    s.from,
		To:      []string{a.Assignee.Email},
		Subject: subject,
		HTML:    html,
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send assignment mail for task %s: %w", e.TaskID, err)
	}

	s.logger.InfoContext(ctx, "assignment mail sent", "task_id", e.TaskID, "to", a.Assignee.Email)
	return nil
}

func userFromProfile(p event.UserProfile) *user.User {
	return &user.User{
		ID:    p.ID,
		Email: p.Email,
		Name:  user.FullName(p.FirstName, p.LastName),
		Image: p.ImageURL,
	}
}

func workspaceFromOrganization(o event.Organization) *workspace.Workspace {
	return &workspace.Workspace{
		ID:       o.ID,
		Name:     o.Name,
		Slug:     o.Slug,
		ImageURL: o.ImageURL,
		OwnerID:  o.CreatedBy,
	}
}
