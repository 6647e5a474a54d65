package eventsync

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devtrack/internal/event"
	"devtrack/internal/logging"
	"devtrack/internal/mail"
	"devtrack/internal/task"
	"devtrack/internal/user"
	"devtrack/internal/workspace"
)

type fakeAssignments struct {
	assignment *task.Assignment
	err        error
}

func (f *fakeAssignments) GetAssignment(_ context.Context, _ string) (*task.Assignment, error) {
	return f.assignment, f.err
}

type recordingMailer struct {
	sent []mail.Message
	err  error
}

func (r *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	r.sent = append(r.sent, msg)
	return r.err
}

type fixture struct {
	syncer      *Syncer
	mock        sqlmock.Sqlmock
	assignments *fakeAssignments
	mailer      *recordingMailer
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		mock:        mock,
		assignments: &fakeAssignments{err: task.ErrNotFound},
		mailer:      &recordingMailer{},
	}
	f.syncer = New(Config{
		Users:       user.NewManager(user.NewDatastore(db)),
		Workspaces:  workspace.NewManager(workspace.NewDatastore(db)),
		Assignments: f.assignments,
		Mailer:      f.mailer,
		From:        "noreply@devtrack.test",
		Logger:      logging.Discard(),
	})
	return f
}

func timestamps() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now)
}

func TestHandle_UserCreated(t *testing.T) {
	f := setup(t)

	f.mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("user_1", "ada@example.com", "Ada Lovelace", "https://img/ada.png").
		WillReturnRows(timestamps())

	err := f.syncer.Handle(context.Background(), event.UserCreated{UserProfile: event.UserProfile{
		ID: "user_1", Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace", ImageURL: "https://img/ada.png",
	}})
	require.NoError(t, err)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestHandle_UserCreatedReplayIsSwallowed(t *testing.T) {
	f := setup(t)

	f.mock.ExpectQuery(`INSERT INTO users`).WillReturnRows(timestamps())
	f.mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_pkey"})

	ev := event.UserCreated{UserProfile: event.UserProfile{ID: "user_1", Email: "ada@example.com"}}
	assert.NoError(t, f.syncer.Handle(context.Background(), ev))
	assert.NoError(t, f.syncer.Handle(context.Background(), ev))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestHandle_UserUpdatedMissingIsSwallowed(t *testing.T) {
	f := setup(t)

	f.mock.ExpectExec(`UPDATE users`).WillReturnResult(sqlmock.NewResult(0, 0))

	ev := event.UserUpdated{UserProfile: event.UserProfile{ID: "user_404", Email: "x@example.com"}}
	assert.NoError(t, f.syncer.Handle(context.Background(), ev))
}

func TestHandle_UserDeletedMissingIsSwallowed(t *testing.T) {
	f := setup(t)

	f.mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs("user_9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, f.syncer.Handle(context.Background(), event.UserDeleted{ID: "user_9"}))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestHandle_OrganizationCreated(t *testing.T) {
	f := setup(t)

	f.mock.ExpectQuery(`INSERT INTO workspaces`).
		WithArgs("org_1", "Acme", "acme", "", "user_1").
		WillReturnRows(timestamps())

	ev, err := event.Decode("clerk/organization.created",
		[]byte(`{"id":"org_1","name":"Acme","slug":"acme","created_by":"user_1"}`))
	require.NoError(t, err)

	require.NoError(t, f.syncer.Handle(context.Background(), ev))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestHandle_OrganizationUpdatedAndDeleted(t *testing.T) {
	f := setup(t)

	f.mock.ExpectExec(`UPDATE workspaces`).
		WithArgs("org_1", "Acme Inc", "acme-inc", "https://img/acme.png").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(`DELETE FROM workspaces`).
		WithArgs("org_1").
		WillReturnError(errors.New("connection reset"))

	assert.NoError(t, f.syncer.Handle(context.Background(), event.OrganizationUpdated{Organization: event.Organization{
		ID: "org_1", Name: "Acme Inc", Slug: "acme-inc", ImageURL: "https://img/acme.png",
	}}))
	assert.NoError(t, f.syncer.Handle(context.Background(), event.OrganizationDeleted{ID: "org_1"}))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestHandle_MembershipCreatedRoleMapping(t *testing.T) {
	tests := []struct {
		providerRole string
		want         string
	}{
		{providerRole: "org:admin", want: "ADMIN"},
		{providerRole: "org:member", want: "MEMBER"},
		{providerRole: "org:billing_manager", want: "MEMBER"},
		{providerRole: "", want: "MEMBER"},
	}

	for _, tt := range tests {
		t.Run(tt.providerRole, func(t *testing.T) {
			f := setup(t)

			f.mock.ExpectQuery(`INSERT INTO workspace_members`).
				WithArgs("orgmem_1", "org_1", "user_1", tt.want).
				WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

			err := f.syncer.Handle(context.Background(), event.MembershipCreated{
				ID: "orgmem_1", OrganizationID: "org_1", UserID: "user_1", Role: tt.providerRole,
			})
			require.NoError(t, err)
			assert.NoError(t, f.mock.ExpectationsWereMet())
		})
	}
}

func TestHandle_MembershipCreatedMissingWorkspaceIsSwallowed(t *testing.T) {
	f := setup(t)

	f.mock.ExpectQuery(`INSERT INTO workspace_members`).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	err := f.syncer.Handle(context.Background(), event.MembershipCreated{
		ID: "orgmem_1", OrganizationID: "org_404", UserID: "user_1", Role: "org:admin",
	})
	assert.NoError(t, err)
}

func TestHandle_MembershipCreatedWithoutIDIsSkipped(t *testing.T) {
	f := setup(t)

	// Registered only to detect a write; it must stay unmet.
	f.mock.ExpectQuery(`INSERT INTO workspace_members`).
		WithArgs(sqlmock.AnyArg(), "org_1", "user_1", "MEMBER").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	ev, err := event.Decode("clerk/organizationMembership.created",
		[]byte(`{"organization":{"id":"org_1"},"public_user_data":{"user_id":"user_1"},"role":"org:member"}`))
	require.NoError(t, err)

	assert.NoError(t, f.syncer.Handle(context.Background(), ev))
	assert.Error(t, f.mock.ExpectationsWereMet(), "no membership row may be written without a provider id")
}

func populatedAssignment() *task.Assignment {
	return &task.Assignment{
		TaskID:        uuid.MustParse("8b6f3a7e-5a43-4c8e-9d38-7f1f3e0b2a11"),
		Title:         "Write docs",
		Description:   "Explain the API",
		Priority:      task.PriorityHigh,
		ProjectID:     uuid.MustParse("0e6c39a2-1b7d-4a4f-a1f1-3d2e8c9b5f00"),
		ProjectName:   "Backend",
		WorkspaceID:   "org_1",
		WorkspaceName: "Acme",
		Assignee:      &task.Assignee{ID: "user_2", Email: "bob@example.com", Name: "Bob Smith"},
	}
}

func TestHandle_TaskAssignedSendsOneMail(t *testing.T) {
	f := setup(t)
	f.assignments.assignment, f.assignments.err = populatedAssignment(), nil

	err := f.syncer.Handle(context.Background(), event.TaskAssigned{
		TaskID: "8b6f3a7e-5a43-4c8e-9d38-7f1f3e0b2a11",
		Origin: "https://app.example.com",
	})
	require.NoError(t, err)

	require.Len(t, f.mailer.sent, 1)
	msg := f.mailer.sent[0]
	assert.Equal(t, "noreply@devtrack.test", msg.From)
	assert.Equal(t, []string{"bob@example.com"}, msg.To)
	assert.Equal(t, "New Task Assignment: Write docs", msg.Subject)
	assert.Contains(t, msg.HTML, "Write docs")
	assert.Contains(t, msg.HTML,
		"https://app.example.com/workspace/org_1/project/0e6c39a2-1b7d-4a4f-a1f1-3d2e8c9b5f00")
}

func TestHandle_TaskAssignedWithoutAssignee(t *testing.T) {
	f := setup(t)
	a := populatedAssignment()
	a.Assignee = nil
	f.assignments.assignment, f.assignments.err = a, nil

	assert.NoError(t, f.syncer.Handle(context.Background(), event.TaskAssigned{TaskID: a.TaskID.String()}))
	assert.Empty(t, f.mailer.sent)
}

func TestHandle_TaskAssignedMissingTask(t *testing.T) {
	f := setup(t)

	assert.NoError(t, f.syncer.Handle(context.Background(), event.TaskAssigned{TaskID: uuid.NewString()}))
	assert.Empty(t, f.mailer.sent)
}

func TestHandle_TaskAssignedMailFailurePropagates(t *testing.T) {
	f := setup(t)
	f.assignments.assignment, f.assignments.err = populatedAssignment(), nil
	relayErr := errors.New("relay unavailable")
	f.mailer.err = relayErr

	err := f.syncer.Handle(context.Background(), event.TaskAssigned{TaskID: "8b6f3a7e-5a43-4c8e-9d38-7f1f3e0b2a11"})
	assert.ErrorIs(t, err, relayErr)
}

func TestHandle_TaskAssignedLookupFailurePropagates(t *testing.T) {
	f := setup(t)
	f.assignments.err = sql.ErrConnDone

	err := f.syncer.Handle(context.Background(), event.TaskAssigned{TaskID: uuid.NewString()})
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Empty(t, f.mailer.sent)
}
