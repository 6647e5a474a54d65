package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devtrack/internal/auth"
	"devtrack/internal/comment"
	"devtrack/internal/config"
	"devtrack/internal/event"
	"devtrack/internal/logging"
	"devtrack/internal/middleware"
	"devtrack/internal/project"
	"devtrack/internal/task"
	"devtrack/internal/workspace"
)

const testUserHeader = "X-Test-User"

type fakePinger struct{ err error }

func (f fakePinger) Health(context.Context) error { return f.err }

type recordingPublisher struct {
	events []event.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e event.Event) error {
	p.events = append(p.events, e)
	return nil
}

// headerAuth stands in for session verification: the caller is whoever
// the test header names.
func headerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(testUserHeader)
		if userID == "" {
			auth.WriteUnauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(middleware.WithUserID(r.Context(), userID)))
	})
}

type fixture struct {
	router    http.Handler
	mock      sqlmock.Sqlmock
	publisher *recordingPublisher
}

func setup(t *testing.T, pinger Pinger) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logging.Discard()
	publisher := &recordingPublisher{}
	if pinger == nil {
		pinger = fakePinger{}
	}

	router := NewRouter(Deps{
		Config: &config.Config{
			Environment: "development",
			CORS:        config.CORSConfig{AllowedOrigins: config.DefaultCORSOrigins},
		},
		DB:     pinger,
		Logger: logger,
		Auth:   headerAuth,
		Webhook: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
		Functions:  len(event.Names),
		Workspaces: workspace.NewManager(workspace.NewDatastore(db)),
		Projects:   project.NewManager(project.NewDatastore(db)),
		Tasks:      task.NewManager(task.NewDatastore(db), publisher, logger),
		Comments:   comment.NewManager(comment.NewDatastore(db)),
	})

	return &fixture{router: router, mock: mock, publisher: publisher}
}

func (f *fixture) do(method, path, userID, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(testUserHeader, userID)
	}
	req.Header.Set("Origin", "http://localhost:5173")

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) expectMembership(workspaceID, userID string, role workspace.Role) {
	f.mock.ExpectQuery(`FROM workspace_members\s+WHERE workspace_id = \$1 AND user_id = \$2`).
		WithArgs(workspaceID, userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "workspace_id", "user_id", "role", "created_at"}).
			AddRow("mem_1", workspaceID, userID, string(role), time.Now()))
}

func (f *fixture) expectNoMembership(workspaceID, userID string) {
	f.mock.ExpectQuery(`FROM workspace_members\s+WHERE workspace_id = \$1 AND user_id = \$2`).
		WithArgs(workspaceID, userID).
		WillReturnError(sql.ErrNoRows)
}

func (f *fixture) expectProject(id uuid.UUID, workspaceID string) {
	now := time.Now()
	f.mock.ExpectQuery(`FROM projects WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "workspace_id", "created_at", "updated_at"}).
			AddRow(id.String(), "Launch", "", workspaceID, now, now))
}

func TestRoot(t *testing.T) {
	f := setup(t, nil)

	rec := f.do(http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Server is live!", rec.Body.String())

	rec = f.do(http.MethodGet, "/nowhere", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
		wantBody   string
	}{
		{name: "healthy", wantStatus: http.StatusOK, wantBody: "healthy"},
		{name: "database down", pingErr: errors.New("connection refused"), wantStatus: http.StatusServiceUnavailable, wantBody: "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, fakePinger{err: tt.pingErr})

			rec := f.do(http.MethodGet, "/health", "", "")
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantBody, body["status"])
		})
	}
}

func TestStatus(t *testing.T) {
	f := setup(t, nil)

	rec := f.do(http.MethodGet, "/api/v1/status", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "devtrack", body["service"])
	assert.Equal(t, float64(len(event.Names)), body["functions"])
}

func TestWebhookMountedWithoutSessionAuth(t *testing.T) {
	f := setup(t, nil)

	rec := f.do(http.MethodPost, "/api/inngest", "", `{}`)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	f := setup(t, nil)

	for _, path := range []string{"/api/workspaces", "/api/projects?workspace_id=org_1", "/api/tasks", "/api/comments"} {
		rec := f.do(http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestWorkspaces_List(t *testing.T) {
	f := setup(t, nil)
	now := time.Now()

	f.mock.ExpectQuery(`INNER JOIN workspace_members m ON m.workspace_id = w.id`).
		WithArgs("user_1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "image_url", "owner_id", "created_at", "updated_at"}).
			AddRow("org_1", "Acme", "acme", "", "user_1", now, now))

	rec := f.do(http.MethodGet, "/api/workspaces", "user_1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Workspaces []workspace.Workspace `json:"workspaces"`
		Count      int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "Acme", body.Workspaces[0].Name)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestWorkspaces_GetRequiresMembership(t *testing.T) {
	f := setup(t, nil)
	f.expectNoMembership("org_1", "user_2")

	rec := f.do(http.MethodGet, "/api/workspaces/org_1", "user_2", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestWorkspaces_AddMember(t *testing.T) {
	tests := []struct {
		name       string
		role       workspace.Role
		body       string
		setup      func(f *fixture)
		wantStatus int
	}{
		{
			name: "admin adds by email",
			role: workspace.RoleAdmin,
			body: `{"email":"bob@example.com"}`,
			setup: func(f *fixture) {
				f.mock.ExpectQuery(`INSERT INTO workspace_members`).
					WithArgs(sqlmock.AnyArg(), "org_1", "bob@example.com", "MEMBER").
					WillReturnRows(sqlmock.NewRows([]string{"user_id", "created_at"}).AddRow("user_bob", time.Now()))
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "unknown email",
			role: workspace.RoleAdmin,
			body: `{"email":"ghost@example.com","role":"ADMIN"}`,
			setup: func(f *fixture) {
				f.mock.ExpectQuery(`INSERT INTO workspace_members`).WillReturnError(sql.ErrNoRows)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "invalid role",
			role:       workspace.RoleAdmin,
			body:       `{"email":"bob@example.com","role":"OWNER"}`,
			setup:      func(*fixture) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "member is forbidden",
			role:       workspace.RoleMember,
			body:       `{"email":"bob@example.com"}`,
			setup:      func(*fixture) {},
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, nil)
			f.expectMembership("org_1", "user_1", tt.role)
			tt.setup(f)

			rec := f.do(http.MethodPost, "/api/workspaces/org_1/members", "user_1", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.NoError(t, f.mock.ExpectationsWereMet())
		})
	}
}

func TestProjects_ListRequiresWorkspace(t *testing.T) {
	f := setup(t, nil)

	rec := f.do(http.MethodGet, "/api/projects", "user_1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProjects_CreateAsAdmin(t *testing.T) {
	f := setup(t, nil)
	now := time.Now()

	f.expectMembership("org_1", "user_1", workspace.RoleAdmin)
	f.mock.ExpectQuery(`INSERT INTO projects`).
		WithArgs(sqlmock.AnyArg(), "Launch", "Q3 launch", "org_1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	rec := f.do(http.MethodPost, "/api/projects", "user_1",
		`{"name":"  Launch ","description":"Q3 launch","workspace_id":"org_1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got project.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Launch", got.Name)
	assert.NotEqual(t, uuid.Nil, got.ID)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestProjects_DeleteAsMemberIsForbidden(t *testing.T) {
	f := setup(t, nil)
	id := uuid.New()

	f.expectProject(id, "org_1")
	f.expectMembership("org_1", "user_1", workspace.RoleMember)

	rec := f.do(http.MethodDelete, "/api/projects/"+id.String(), "user_1", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestProjects_InvalidID(t *testing.T) {
	f := setup(t, nil)

	rec := f.do(http.MethodGet, "/api/projects/not-a-uuid", "user_1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTasks_CreateWithAssigneePublishesOrigin(t *testing.T) {
	f := setup(t, nil)
	projectID := uuid.New()
	now := time.Now()

	f.expectProject(projectID, "org_1")
	f.expectMembership("org_1", "user_1", workspace.RoleMember)
	f.mock.ExpectQuery(`INSERT INTO tasks`).
		WithArgs(sqlmock.AnyArg(), "Write docs", sqlmock.AnyArg(), "HIGH", "TODO", sqlmock.AnyArg(), sqlmock.AnyArg(), projectID).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	body := `{"project_id":"` + projectID.String() + `","title":"Write docs","priority":"HIGH","assignee_id":"user_2"}`
	rec := f.do(http.MethodPost, "/api/tasks", "user_1", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got task.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, task.StatusTodo, got.Status)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, event.TaskAssigned{TaskID: got.ID.String(), Origin: "http://localhost:5173"}, f.publisher.events[0])
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestTasks_CreateInvalidPriority(t *testing.T) {
	f := setup(t, nil)
	projectID := uuid.New()

	f.expectProject(projectID, "org_1")
	f.expectMembership("org_1", "user_1", workspace.RoleMember)

	body := `{"project_id":"` + projectID.String() + `","title":"Write docs","priority":"URGENT"}`
	rec := f.do(http.MethodPost, "/api/tasks", "user_1", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.publisher.events)
}

func TestTasks_GetNotFound(t *testing.T) {
	f := setup(t, nil)
	id := uuid.New()

	f.mock.ExpectQuery(`FROM tasks WHERE id = \$1`).WithArgs(id).WillReturnError(sql.ErrNoRows)

	rec := f.do(http.MethodGet, "/api/tasks/"+id.String(), "user_1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestComments_DeleteByNonAuthor(t *testing.T) {
	f := setup(t, nil)
	id := uuid.New()

	f.mock.ExpectExec(`DELETE FROM comments WHERE id = \$1 AND user_id = \$2`).
		WithArgs(id, "user_2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectQuery(`FROM comments WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "content", "user_id", "task_id", "created_at"}).
			AddRow(id.String(), "nice", "user_1", uuid.NewString(), time.Now()))

	rec := f.do(http.MethodDelete, "/api/comments/"+id.String(), "user_2", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestBodyTooLarge(t *testing.T) {
	f := setup(t, nil)

	body := `{"name":"` + strings.Repeat("x", MaxBodyBytes) + `","workspace_id":"org_1"}`
	rec := f.do(http.MethodPost, "/api/projects", "user_1", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCORS(t *testing.T) {
	f := setup(t, nil)

	tests := []struct {
		name   string
		origin string
		want   string
	}{
		{name: "allowed origin", origin: "http://localhost:5173", want: "http://localhost:5173"},
		{name: "unknown origin", origin: "https://evil.example.com", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")

			rec := httptest.NewRecorder()
			f.router.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
