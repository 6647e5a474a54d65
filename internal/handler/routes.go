package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/cors"

	"devtrack/internal/comment"
	"devtrack/internal/config"
	"devtrack/internal/project"
	"devtrack/internal/task"
	"devtrack/internal/workspace"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Config    *config.Config
	DB        Pinger
	Logger    *slog.Logger
	Auth      func(http.Handler) http.Handler
	Webhook   http.Handler
	Functions int

	Workspaces *workspace.Manager
	Projects   *project.Manager
	Tasks      *task.Manager
	Comments   *comment.Manager
}

// RegisterRoutes registers all HTTP routes with the provided mux.
func RegisterRoutes(mux *http.ServeMux, d Deps) {
	// Unauthenticated endpoints
	mux.HandleFunc("GET /{$}", Root)
	mux.HandleFunc("GET /health", HealthCheck(d.DB, d.Logger))
	mux.HandleFunc("GET /api/v1/status", statusHandler(d.Config, d.Functions))

	// The event bus authenticates with a request signature, not a session.
	mux.Handle("/api/inngest", d.Webhook)

	acc := &access{workspaces: d.Workspaces, projects: d.Projects, tasks: d.Tasks, logger: d.Logger}
	workspaces := &WorkspacesHandler{manager: d.Workspaces, access: acc, logger: d.Logger}
	projects := &ProjectsHandler{manager: d.Projects, access: acc, logger: d.Logger}
	tasks := &TasksHandler{manager: d.Tasks, access: acc, logger: d.Logger}
	comments := &CommentsHandler{manager: d.Comments, access: acc, logger: d.Logger}

	protected := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, d.Auth(h))
	}

	protected("GET /api/workspaces", workspaces.List)
	protected("GET /api/workspaces/{id}", workspaces.Get)
	protected("POST /api/workspaces/{id}/members", workspaces.AddMember)

	protected("GET /api/projects", projects.List)
	protected("POST /api/projects", projects.Create)
	protected("GET /api/projects/{id}", projects.Get)
	protected("PUT /api/projects/{id}", projects.Update)
	protected("DELETE /api/projects/{id}", projects.Delete)

	protected("GET /api/tasks", tasks.List)
	protected("POST /api/tasks", tasks.Create)
	protected("GET /api/tasks/{id}", tasks.Get)
	protected("PUT /api/tasks/{id}", tasks.Update)
	protected("DELETE /api/tasks/{id}", tasks.Delete)

	protected("GET /api/comments", comments.List)
	protected("POST /api/comments", comments.Create)
	protected("DELETE /api/comments/{id}", comments.Delete)
}

// NewRouter builds the mux and wraps it with CORS for the configured origins.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()
	RegisterRoutes(mux, d)

	return cors.New(cors.Options{
		AllowedOrigins:   d.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(mux)
}
