package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"devtrack/internal/comment"
	"devtrack/internal/config"
	"devtrack/internal/database"
	"devtrack/internal/event"
	"devtrack/internal/eventsync"
	"devtrack/internal/handler"
	"devtrack/internal/jwtauth"
	"devtrack/internal/logging"
	"devtrack/internal/mail"
	"devtrack/internal/middleware"
	"devtrack/internal/project"
	"devtrack/internal/queue"
	"devtrack/internal/task"
	"devtrack/internal/user"
	"devtrack/internal/webhook"
	"devtrack/internal/workspace"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Environment, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("error closing database connection", "error", err)
		}
	}()
	logger.Info("database connection established")

	// Run migrations
	migrationsPath := database.ResolveMigrationsPath(cfg.MigrationsPath)
	if err := db.MigrateUp(migrationsPath); err != nil {
		return err
	}
	status, err := db.MigrateVersion(migrationsPath)
	switch {
	case err != nil:
		logger.Warn("failed to get migration version", "error", err)
	case status.Dirty:
		logger.Warn("database is in dirty state, a previous migration failed and manual intervention is required",
			"version", status.Version)
	default:
		logger.Info("database migrations complete", "version", status.Version)
	}

	users := user.NewManager(user.NewDatastore(db.DB))
	workspaces := workspace.NewManager(workspace.NewDatastore(db.DB))
	projects := project.NewManager(project.NewDatastore(db.DB))
	comments := comment.NewManager(comment.NewDatastore(db.DB))

	mailer, err := mail.NewSender(ctx, cfg.Mail, logger)
	if err != nil {
		return err
	}

	events, err := queue.BuildFromURL(ctx, cfg.Events.QueueURL, queue.DefaultCapacity)
	if err != nil {
		return err
	}
	defer func() {
		if err := events.Close(); err != nil {
			logger.Error("error closing event queue", "error", err)
		}
	}()

	// Without both bus keys the sync layer is a logged no-op: assignments
	// are not published and webhook deliveries are rejected.
	var publisher task.Publisher = queue.NewPublisher(events)
	signingKey := cfg.Events.SigningKey
	if !cfg.Events.Enabled() {
		logger.Warn("event bus keys not set, event sync is disabled")
		publisher = queue.NewDisabledPublisher(logger)
		signingKey = ""
	}
	tasks := task.NewManager(task.NewDatastore(db.DB), publisher, logger)

	syncer := eventsync.New(eventsync.Config{
		Users:       users,
		Workspaces:  workspaces,
		Assignments: tasks,
		Mailer:      mailer,
		From:        cfg.Mail.From,
		Logger:      logger,
	})

	worker := queue.NewWorker(events, syncer, queue.WorkerConfig{
		MaxAttempts: cfg.Events.MaxAttempts,
		Concurrency: cfg.Events.Workers,
	}, logger)

	hook := webhook.NewHandler(webhook.NewVerifier(signingKey), syncer, logger)
	functions := len(hook.Functions())
	logger.Info("serving event sync functions", "count", functions, "names", event.Names)

	verifier, err := jwtauth.NewVerifier(jwtauth.Config{
		Issuer:            cfg.Clerk.Issuer,
		AuthorizedParties: cfg.Clerk.AuthorizedParties,
	})
	if err != nil {
		return err
	}

	router := handler.NewRouter(handler.Deps{
		Config:     cfg,
		DB:         db,
		Logger:     logger,
		Auth:       middleware.RequireAuth(verifier, logger),
		Webhook:    hook,
		Functions:  functions,
		Workspaces: workspaces,
		Projects:   projects,
		Tasks:      tasks,
		Comments:   comments,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	workerCtx, stopWorker := context.WithCancel(ctx)
	workerDone := make(chan error, 1)
	go func() {
		workerDone <- worker.Run(workerCtx)
	}()

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("devtrack server starting", "port", cfg.Port, "env", cfg.Environment)
		serverErr <- server.ListenAndServe()
	}()

	var runErr error
	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	case sig := <-shutdown:
		logger.Info("initiating graceful shutdown", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		logger.Info("waiting for in-flight requests to complete")
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed, forcing shutdown", "error", err)
			if err := server.Close(); err != nil {
				runErr = err
			}
		}
		logger.Info("server shutdown complete")
	}

	stopWorker()
	if err := <-workerDone; err != nil {
		logger.Error("event worker stopped with error", "error", err)
	}

	return runErr
}
