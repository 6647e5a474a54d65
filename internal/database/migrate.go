package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// MigrationStatus describes the schema version recorded in the database.
type MigrationStatus struct {
	Version uint
	Dirty   bool
}

// MigrateUp runs all pending migrations.
func (db *DB) MigrateUp(migrationsPath string) error {
	m, err := db.newMigrate(migrationsPath)
	if err != nil {
		return err
	}
	defer closeMigrate(m)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// MigrateDown rolls back the last migration.
func (db *DB) MigrateDown(migrationsPath string) error {
	m, err := db.newMigrate(migrationsPath)
	if err != nil {
		return err
	}
	defer closeMigrate(m)

	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}

	return nil
}

// MigrateVersion returns the current schema version. A database that has
// never been migrated reports version 0.
func (db *DB) MigrateVersion(migrationsPath string) (MigrationStatus, error) {
	m, err := db.newMigrate(migrationsPath)
	if err != nil {
		return MigrationStatus{}, err
	}
	defer closeMigrate(m)

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return MigrationStatus{}, fmt.Errorf("failed to get migration version: %w", err)
	}

	return MigrationStatus{Version: version, Dirty: dirty}, nil
}

// MigrateReset rolls back all migrations (use with caution).
func (db *DB) MigrateReset(migrationsPath string) error {
	m, err := db.newMigrate(migrationsPath)
	if err != nil {
		return err
	}
	defer closeMigrate(m)

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to reset migrations: %w", err)
	}

	return nil
}

// ResolveMigrationsPath picks the migrations directory: the configured path,
// then ./migrations, then migrations next to the executable, then /app/migrations.
func ResolveMigrationsPath(configured string) string {
	if configured != "" {
		return configured
	}

	if _, err := os.Stat("migrations"); err == nil {
		if absPath, err := filepath.Abs("migrations"); err == nil {
			return absPath
		}
	}

	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), "migrations")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "/app/migrations"
}

func closeMigrate(m *migrate.Migrate) {
	_, _ = m.Close()
}

// newMigrate runs migrate on a dedicated connection checked out of the pool.
// The driver closes only that connection, never the shared pool.
func (db *DB) newMigrate(migrationsPath string) (*migrate.Migrate, error) {
	ctx := context.Background()

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire migration connection: %w", err)
	}

	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		_ = driver.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return m, nil
}
