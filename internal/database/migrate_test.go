package database

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestResolveMigrationsPath_Configured(t *testing.T) {
	if got := ResolveMigrationsPath("/srv/migrations"); got != "/srv/migrations" {
		t.Errorf("expected configured path, got %q", got)
	}
}

func TestResolveMigrationsPath_WorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "migrations"), 0o755); err != nil {
		t.Fatalf("failed to create migrations dir: %v", err)
	}
	t.Chdir(dir)

	got := ResolveMigrationsPath("")
	want, _ := filepath.Abs("migrations")
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestMigrationFilesArePaired(t *testing.T) {
	entries, err := os.ReadDir(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("failed to read migrations: %v", err)
	}

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}

	if len(ups) == 0 {
		t.Fatal("expected at least one up migration")
	}
	for base := range ups {
		if !downs[base] {
			t.Errorf("migration %s has no down file", base)
		}
	}
}

func TestMigrateVersion_LeavesPoolOpen(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer sqlDB.Close()
	db := &DB{DB: sqlDB}

	mock.ExpectQuery(`SELECT CURRENT_DATABASE\(\)`).
		WillReturnRows(sqlmock.NewRows([]string{"current_database"}).AddRow("devtrack"))
	mock.ExpectQuery(`SELECT CURRENT_SCHEMA\(\)`).
		WillReturnRows(sqlmock.NewRows([]string{"current_schema"}).AddRow("public"))
	mock.ExpectExec(`SELECT pg_advisory_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM information_schema.tables`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(`SELECT pg_advisory_unlock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT version, dirty FROM`).
		WillReturnRows(sqlmock.NewRows([]string{"version", "dirty"}).AddRow(1, false))

	path, err := filepath.Abs(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("failed to resolve migrations path: %v", err)
	}

	status, err := db.MigrateVersion(path)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if status.Version != 1 || status.Dirty {
		t.Errorf("expected clean version 1, got %+v", status)
	}

	if err := db.Health(context.Background()); err != nil {
		t.Errorf("expected pool to stay open after migrating, got: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
