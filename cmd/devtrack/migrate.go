package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"devtrack/internal/database"
)

func migrateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	var path string
	cmd.PersistentFlags().StringVar(&path, "path", "", "migrations directory (default: auto-detected)")

	run := func(apply func(db *database.DB, path string) (string, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			db, err := connect(v)
			if err != nil {
				return err
			}
			defer db.Close()

			out, err := apply(db, database.ResolveMigrationsPath(path))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: run(func(db *database.DB, path string) (string, error) {
			if err := db.MigrateUp(path); err != nil {
				return "", err
			}
			return "migrations applied", nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		Args:  cobra.NoArgs,
		RunE: run(func(db *database.DB, path string) (string, error) {
			if err := db.MigrateDown(path); err != nil {
				return "", err
			}
			return "rolled back one migration", nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: run(func(db *database.DB, path string) (string, error) {
			status, err := db.MigrateVersion(path)
			if err != nil {
				return "", err
			}
			return formatVersion(status), nil
		}),
	})

	return cmd
}

func formatVersion(s database.MigrationStatus) string {
	if s.Dirty {
		return fmt.Sprintf("version %d (dirty)", s.Version)
	}
	return fmt.Sprintf("version %d", s.Version)
}
