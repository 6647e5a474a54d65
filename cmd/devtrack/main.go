// Command devtrack is the operator CLI: it inspects the database and
// manages schema migrations.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"devtrack/internal/config"
	"devtrack/internal/database"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:           "devtrack",
		Short:         "DevTrack operator tools",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(v.GetString("env_file"))
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("database-url", "", "PostgreSQL connection string (env DATABASE_URL)")
	flags.String("env-file", ".env", "dotenv file loaded before reading the environment")
	_ = v.BindPFlag("database_url", flags.Lookup("database-url"))
	_ = v.BindPFlag("env_file", flags.Lookup("env-file"))
	_ = v.BindEnv("database_url", "DATABASE_URL")

	rootCmd.AddCommand(workspacesCmd(v))
	rootCmd.AddCommand(migrateCmd(v))

	return rootCmd
}

// connect opens the database named by --database-url or DATABASE_URL.
func connect(v *viper.Viper) (*database.DB, error) {
	url := v.GetString("database_url")
	if url == "" {
		return nil, fmt.Errorf("database URL is required: set --database-url or DATABASE_URL")
	}
	db, err := database.Connect(config.DatabaseConfig{URL: url, MaxOpenConns: 2, MaxIdleConns: 1})
	if err != nil {
		return nil, err
	}
	return db, nil
}
