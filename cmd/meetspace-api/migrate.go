package main

import (
	"fmt"

	"meetspace-api/internal/config"
	"meetspace-api/internal/database"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  `Apply all pending database migrations. Subcommands roll back or report the schema version.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		databaseURL, err := migrationDatabaseURL()
		if err != nil {
			return err
		}
		if err := database.RunMigrations(databaseURL); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, _ := cmd.Flags().GetInt("steps")
		databaseURL, err := migrationDatabaseURL()
		if err != nil {
			return err
		}
		if err := database.RollbackMigrations(databaseURL, steps); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
		return nil
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		databaseURL, err := migrationDatabaseURL()
		if err != nil {
			return err
		}
		v, dirty, err := database.MigrationVersion(databaseURL)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty=%t)\n", v, dirty)
		return nil
	},
}

func init() {
	migrateDownCmd.Flags().Int("steps", 1, "number of migrations to roll back")
	migrateCmd.AddCommand(migrateDownCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}

func migrationDatabaseURL() (string, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return "", fmt.Errorf("DATABASE_URL is required for migrations")
	}
	return cfg.DatabaseURL, nil
}
