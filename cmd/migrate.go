package cmd

import (
	"fmt"

	"rentledger-backend/config"
	"rentledger-backend/logger"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the PostgreSQL schema",
	Long: `Apply or roll back the embedded SQL migrations against DB_URL.

SQLite databases are created from the models on startup and do not use
these migrations.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, err := postgresDSN()
		if err != nil {
			return err
		}
		if err := config.RunSQLMigrations(dsn); err != nil {
			return err
		}
		log := logger.WithComponent("migrate")
		log.Info().Msg("Migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, _ := cmd.Flags().GetInt("steps")
		if steps <= 0 {
			return fmt.Errorf("steps must be positive")
		}
		dsn, err := postgresDSN()
		if err != nil {
			return err
		}
		if err := config.RollbackSQLMigrations(dsn, steps); err != nil {
			return err
		}
		log := logger.WithComponent("migrate")
		log.Info().Int("steps", steps).Msg("Migrations rolled back")
		return nil
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, err := postgresDSN()
		if err != nil {
			return err
		}
		version, dirty, err := config.MigrationVersion(dsn)
		if err != nil {
			return err
		}
		fmt.Printf("version: %d dirty: %t\n", version, dirty)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)

	migrateDownCmd.Flags().Int("steps", 1, "Number of migrations to roll back")
}

func postgresDSN() (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	if cfg.DBDriver != "postgres" {
		return "", fmt.Errorf("migrations require DB_DRIVER=postgres, got %q", cfg.DBDriver)
	}
	return cfg.DBURL, nil
}
