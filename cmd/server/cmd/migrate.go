package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iliyamo/crusade-registration/internal/config"
	"github.com/iliyamo/crusade-registration/internal/database"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := loadConfig()
		if err := database.MigrateUp(cfg.DB); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		return logVersion(cfg.DB, logger)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations (default: one step)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := loadConfig()
		if err := database.MigrateDown(cfg.DB, migrateSteps); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
		return logVersion(cfg.DB, logger)
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := loadConfig()
		return logVersion(cfg.DB, logger)
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 1, "number of migrations to roll back")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
}

func logVersion(cfg config.DBConfig, logger zerolog.Logger) error {
	v, dirty, err := database.Version(cfg)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	logger.Info().Uint("version", v).Bool("dirty", dirty).Msg("schema version")
	return nil
}
