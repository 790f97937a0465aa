package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/crusade-registration/internal/service"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Admin account maintenance",
}

var adminBootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create the default admin when none exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := loadConfig()
		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		created, err := a.admin.Bootstrap(ctx)
		if err != nil {
			return err
		}
		if !created {
			logger.Info().Msg("an admin already exists; nothing to do")
			return nil
		}
		logger.Info().Str("username", service.DefaultAdminUsername).Msg("default admin created")
		return nil
	},
}

func init() {
	adminCmd.AddCommand(adminBootstrapCmd)
}
