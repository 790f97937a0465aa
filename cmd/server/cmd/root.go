package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iliyamo/crusade-registration/internal/config"
)

var (
	// Global flags
	logLevel  string
	logFormat string

	// rootCmd runs the HTTP server when called without a subcommand.
	rootCmd = &cobra.Command{
		Use:   "server",
		Short: "Rhapsody Crusades registration server",
		Long: `Backend for the Rhapsody Crusades mobile app.

The server supports:
- Account sign-up, sign-in and KingsChat login
- A crusade catalog merged from local events and the public feed
- Ticket registration, QR check-in and event staff
- Testimonies with moderation, notifications and donations`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveCmd.RunE(cmd, args)
		},
	}
)

// Execute runs the root command.  It is called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error) (default: LOG_LEVEL or info)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, console) (default: LOG_FORMAT or console)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(consumeCmd)
	rootCmd.AddCommand(adminCmd)
}

// loadConfig reads the environment and applies the global flag overrides.
func loadConfig() (config.Config, zerolog.Logger) {
	cfg := config.Load()
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	return cfg, config.NewLogger(cfg.Logging)
}
