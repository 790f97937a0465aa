package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/crusade-registration/internal/metrics"
	"github.com/iliyamo/crusade-registration/internal/queue"
)

var (
	// Server flags (override env)
	serverPort   string
	withConsumer bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables (and .env when present)
- Create the default admin when the admins table is empty
- Serve /api/v1, /admin/api, /healthz and /metrics
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with configuration from the environment
  server serve

  # Start on another port and mail ticket confirmations in-process
  server serve --port 9090 --consumer`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverPort, "port", "", "server port (default: APP_PORT)")
	serveCmd.Flags().BoolVar(&withConsumer, "consumer", false, "also run the ticket confirmation consumer")
}

func runServer() error {
	cfg, logger := loadConfig()
	if serverPort != "" {
		cfg.Port = serverPort
	}
	logger.Info().Str("env", cfg.Env).Msg("starting crusade registration server")
	metrics.Init()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if created, err := a.admin.Bootstrap(bootCtx); err != nil {
		logger.Error().Err(err).Msg("admin bootstrap failed")
	} else if created {
		logger.Warn().Msg("created default admin account; change its password")
	}
	bootCancel()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if withConsumer && cfg.RabbitURL != "" {
		go func() {
			err := queue.NewConsumer(cfg.RabbitURL, a.mailer, logger).Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("ticket consumer stopped")
			}
		}()
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.server(),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
	return nil
}
