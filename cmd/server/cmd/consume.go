package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iliyamo/crusade-registration/internal/email"
	"github.com/iliyamo/crusade-registration/internal/queue"
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Mail ticket confirmations from the ticket.registered queue",
	Long: `Consume ticket.registered messages from RabbitMQ and send a confirmation
email for each one.  The consumer reconnects with backoff until it receives
SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := loadConfig()
		if cfg.RabbitURL == "" {
			return fmt.Errorf("RABBITMQ_URL is not set")
		}
		mailer, err := email.NewService(cfg.Email, logger)
		if err != nil {
			return fmt.Errorf("email service: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger.Info().Msg("ticket consumer starting")
		err = queue.NewConsumer(cfg.RabbitURL, mailer, logger).Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}
