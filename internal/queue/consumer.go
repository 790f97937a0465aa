package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/crusade-registration/internal/email"
	"github.com/iliyamo/crusade-registration/internal/metrics"
)

// TicketMailer is the part of email.Service the consumer uses.
type TicketMailer interface {
	SendTicketConfirmation(ctx context.Context, to string, d email.TicketData) error
}

// Consumer reads ticket.registered messages and mails a confirmation for
// each one.
type Consumer struct {
	url    string
	mailer TicketMailer
	log    zerolog.Logger
}

func NewConsumer(url string, mailer TicketMailer, log zerolog.Logger) *Consumer {
	return &Consumer{url: url, mailer: mailer, log: log.With().Str("component", "ticket-consumer").Logger()}
}

// Run connects, consumes and reconnects with exponential backoff until ctx
// is cancelled.  It returns ctx.Err() on shutdown.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn().Err(err).Dur("retry_in", backoff).Msg("dial broker failed")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn().Err(err).Msg("consume loop ended, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(20, 0, false); err != nil {
		c.log.Warn().Err(err).Msg("set QoS failed")
	}
	if _, err := ch.QueueDeclare(TicketRegisteredQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(TicketRegisteredQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(ctx, d.Body); err != nil {
				metrics.QueueMessagesTotal.WithLabelValues("consume", "error").Inc()
				c.log.Error().Err(err).Msg("handle message failed")
				// Reject without requeue so a poison message cannot spin.
				_ = d.Nack(false, false)
				continue
			}
			metrics.QueueMessagesTotal.WithLabelValues("consume", "ok").Inc()
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, body []byte) error {
	var ev TicketRegisteredEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.UserEmail == "" {
		return fmt.Errorf("ticket %d: no recipient email", ev.TicketID)
	}

	sendCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := c.mailer.SendTicketConfirmation(sendCtx, ev.UserEmail, email.TicketData{
		Name:       ev.UserName,
		EventTitle: ev.EventTitle,
		QRCode:     ev.QRCode,
	}); err != nil {
		return fmt.Errorf("ticket %d: %w", ev.TicketID, err)
	}
	c.log.Info().Uint64("ticket_id", ev.TicketID).Uint64("event_id", ev.EventID).Msg("confirmation mailed")
	return nil
}
