package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/crusade-registration/internal/metrics"
)

// Publisher sends ticket events to the broker.  Each publish dials its own
// connection, so a broker outage only fails that publish.
type Publisher struct {
	url string
}

func NewPublisher(url string) *Publisher { return &Publisher{url: url} }

// PublishTicketRegistered publishes ev as a persistent message on
// TicketRegisteredQueue.
func (p *Publisher) PublishTicketRegistered(ctx context.Context, ev TicketRegisteredEvent) error {
	err := p.publish(ctx, TicketRegisteredQueue, ev)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.QueueMessagesTotal.WithLabelValues("publish", result).Inc()
	return err
}

func (p *Publisher) publish(ctx context.Context, queue string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	return ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}
