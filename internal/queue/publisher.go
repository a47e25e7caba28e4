package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends account events to RabbitMQ.  Each publish dials its
// own connection, so the publisher holds no broker state between calls.
type Publisher struct {
	url    string
	logger *slog.Logger
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{url: url, logger: logger}
}

// Publish sends ev to the account.events queue.  Errors are logged and
// returned so callers can choose to ignore them.  Messages are persistent.
func (p *Publisher) Publish(ctx context.Context, ev AccountEvent) error {
	if err := p.publish(ctx, ev); err != nil {
		p.logger.WarnContext(ctx, "account event not published",
			slog.String("type", string(ev.Type)),
			slog.Uint64("user_id", ev.UserID),
			slog.String("error", err.Error()))
		return err
	}
	return nil
}

func (p *Publisher) publish(ctx context.Context, ev AccountEvent) error {
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
	if _, err := ch.QueueDeclare(AccountEventQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return ch.PublishWithContext(ctx,
		"",                // default exchange
		AccountEventQueue, // routing key = queue name
		false,             // mandatory
		false,             // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
}
