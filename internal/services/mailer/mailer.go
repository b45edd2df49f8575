package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName  = "mail"
	ExchangeType  = "direct"
	QueueOutgoing = "mail.outgoing"
	RoutingKey    = "outgoing"
)

// Templates understood by the mail worker.
const (
	TemplateVerificationCode = "verification_code"
	TemplateAccountVerified  = "account_verified"
)

// Email is the job placed on the outgoing queue. Rendering and SMTP delivery
// happen in the mail worker.
type Email struct {
	To       string            `json:"to"`
	Template string            `json:"template"`
	Data     map[string]string `json:"data"`
	QueuedAt time.Time         `json:"queued_at"`
}

type Mailer interface {
	Send(ctx context.Context, email Email) error
}

type Producer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewProducer connects to RabbitMQ and declares the mail exchange and queue.
func NewProducer(rabbitMQURL string) (*Producer, error) {
	conn, err := amqp.Dial(rabbitMQURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, ExchangeType, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(QueueOutgoing, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(QueueOutgoing, RoutingKey, ExchangeName, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	slog.Info("mail producer connected", "queue", QueueOutgoing)
	return &Producer{conn: conn, channel: ch}, nil
}

func (p *Producer) Send(ctx context.Context, email Email) error {
	msg, err := publishing(email, time.Now().UTC())
	if err != nil {
		return err
	}
	if err := p.channel.PublishWithContext(ctx, ExchangeName, RoutingKey, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish email: %w", err)
	}
	return nil
}

func publishing(email Email, now time.Time) (amqp.Publishing, error) {
	if email.QueuedAt.IsZero() {
		email.QueuedAt = now
	}
	body, err := json.Marshal(email)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to encode email: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    email.QueuedAt,
	}, nil
}

func (p *Producer) Close() error {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			slog.Warn("error closing RabbitMQ channel", "error", err)
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// LogMailer only logs. Used when RABBITMQ_URL is not configured.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, email Email) error {
	slog.Info("email not queued, no broker configured", "to", email.To, "template", email.Template)
	return nil
}
