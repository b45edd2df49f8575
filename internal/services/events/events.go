package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event types written to the marketplace topic.
const (
	ProjectCreated       = "project.created"
	ProjectClaimed       = "project.claimed"
	ProjectCompleted     = "project.completed"
	ProjectStatusChanged = "project.status_changed"
	ProjectDeleted       = "project.deleted"
	RatingCreated        = "rating.created"
	UserRegistered       = "user.registered"
)

type Event struct {
	Type       string    `json:"type"`
	Key        string    `json:"key"`
	Data       any       `json:"data"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, eventType, key string, data any) error
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Producer{writer: writer}
}

// Publish keys the message by entity id so events for one entity stay ordered.
func (p *Producer) Publish(ctx context.Context, eventType, key string, data any) error {
	msg, err := newMessage(eventType, key, data, time.Now().UTC())
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}
	return nil
}

func newMessage(eventType, key string, data any, at time.Time) (kafka.Message, error) {
	value, err := json.Marshal(Event{Type: eventType, Key: key, Data: data, OccurredAt: at})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventType)},
		},
	}, nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// Nop discards events. Used when KAFKA_BROKERS is empty.
type Nop struct{}

func (Nop) Publish(_ context.Context, eventType, key string, _ any) error {
	slog.Debug("event dropped, no broker configured", "type", eventType, "key", key)
	return nil
}
