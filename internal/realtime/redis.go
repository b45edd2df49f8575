package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const userChannelPrefix = "user:"

func NewRedis(addr, password string) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	slog.Info("redis client created", "addr", addr)
	return rdb
}

func UserChannel(userID uuid.UUID) string {
	return userChannelPrefix + userID.String()
}

// Broker fans frames out through Redis pub/sub so a user connected to any
// instance receives them. Run forwards every "user:*" message into the local hub.
type Broker struct {
	rdb   *redis.Client
	hub   *Hub
	ready chan struct{}
}

func NewBroker(rdb *redis.Client, hub *Hub) *Broker {
	return &Broker{rdb: rdb, hub: hub, ready: make(chan struct{})}
}

func (b *Broker) Notify(ctx context.Context, userID uuid.UUID, destination string, payload any) error {
	data, err := json.Marshal(Frame{Destination: destination, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	if err := b.rdb.Publish(ctx, UserChannel(userID), data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", UserChannel(userID), err)
	}
	return nil
}

// Ready is closed once the pattern subscription is confirmed.
func (b *Broker) Ready() <-chan struct{} {
	return b.ready
}

func (b *Broker) Run(ctx context.Context) error {
	sub := b.rdb.PSubscribe(ctx, userChannelPrefix+"*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("psubscribe: %w", err)
	}
	close(b.ready)
	slog.Info("realtime broker subscribed", "pattern", userChannelPrefix+"*")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			userID, err := uuid.Parse(strings.TrimPrefix(msg.Channel, userChannelPrefix))
			if err != nil {
				slog.Warn("ignoring message on unexpected channel", "channel", msg.Channel)
				continue
			}
			b.hub.SendRaw(userID, []byte(msg.Payload))
		}
	}
}
