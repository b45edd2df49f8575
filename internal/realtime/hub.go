// internal/realtime/hub.go
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Per-user destinations a client receives frames on.
const (
	QueueMessages         = "/queue/messages"
	QueueReadReceipts     = "/queue/read-receipts"
	QueueDeliveryReceipts = "/queue/delivery-receipts"
	QueueErrors           = "/queue/errors"
)

// Frame is what a socket receives: the destination it was addressed to and the payload.
type Frame struct {
	Destination string `json:"destination"`
	Payload     any    `json:"payload"`
}

// Notifier delivers a payload to one user's destination. Implemented by the
// Hub (this process only) and the Broker (every instance sharing Redis).
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, destination string, payload any) error
}

type Client struct {
	ID     string
	UserID uuid.UUID
	Conn   *WebSocketConn
	Send   chan []byte
}

// PresenceFunc is called when a user gets their first socket (online=true)
// or loses their last one (online=false).
type PresenceFunc func(userID uuid.UUID, online bool)

type Hub struct {
	clients    map[string]*Client
	perUser    map[uuid.UUID]int
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex

	onPresence PresenceFunc
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		perUser:    make(map[uuid.UUID]int),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// OnPresence must be set before Run.
func (h *Hub) OnPresence(fn PresenceFunc) {
	h.onPresence = fn
}

// RegisterClient reports false once the hub has stopped.
func (h *Hub) RegisterClient(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Notify sends a frame to every local socket of userID.
func (h *Hub) Notify(_ context.Context, userID uuid.UUID, destination string, payload any) error {
	b, err := json.Marshal(Frame{Destination: destination, Payload: payload})
	if err != nil {
		return err
	}
	h.SendRaw(userID, b)
	return nil
}

// SendRaw pushes an already encoded frame. Full send buffers are skipped.
func (h *Hub) SendRaw(userID uuid.UUID, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, client := range h.clients {
		if client.UserID != userID {
			continue
		}
		select {
		case client.Send <- payload:
			sent++
		default:
			slog.Warn("websocket send buffer full, dropping frame", "client_id", client.ID, "user_id", userID)
		}
	}
	return sent
}

// Reply sends a frame to a single socket. It reports false when the socket is
// gone or its buffer is full.
func (h *Hub) Reply(clientID, destination string, payload any) bool {
	b, err := json.Marshal(Frame{Destination: destination, Payload: payload})
	if err != nil {
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[clientID]
	if !ok {
		return false
	}
	select {
	case client.Send <- b:
		return true
	default:
		return false
	}
}

func (h *Hub) IsOnline(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.perUser[userID] > 0
}

func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Run owns the registry until ctx ends. Users still connected at shutdown
// get an offline presence callback.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				close(client.Send)
				delete(h.clients, id)
			}
			gone := make([]uuid.UUID, 0, len(h.perUser))
			for userID := range h.perUser {
				gone = append(gone, userID)
				delete(h.perUser, userID)
			}
			h.mu.Unlock()
			if h.onPresence != nil {
				for _, userID := range gone {
					h.onPresence(userID, false)
				}
			}
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.perUser[client.UserID]++
			first := h.perUser[client.UserID] == 1
			h.mu.Unlock()
			slog.Debug("websocket client registered", "client_id", client.ID, "user_id", client.UserID)
			if first && h.onPresence != nil {
				h.onPresence(client.UserID, true)
			}

		case client := <-h.unregister:
			h.mu.Lock()
			old, ok := h.clients[client.ID]
			last := false
			if ok {
				delete(h.clients, client.ID)
				close(old.Send)
				h.perUser[client.UserID]--
				if h.perUser[client.UserID] <= 0 {
					delete(h.perUser, client.UserID)
					last = true
				}
			}
			h.mu.Unlock()
			if ok {
				slog.Debug("websocket client unregistered", "client_id", client.ID, "user_id", client.UserID)
			}
			if last && h.onPresence != nil {
				h.onPresence(client.UserID, false)
			}
		}
	}
}
