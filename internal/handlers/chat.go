package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/devconnect_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/metrics"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/realtime"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/chat"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/utils"
)

const (
	wsReadWait  = 90 * time.Second
	wsOpTimeout = 10 * time.Second
	wsSendBuf   = 256
)

type ChatHandler struct {
	Messages      *chat.MessageService
	Conversations *chat.ConversationService
	Hub           *realtime.Hub
	JWTSecret     string
}

func NewChatHandler(ms *chat.MessageService, cs *chat.ConversationService, hub *realtime.Hub, secret string) *ChatHandler {
	return &ChatHandler{Messages: ms, Conversations: cs, Hub: hub, JWTSecret: secret}
}

type sendMessageReq struct {
	ReceiverID string `json:"receiver_id"`
	Text       string `json:"text"`
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req sendMessageReq
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, invalidBody())
	}
	receiver, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		return respondError(c, apperr.Validation("Invalid receiver_id"))
	}

	msg, err := h.Messages.Send(c.UserContext(), uid, receiver, req.Text)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusCreated, "Message sent", msg)
}

// MessagesWith returns the caller's history with :userId.
func (h *ChatHandler) MessagesWith(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return respondError(c, err)
	}
	other, err := paramUUID(c, "userId")
	if err != nil {
		return respondError(c, err)
	}

	list, err := h.Messages.Between(c.UserContext(), uid, other)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "", list)
}

func (h *ChatHandler) MarkDelivered(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	msg, err := h.Messages.MarkDelivered(c.UserContext(), id, uid)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "", msg)
}

func (h *ChatHandler) GetConversations(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return respondError(c, err)
	}
	list, err := h.Conversations.ForUser(c.UserContext(), uid)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "", list)
}

func (h *ChatHandler) UnreadCount(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return respondError(c, err)
	}
	n, err := h.Messages.UnreadTotal(c.UserContext(), uid)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "", fiber.Map{"unread_count": n})
}

func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return respondError(c, err)
	}
	convID, err := paramUUID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	list, err := h.Messages.InConversation(c.UserContext(), convID, uid)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "", list)
}

func (h *ChatHandler) MarkAsRead(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return respondError(c, err)
	}
	convID, err := paramUUID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	n, err := h.Messages.MarkRead(c.UserContext(), convID, uid)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Messages marked as read", fiber.Map{"updated": n})
}

// WebSocketUpgrade authenticates /ws?token=<access token> before the upgrade.
func (h *ChatHandler) WebSocketUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	claims, err := utils.ParseJWT(h.JWTSecret, c.Query("token"))
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	c.Locals("userId", claims.UserID)
	return c.Next()
}

// wsFrame is what clients send over the socket.
type wsFrame struct {
	Type           string `json:"type"`
	ReceiverID     string `json:"receiver_id"`
	Text           string `json:"text"`
	MessageID      string `json:"message_id"`
	ConversationID string `json:"conversation_id"`
}

// WebSocketHandler handles WebSocket connections
func (h *ChatHandler) WebSocketHandler(conn *websocket.Conn) {
	uidStr, _ := conn.Locals("userId").(string)
	userID, err := uuid.Parse(uidStr)
	if err != nil {
		_ = conn.Close()
		return
	}

	client := &realtime.Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Conn:   realtime.NewWebSocketConn(conn),
		Send:   make(chan []byte, wsSendBuf),
	}
	if !h.Hub.RegisterClient(client) {
		_ = conn.Close()
		return
	}
	metrics.WebSocketConnections.Inc()
	slog.Info("websocket connected", "user_id", userID, "client_id", client.ID)

	done := make(chan struct{})
	go func() {
		client.Conn.WritePump(client.Send)
		close(done)
	}()

	defer func() {
		h.Hub.UnregisterClient(client)
		metrics.WebSocketConnections.Dec()
		<-done
		slog.Info("websocket disconnected", "user_id", userID, "client_id", client.ID)
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadWait))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read failed", "user_id", userID, "error", err)
			}
			return
		}
		var f wsFrame
		if err := json.Unmarshal(raw, &f); err != nil {
			h.Hub.Reply(client.ID, realtime.QueueErrors, fiber.Map{"type": "", "message": "Invalid frame"})
			continue
		}
		h.handleFrame(client, f)
	}
}

func (h *ChatHandler) handleFrame(client *realtime.Client, f wsFrame) {
	ctx, cancel := context.WithTimeout(context.Background(), wsOpTimeout)
	defer cancel()

	var err error
	switch f.Type {
	case "ping":
		return
	case "send":
		var receiver uuid.UUID
		if receiver, err = uuid.Parse(f.ReceiverID); err != nil {
			err = apperr.Validation("Invalid receiver_id")
			break
		}
		var msg *chat.MessageDTO
		if msg, err = h.Messages.Send(ctx, client.UserID, receiver, f.Text); err == nil {
			h.Hub.Reply(client.ID, realtime.QueueMessages, msg)
		}
	case "delivered":
		var id uuid.UUID
		if id, err = uuid.Parse(f.MessageID); err != nil {
			err = apperr.Validation("Invalid message_id")
			break
		}
		_, err = h.Messages.MarkDelivered(ctx, id, client.UserID)
	case "read":
		var id uuid.UUID
		if id, err = uuid.Parse(f.ConversationID); err != nil {
			err = apperr.Validation("Invalid conversation_id")
			break
		}
		_, err = h.Messages.MarkRead(ctx, id, client.UserID)
	default:
		err = apperr.Validation("Unknown frame type: " + f.Type)
	}

	if err != nil {
		msg := apperr.Message(err)
		if msg == "" {
			slog.Error("websocket frame failed", "type", f.Type, "user_id", client.UserID, "error", err)
			msg = "Internal server error"
		}
		h.Hub.Reply(client.ID, realtime.QueueErrors, fiber.Map{"type": f.Type, "message": msg})
	}
}
