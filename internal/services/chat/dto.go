package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/devconnect_be/internal/models"
)

// MessageDTO is a message as seen by its two parties. ReceiverID is always
// the participant that did not send it.
type MessageDTO struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID uuid.UUID  `json:"conversation_id"`
	SenderID       uuid.UUID  `json:"sender_id"`
	ReceiverID     uuid.UUID  `json:"receiver_id"`
	Text           string     `json:"text"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	DeliveredAt    *time.Time `json:"delivered_at"`
	ReadAt         *time.Time `json:"read_at"`
}

func toDTO(m *models.Message, receiverID uuid.UUID) MessageDTO {
	return MessageDTO{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReceiverID:     receiverID,
		Text:           m.Content,
		Status:         strings.ToLower(string(m.Status)),
		CreatedAt:      m.CreatedAt,
		DeliveredAt:    m.DeliveredAt,
		ReadAt:         m.ReadAt,
	}
}

// ChatSummary is one row of a user's conversation list.
type ChatSummary struct {
	ConversationID  uuid.UUID `json:"conversation_id"`
	OtherUserID     uuid.UUID `json:"other_user_id"`
	OtherUserName   string    `json:"other_user_name"`
	OtherUserRole   string    `json:"other_user_role"`
	OtherUserStatus string    `json:"other_user_status"`
	LastMessage     *string   `json:"last_message"`
	LastMessageTime time.Time `json:"last_message_time"`
	UnreadCount     int64     `json:"unread_count"`
}
