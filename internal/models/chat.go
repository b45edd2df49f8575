// internal/models/chat.go
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation is the unordered pairing of two users. The pair is stored in
// canonical order (User1ID < User2ID) so (a,b) and (b,a) hit the same row.
type Conversation struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	User1ID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_conversation_pair" json:"user1_id"`
	User2ID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_conversation_pair;index" json:"user2_id"`

	LastMessageAt *time.Time `json:"last_message_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	User1    *User     `gorm:"foreignKey:User1ID;constraint:OnDelete:CASCADE" json:"user1,omitempty"`
	User2    *User     `gorm:"foreignKey:User2ID;constraint:OnDelete:CASCADE" json:"user2,omitempty"`
	Messages []Message `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}

// HasParticipant reports whether userID is one side of the pair.
func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// Other returns the participant that is not userID. ok is false when userID
// is not part of the conversation.
func (c *Conversation) Other(userID uuid.UUID) (other uuid.UUID, ok bool) {
	switch userID {
	case c.User1ID:
		return c.User2ID, true
	case c.User2ID:
		return c.User1ID, true
	}
	return uuid.Nil, false
}

// CanonicalPair orders two user ids the way conversations store them.
func CanonicalPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if strings.Compare(a.String(), b.String()) <= 0 {
		return a, b
	}
	return b, a
}

type MessageStatus string

const (
	MessageSent      MessageStatus = "SENT"
	MessageDelivered MessageStatus = "DELIVERED"
	MessageRead      MessageStatus = "READ"
)

// Message represents a message in a conversation
type Message struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID     `gorm:"type:uuid;index;not null" json:"conversation_id"`
	SenderID       uuid.UUID     `gorm:"type:uuid;index;not null" json:"sender_id"`
	Content        string        `gorm:"type:text;not null" json:"content"`
	Status         MessageStatus `gorm:"type:varchar(20);not null;default:'SENT';index" json:"status"`

	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	DeliveredAt *time.Time `json:"delivered_at"`
	ReadAt      *time.Time `json:"read_at"`

	Sender *User `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"sender,omitempty"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}
