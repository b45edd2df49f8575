package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/devconnect_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/metrics"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/realtime"
)

const maxMessageLen = 5000

type MessageService struct {
	DB            *gorm.DB
	Conversations *ConversationService
	Notifier      realtime.Notifier

	now func() time.Time
}

func NewMessageService(db *gorm.DB, convs *ConversationService, n realtime.Notifier) *MessageService {
	return &MessageService{DB: db, Conversations: convs, Notifier: n, now: time.Now}
}

// Send stores a SENT message and pushes it to the receiver's message queue.
// Every call stores a new message.
func (s *MessageService) Send(ctx context.Context, senderID, receiverID uuid.UUID, content string) (*MessageDTO, error) {
	if err := s.userExists(ctx, senderID, "Sender not found"); err != nil {
		return nil, err
	}
	if err := s.userExists(ctx, receiverID, "Receiver not found"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, apperr.Validation("Message text is required")
	}
	if utf8.RuneCountInString(content) > maxMessageLen {
		return nil, apperr.Validation(fmt.Sprintf("Message text cannot exceed %d characters", maxMessageLen))
	}

	conv, err := s.Conversations.GetOrCreate(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}

	msg := models.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Content:        content,
		Status:         models.MessageSent,
		CreatedAt:      s.now(),
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", conv.ID).
			Update("last_message_at", msg.CreatedAt).Error
	})
	if err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}
	metrics.MessagesSent.Inc()

	dto := toDTO(&msg, receiverID)
	s.notify(ctx, receiverID, realtime.QueueMessages, dto)
	return &dto, nil
}

// InConversation lists the messages oldest first after checking requesterID
// takes part in the conversation.
func (s *MessageService) InConversation(ctx context.Context, convID, requesterID uuid.UUID) ([]MessageDTO, error) {
	conv, err := s.Conversations.Get(ctx, convID, requesterID)
	if err != nil {
		return nil, err
	}
	other, _ := conv.Other(requesterID)

	var msgs []models.Message
	err = s.DB.WithContext(ctx).
		Where("conversation_id = ?", conv.ID).
		Order("created_at ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	out := make([]MessageDTO, 0, len(msgs))
	for i := range msgs {
		receiver := requesterID
		if msgs[i].SenderID == requesterID {
			receiver = other
		}
		out = append(out, toDTO(&msgs[i], receiver))
	}
	return out, nil
}

// Between returns the history of a and b as seen by a, creating the
// conversation if they never talked.
func (s *MessageService) Between(ctx context.Context, a, b uuid.UUID) ([]MessageDTO, error) {
	conv, err := s.Conversations.GetOrCreate(ctx, a, b)
	if err != nil {
		return nil, err
	}
	return s.InConversation(ctx, conv.ID, a)
}

// MarkRead moves every message the reader has not read to READ and sends a
// receipt to each sender. Messages may skip DELIVERED.
func (s *MessageService) MarkRead(ctx context.Context, convID, readerID uuid.UUID) (int, error) {
	if _, err := s.Conversations.Get(ctx, convID, readerID); err != nil {
		return 0, err
	}

	var unread []models.Message
	err := s.DB.WithContext(ctx).
		Where("conversation_id = ? AND sender_id <> ? AND status <> ?", convID, readerID, models.MessageRead).
		Order("created_at ASC").
		Find(&unread).Error
	if err != nil {
		return 0, fmt.Errorf("find unread: %w", err)
	}
	if len(unread) == 0 {
		return 0, nil
	}

	now := s.now()
	ids := make([]uuid.UUID, len(unread))
	for i := range unread {
		ids[i] = unread[i].ID
	}
	err = s.DB.WithContext(ctx).Model(&models.Message{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":  models.MessageRead,
			"read_at": now,
		}).Error
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}

	for i := range unread {
		unread[i].Status = models.MessageRead
		unread[i].ReadAt = &now
		s.notify(ctx, unread[i].SenderID, realtime.QueueReadReceipts, toDTO(&unread[i], readerID))
	}
	return len(unread), nil
}

// MarkDelivered moves a SENT message to DELIVERED and tells the sender.
// Messages already DELIVERED or READ are left alone.
func (s *MessageService) MarkDelivered(ctx context.Context, messageID, receiverID uuid.UUID) (*MessageDTO, error) {
	var msg models.Message
	if err := s.DB.WithContext(ctx).First(&msg, "id = ?", messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Message not found")
		}
		return nil, err
	}
	conv, err := s.Conversations.Get(ctx, msg.ConversationID, receiverID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID == receiverID {
		return nil, apperr.Forbidden("Only the receiver can acknowledge delivery")
	}
	receiver, _ := conv.Other(msg.SenderID)

	now := s.now()
	res := s.DB.WithContext(ctx).Model(&models.Message{}).
		Where("id = ? AND status = ?", msg.ID, models.MessageSent).
		Updates(map[string]interface{}{
			"status":       models.MessageDelivered,
			"delivered_at": now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("mark delivered: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		dto := toDTO(&msg, receiver)
		return &dto, nil
	}

	msg.Status = models.MessageDelivered
	msg.DeliveredAt = &now
	dto := toDTO(&msg, receiver)
	s.notify(ctx, msg.SenderID, realtime.QueueDeliveryReceipts, dto)
	return &dto, nil
}

// UnreadTotal counts messages sent to userID that are not READ, across all
// conversations.
func (s *MessageService) UnreadTotal(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.Message{}).
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("(conversations.user1_id = ? OR conversations.user2_id = ?) AND messages.sender_id <> ? AND messages.status <> ?",
			userID, userID, userID, models.MessageRead).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

func (s *MessageService) notify(ctx context.Context, userID uuid.UUID, destination string, payload any) {
	if err := s.Notifier.Notify(ctx, userID, destination, payload); err != nil {
		slog.Warn("realtime push failed", "user_id", userID, "destination", destination, "error", err)
	}
}

func (s *MessageService) userExists(ctx context.Context, id uuid.UUID, msg string) error {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound(msg)
	}
	return nil
}
