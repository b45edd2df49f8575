package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/devconnect_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/models"
)

type ConversationService struct {
	DB *gorm.DB
}

func NewConversationService(db *gorm.DB) *ConversationService {
	return &ConversationService{DB: db}
}

// GetOrCreate returns the conversation between a and b regardless of argument
// order, creating it on first use.
func (s *ConversationService) GetOrCreate(ctx context.Context, a, b uuid.UUID) (*models.Conversation, error) {
	if a == b {
		return nil, apperr.Validation("Cannot start a conversation with yourself")
	}
	if err := s.userExists(ctx, a, "User1 not found"); err != nil {
		return nil, err
	}
	if err := s.userExists(ctx, b, "User2 not found"); err != nil {
		return nil, err
	}

	u1, u2 := models.CanonicalPair(a, b)
	conv, err := s.findPair(ctx, u1, u2)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	conv = &models.Conversation{User1ID: u1, User2ID: u2}
	if err := s.DB.WithContext(ctx).Create(conv).Error; err != nil {
		// lost a race on the unique pair index
		if existing, ferr := s.findPair(ctx, u1, u2); ferr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// Get loads a conversation and checks userID takes part in it.
func (s *ConversationService) Get(ctx context.Context, id, userID uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.DB.WithContext(ctx).First(&conv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Conversation not found")
		}
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, apperr.Forbidden("Access denied: User is not a participant in this conversation")
	}
	return &conv, nil
}

// ForUser lists userID's conversations, most recent activity first.
func (s *ConversationService) ForUser(ctx context.Context, userID uuid.UUID) ([]ChatSummary, error) {
	var convs []models.Conversation
	err := s.DB.WithContext(ctx).
		Preload("User1").
		Preload("User2").
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Find(&convs).Error
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	out := make([]ChatSummary, 0, len(convs))
	if len(convs) == 0 {
		return out, nil
	}

	ids := make([]uuid.UUID, len(convs))
	for i, c := range convs {
		ids[i] = c.ID
	}
	unread, err := s.unreadByConversation(ctx, ids, userID)
	if err != nil {
		return nil, err
	}

	for _, conv := range convs {
		other := conv.User1
		if conv.User1ID == userID {
			other = conv.User2
		}
		if other == nil {
			continue
		}

		sum := ChatSummary{
			ConversationID:  conv.ID,
			OtherUserID:     other.ID,
			OtherUserName:   strings.TrimSpace(other.FirstName + " " + other.LastName),
			OtherUserRole:   strings.ToLower(string(other.Role)),
			OtherUserStatus: strings.ToLower(string(other.Status)),
			LastMessageTime: conv.CreatedAt,
			UnreadCount:     unread[conv.ID],
		}

		var last models.Message
		err := s.DB.WithContext(ctx).
			Where("conversation_id = ?", conv.ID).
			Order("created_at DESC").
			Limit(1).
			Find(&last).Error
		if err != nil {
			return nil, fmt.Errorf("last message: %w", err)
		}
		if last.ID != uuid.Nil {
			preview := last.Content
			sum.LastMessage = &preview
			sum.LastMessageTime = last.CreatedAt
		}
		out = append(out, sum)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastMessageTime.After(out[j].LastMessageTime)
	})
	return out, nil
}

func (s *ConversationService) unreadByConversation(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) (map[uuid.UUID]int64, error) {
	var rows []struct {
		ConversationID uuid.UUID
		Unread         int64
	}
	err := s.DB.WithContext(ctx).Model(&models.Message{}).
		Select("conversation_id, COUNT(*) AS unread").
		Where("conversation_id IN ? AND sender_id <> ? AND status <> ?", ids, userID, models.MessageRead).
		Group("conversation_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count unread: %w", err)
	}
	out := make(map[uuid.UUID]int64, len(rows))
	for _, r := range rows {
		out[r.ConversationID] = r.Unread
	}
	return out, nil
}

func (s *ConversationService) findPair(ctx context.Context, u1, u2 uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.DB.WithContext(ctx).
		Where("user1_id = ? AND user2_id = ?", u1, u2).
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *ConversationService) userExists(ctx context.Context, id uuid.UUID, msg string) error {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound(msg)
	}
	return nil
}
