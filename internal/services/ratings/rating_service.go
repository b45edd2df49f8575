package ratings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/devconnect_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/events"
)

type RatingInput struct {
	ClientID    uuid.UUID `json:"client_id"`
	DeveloperID uuid.UUID `json:"developer_id"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment"`
}

type Average struct {
	AverageRating float64 `json:"average_rating"`
	TotalRatings  int64   `json:"total_ratings"`
}

type RatingService struct {
	DB     *gorm.DB
	Events events.Publisher
}

func NewRatingService(db *gorm.DB, ev events.Publisher) *RatingService {
	return &RatingService{DB: db, Events: ev}
}

// Create stores a rating from the caller's client profile. Admins rate on
// behalf of the client named in the input.
func (s *RatingService) Create(ctx context.Context, callerID uuid.UUID, role models.Role, in RatingInput) (*models.Rating, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperr.Validation("Rating must be between 1 and 5")
	}
	if role == models.RoleAdmin {
		if err := s.mustExist(ctx, &models.Client{}, in.ClientID, "Client not found"); err != nil {
			return nil, err
		}
	} else {
		id, err := s.clientIDForUser(ctx, callerID)
		if err != nil {
			return nil, err
		}
		if in.ClientID != uuid.Nil && in.ClientID != id {
			return nil, apperr.Forbidden("Cannot rate on behalf of another client")
		}
		in.ClientID = id
	}
	if err := s.mustExist(ctx, &models.Developer{}, in.DeveloperID, "Developer not found"); err != nil {
		return nil, err
	}

	r := models.Rating{
		ClientID:    in.ClientID,
		DeveloperID: in.DeveloperID,
		Rating:      in.Rating,
		Comment:     strings.TrimSpace(in.Comment),
	}
	if err := s.DB.WithContext(ctx).Create(&r).Error; err != nil {
		return nil, fmt.Errorf("create rating: %w", err)
	}

	if err := s.Events.Publish(ctx, events.RatingCreated, r.DeveloperID.String(), r); err != nil {
		slog.Warn("event not published", "type", events.RatingCreated, "error", err)
	}
	return &r, nil
}

func (s *RatingService) ForDeveloper(ctx context.Context, developerID uuid.UUID) ([]models.Rating, error) {
	out := []models.Rating{}
	err := s.DB.WithContext(ctx).
		Where("developer_id = ?", developerID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	return out, nil
}

// AverageFor computes the mean on read; 0 when the developer has no ratings.
func (s *RatingService) AverageFor(ctx context.Context, developerID uuid.UUID) (*Average, error) {
	var row struct {
		Avg   float64
		Total int64
	}
	err := s.DB.WithContext(ctx).Model(&models.Rating{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS total").
		Where("developer_id = ?", developerID).
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("average rating: %w", err)
	}
	return &Average{
		AverageRating: math.Round(row.Avg*100) / 100,
		TotalRatings:  row.Total,
	}, nil
}

func (s *RatingService) mustExist(ctx context.Context, model interface{}, id uuid.UUID, msg string) error {
	var n int64
	if err := s.DB.WithContext(ctx).Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound(msg)
	}
	return nil
}

func (s *RatingService) clientIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	var c models.Client
	if err := s.DB.WithContext(ctx).Select("id").Where("user_id = ?", userID).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, apperr.NotFound("Client profile not found")
		}
		return uuid.Nil, err
	}
	return c.ID, nil
}
