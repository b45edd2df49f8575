package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/devconnect_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/models"
)

type ClientInfo struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	CompanyName string    `json:"company_name"`
	Industry    string    `json:"industry"`
	Website     string    `json:"website"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type ClientFilter struct {
	Industry string
	Company  string
}

type ClientService struct {
	DB *gorm.DB
}

func NewClientService(db *gorm.DB) *ClientService {
	return &ClientService{DB: db}
}

func (s *ClientService) base(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx).
		Table("clients AS c").
		Select(`c.id, c.user_id, u.email, u.first_name, u.last_name, c.company_name,
			c.industry, c.website, c.description, c.created_at`).
		Joins("JOIN users u ON u.id = c.user_id")
}

// List filters by exact industry and company-name substring, both case-insensitive.
func (s *ClientService) List(ctx context.Context, f ClientFilter) ([]ClientInfo, error) {
	q := s.base(ctx)
	if v := strings.TrimSpace(f.Industry); v != "" {
		q = q.Where("LOWER(c.industry) = ?", strings.ToLower(v))
	}
	if v := strings.TrimSpace(f.Company); v != "" {
		q = q.Where("LOWER(c.company_name) LIKE ?", "%"+strings.ToLower(v)+"%")
	}

	out := []ClientInfo{}
	if err := q.Order("c.created_at ASC").Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return out, nil
}

func (s *ClientService) GetByID(ctx context.Context, id uuid.UUID) (*ClientInfo, error) {
	var out []ClientInfo
	if err := s.base(ctx).Where("c.id = ?", id).Limit(1).Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	if len(out) == 0 {
		return nil, apperr.NotFound("Client not found")
	}
	return &out[0], nil
}

type ClientUpdate struct {
	CompanyName *string `json:"company_name"`
	Industry    *string `json:"industry"`
	Website     *string `json:"website"`
	Description *string `json:"description"`
}

func (s *ClientService) UpdateMine(ctx context.Context, userID uuid.UUID, in ClientUpdate) (*ClientInfo, error) {
	var c models.Client
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Client profile not found")
		}
		return nil, err
	}

	updates := map[string]interface{}{}
	setTrimmed(updates, "company_name", in.CompanyName)
	setTrimmed(updates, "industry", in.Industry)
	setTrimmed(updates, "website", in.Website)
	setTrimmed(updates, "description", in.Description)
	if len(updates) > 0 {
		if err := s.DB.WithContext(ctx).Model(&c).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update client: %w", err)
		}
	}
	return s.GetByID(ctx, c.ID)
}
