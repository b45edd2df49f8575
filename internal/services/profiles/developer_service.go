package profiles

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/devconnect_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/models"
)

type DeveloperInfo struct {
	ID           uuid.UUID                   `json:"id"`
	UserID       uuid.UUID                   `json:"user_id"`
	Email        string                      `json:"email"`
	FirstName    string                      `json:"first_name"`
	LastName     string                      `json:"last_name"`
	Username     string                      `json:"username"`
	Bio          string                      `json:"bio"`
	Skills       datatypes.JSONSlice[string] `json:"skills"`
	GithubURL    string                      `json:"github_url"`
	LinkedinURL  string                      `json:"linkedin_url"`
	PortfolioURL string                      `json:"portfolio_url"`
	HourlyRate   float64                     `json:"hourly_rate"`
	CreatedAt    time.Time                   `json:"created_at"`
}

// DeveloperStats is a developer with figures computed on read.
type DeveloperStats struct {
	DeveloperInfo
	ProjectsCompleted int64   `json:"projects_completed"`
	AverageRating     float64 `json:"average_rating"`
	TotalRatings      int64   `json:"total_ratings"`
}

const developerColumns = `d.id, d.user_id, u.email, u.first_name, u.last_name, d.username, d.bio, d.skills,
	d.github_url, d.linkedin_url, d.portfolio_url, d.hourly_rate, d.created_at`

// Correlated subqueries keep one row per developer; joining projects and
// ratings directly would multiply rows.
const statsColumns = `,
	(SELECT COUNT(*) FROM projects p WHERE p.dev_id = d.id AND p.status = 'COMPLETED') AS projects_completed,
	COALESCE((SELECT AVG(r.rating) FROM ratings r WHERE r.developer_id = d.id), 0) AS average_rating,
	(SELECT COUNT(*) FROM ratings r WHERE r.developer_id = d.id) AS total_ratings`

type DeveloperService struct {
	DB *gorm.DB
}

func NewDeveloperService(db *gorm.DB) *DeveloperService {
	return &DeveloperService{DB: db}
}

func (s *DeveloperService) base(ctx context.Context, withStats bool) *gorm.DB {
	cols := developerColumns
	if withStats {
		cols += statsColumns
	}
	return s.DB.WithContext(ctx).
		Table("developers AS d").
		Select(cols).
		Joins("JOIN users u ON u.id = d.user_id")
}

func (s *DeveloperService) ListAll(ctx context.Context) ([]DeveloperInfo, error) {
	out := []DeveloperInfo{}
	if err := s.base(ctx, false).Order("d.created_at ASC").Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("list developers: %w", err)
	}
	return out, nil
}

func (s *DeveloperService) ListWithStats(ctx context.Context) ([]DeveloperStats, error) {
	out := []DeveloperStats{}
	if err := s.base(ctx, true).Order("d.created_at ASC").Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("list developers with stats: %w", err)
	}
	for i := range out {
		out[i].AverageRating = round2(out[i].AverageRating)
	}
	return out, nil
}

func (s *DeveloperService) GetByID(ctx context.Context, id uuid.UUID) (*DeveloperStats, error) {
	return s.getOne(ctx, "d.id = ?", id)
}

func (s *DeveloperService) GetByUserID(ctx context.Context, userID uuid.UUID) (*DeveloperStats, error) {
	return s.getOne(ctx, "d.user_id = ?", userID)
}

func (s *DeveloperService) getOne(ctx context.Context, where string, arg uuid.UUID) (*DeveloperStats, error) {
	var out []DeveloperStats
	if err := s.base(ctx, true).Where(where, arg).Limit(1).Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("get developer: %w", err)
	}
	if len(out) == 0 {
		return nil, apperr.NotFound("Developer profile not found")
	}
	out[0].AverageRating = round2(out[0].AverageRating)
	return &out[0], nil
}

type DeveloperUpdate struct {
	Username     *string   `json:"username"`
	Bio          *string   `json:"bio"`
	Skills       *[]string `json:"skills"`
	GithubURL    *string   `json:"github_url"`
	LinkedinURL  *string   `json:"linkedin_url"`
	PortfolioURL *string   `json:"portfolio_url"`
	HourlyRate   *float64  `json:"hourly_rate"`
}

// UpdateMine edits the developer profile owned by userID.
func (s *DeveloperService) UpdateMine(ctx context.Context, userID uuid.UUID, in DeveloperUpdate) (*DeveloperStats, error) {
	var dev models.Developer
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&dev).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Developer profile not found")
		}
		return nil, err
	}

	updates := map[string]interface{}{}
	setTrimmed(updates, "username", in.Username)
	setTrimmed(updates, "bio", in.Bio)
	setTrimmed(updates, "github_url", in.GithubURL)
	setTrimmed(updates, "linkedin_url", in.LinkedinURL)
	setTrimmed(updates, "portfolio_url", in.PortfolioURL)
	if in.Skills != nil {
		skills := make([]string, 0, len(*in.Skills))
		for _, sk := range *in.Skills {
			if sk = strings.TrimSpace(sk); sk != "" {
				skills = append(skills, sk)
			}
		}
		updates["skills"] = datatypes.JSONSlice[string](skills)
	}
	if in.HourlyRate != nil {
		if *in.HourlyRate < 0 {
			return nil, apperr.Validation("Hourly rate cannot be negative")
		}
		updates["hourly_rate"] = *in.HourlyRate
	}

	if len(updates) > 0 {
		if err := s.DB.WithContext(ctx).Model(&dev).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update developer: %w", err)
		}
	}
	return s.GetByID(ctx, dev.ID)
}

func setTrimmed(m map[string]interface{}, col string, v *string) {
	if v != nil {
		m[col] = strings.TrimSpace(*v)
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
