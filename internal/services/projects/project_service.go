package projects

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/devconnect_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/metrics"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/services/events"
)

const InvalidStatusMessage = "Invalid status value. Valid values are: PENDING, IN_PROGRESS, COMPLETED"

// Actor is the authenticated caller of a project operation.
type Actor struct {
	UserID uuid.UUID
	Role   models.Role
}

type ProjectInput struct {
	ProjectName   *string    `json:"project_name"`
	Description   *string    `json:"description"`
	ClientID      *uuid.UUID `json:"client_id"`
	DevID         *uuid.UUID `json:"dev_id"`
	ProjectBudget *float64   `json:"project_budget"`
	Timeline      *time.Time `json:"timeline"`
	ImageURL      *string    `json:"image_url"`
}

type ProjectService struct {
	DB     *gorm.DB
	Events events.Publisher
}

func NewProjectService(db *gorm.DB, ev events.Publisher) *ProjectService {
	return &ProjectService{DB: db, Events: ev}
}

// Create stores a PENDING project. The client is the caller's client profile;
// only admins may name another client.
func (s *ProjectService) Create(ctx context.Context, actor Actor, in ProjectInput) (*models.Project, error) {
	name := ""
	if in.ProjectName != nil {
		name = strings.TrimSpace(*in.ProjectName)
	}
	if name == "" {
		return nil, apperr.Validation("Project name is required")
	}
	if in.ProjectBudget != nil && *in.ProjectBudget < 0 {
		return nil, apperr.Validation("Project budget cannot be negative")
	}

	var clientID uuid.UUID
	if actor.Role == models.RoleAdmin && in.ClientID != nil {
		if err := s.mustExist(ctx, &models.Client{}, *in.ClientID, "Client not found"); err != nil {
			return nil, err
		}
		clientID = *in.ClientID
	} else {
		id, err := s.ClientIDForUser(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		clientID = id
	}
	if in.DevID != nil {
		if err := s.mustExist(ctx, &models.Developer{}, *in.DevID, "Developer not found"); err != nil {
			return nil, err
		}
	}

	p := models.Project{
		ProjectName: name,
		ClientID:    clientID,
		DevID:       in.DevID,
		Status:      models.ProjectPending,
		Timeline:    in.Timeline,
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.ProjectBudget != nil {
		p.ProjectBudget = *in.ProjectBudget
	}
	if in.ImageURL != nil {
		p.ImageURL = strings.TrimSpace(*in.ImageURL)
	}

	if err := s.DB.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	s.publish(ctx, events.ProjectCreated, &p)
	return &p, nil
}

// Update applies the non-nil fields. Client and status are not editable here.
func (s *ProjectService) Update(ctx context.Context, actor Actor, id uuid.UUID, in ProjectInput) (*models.Project, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureOwner(ctx, actor, p); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.ProjectName != nil {
		v := strings.TrimSpace(*in.ProjectName)
		if v == "" {
			return nil, apperr.Validation("Project name is required")
		}
		updates["project_name"] = v
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
	}
	if in.ProjectBudget != nil {
		if *in.ProjectBudget < 0 {
			return nil, apperr.Validation("Project budget cannot be negative")
		}
		updates["project_budget"] = *in.ProjectBudget
	}
	if in.Timeline != nil {
		updates["timeline"] = *in.Timeline
	}
	if in.ImageURL != nil {
		updates["image_url"] = strings.TrimSpace(*in.ImageURL)
	}
	if len(updates) == 0 {
		return p, nil
	}

	if err := s.DB.WithContext(ctx).Model(p).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *ProjectService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.ensureOwner(ctx, actor, p); err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Delete(&models.Project{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	s.publish(ctx, events.ProjectDeleted, p)
	return nil
}

func (s *ProjectService) Complete(ctx context.Context, actor Actor, id uuid.UUID) (*models.Project, error) {
	p, err := s.setStatus(ctx, actor, id, models.ProjectCompleted)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ProjectCompleted, p)
	return p, nil
}

// SetStatus accepts any casing of PENDING, IN_PROGRESS or COMPLETED.
func (s *ProjectService) SetStatus(ctx context.Context, actor Actor, id uuid.UUID, status string) (*models.Project, error) {
	if strings.TrimSpace(status) == "" {
		return nil, apperr.Validation("Status is required")
	}
	st, ok := models.ParseProjectStatus(status)
	if !ok {
		return nil, apperr.Validation(InvalidStatusMessage)
	}
	p, err := s.setStatus(ctx, actor, id, st)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ProjectStatusChanged, p)
	return p, nil
}

func (s *ProjectService) setStatus(ctx context.Context, actor Actor, id uuid.UUID, st models.ProjectStatus) (*models.Project, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureParticipant(ctx, actor, p); err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(p).Update("status", st).Error; err != nil {
		return nil, fmt.Errorf("update project status: %w", err)
	}
	p.Status = st
	return p, nil
}

// Claim assigns the caller's developer profile to a PENDING, unassigned
// project. The check and the write are one conditional UPDATE, so of two
// concurrent claims exactly one wins.
func (s *ProjectService) Claim(ctx context.Context, projectID, userID uuid.UUID) (*models.Project, error) {
	devID, err := s.DeveloperIDForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	res := s.DB.WithContext(ctx).Model(&models.Project{}).
		Where("id = ? AND status = ? AND dev_id IS NULL", projectID, models.ProjectPending).
		Updates(map[string]interface{}{
			"dev_id": devID,
			"status": models.ProjectInProgress,
		})
	if res.Error != nil {
		metrics.ProjectClaims.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("claim project: %w", res.Error)
	}

	p, err := s.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		metrics.ProjectClaims.WithLabelValues("rejected").Inc()
		if p.Status != models.ProjectPending {
			return nil, apperr.Validation("Project is not available for claiming. Current status: " + string(p.Status))
		}
		return nil, apperr.Conflict("Project has already been claimed by another developer")
	}

	metrics.ProjectClaims.WithLabelValues("claimed").Inc()
	slog.Info("project claimed", "project_id", p.ID, "developer_id", devID)
	s.publish(ctx, events.ProjectClaimed, p)
	return p, nil
}

func (s *ProjectService) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var p models.Project
	if err := s.DB.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Project not found with id: " + id.String())
		}
		return nil, err
	}
	return &p, nil
}

func (s *ProjectService) List(ctx context.Context) ([]models.Project, error) {
	return s.find(ctx, s.DB)
}

func (s *ProjectService) ListByStatus(ctx context.Context, status string) ([]models.Project, error) {
	st, ok := models.ParseProjectStatus(status)
	if !ok {
		return nil, apperr.Validation(InvalidStatusMessage)
	}
	return s.find(ctx, s.DB.Where("status = ?", st))
}

func (s *ProjectService) ListByClient(ctx context.Context, clientID uuid.UUID) ([]models.Project, error) {
	return s.find(ctx, s.DB.Where("client_id = ?", clientID))
}

func (s *ProjectService) ListByDeveloper(ctx context.Context, devID uuid.UUID) ([]models.Project, error) {
	return s.find(ctx, s.DB.Where("dev_id = ?", devID))
}

func (s *ProjectService) find(ctx context.Context, q *gorm.DB) ([]models.Project, error) {
	out := []models.Project{}
	if err := q.WithContext(ctx).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return out, nil
}

func (s *ProjectService) ClientIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	var c models.Client
	if err := s.DB.WithContext(ctx).Select("id").Where("user_id = ?", userID).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, apperr.NotFound("Client profile not found")
		}
		return uuid.Nil, err
	}
	return c.ID, nil
}

func (s *ProjectService) DeveloperIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	var d models.Developer
	if err := s.DB.WithContext(ctx).Select("id").Where("user_id = ?", userID).First(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, apperr.NotFound("Developer profile not found")
		}
		return uuid.Nil, err
	}
	return d.ID, nil
}

// ensureOwner allows admins and the client that posted the project.
func (s *ProjectService) ensureOwner(ctx context.Context, actor Actor, p *models.Project) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	clientID, err := s.ClientIDForUser(ctx, actor.UserID)
	if err == nil && clientID == p.ClientID {
		return nil
	}
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	return apperr.Forbidden("Only the client who posted this project can modify it")
}

// ensureParticipant also admits the assigned developer.
func (s *ProjectService) ensureParticipant(ctx context.Context, actor Actor, p *models.Project) error {
	if actor.Role == models.RoleDeveloper && p.DevID != nil {
		devID, err := s.DeveloperIDForUser(ctx, actor.UserID)
		if err == nil && devID == *p.DevID {
			return nil
		}
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
	}
	if err := s.ensureOwner(ctx, actor, p); err != nil {
		return apperr.Forbidden("Only the project's client or assigned developer can change its status")
	}
	return nil
}

func (s *ProjectService) mustExist(ctx context.Context, model interface{}, id uuid.UUID, msg string) error {
	var n int64
	if err := s.DB.WithContext(ctx).Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return apperr.Validation(msg)
	}
	return nil
}

func (s *ProjectService) publish(ctx context.Context, eventType string, p *models.Project) {
	if err := s.Events.Publish(ctx, eventType, p.ID.String(), p); err != nil {
		slog.Warn("event not published", "type", eventType, "project_id", p.ID, "error", err)
	}
}
