// internal/models/project.go
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectPending    ProjectStatus = "PENDING"     // waiting for a developer
	ProjectInProgress ProjectStatus = "IN_PROGRESS" // claimed
	ProjectCompleted  ProjectStatus = "COMPLETED"
)

func ParseProjectStatus(s string) (ProjectStatus, bool) {
	switch st := ProjectStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case ProjectPending, ProjectInProgress, ProjectCompleted:
		return st, true
	}
	return "", false
}

type Project struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectName string    `gorm:"type:varchar(200);not null" json:"project_name"`
	Description string    `gorm:"type:text" json:"description"`

	ClientID uuid.UUID  `gorm:"type:uuid;index;not null" json:"client_id"`
	DevID    *uuid.UUID `gorm:"type:uuid;index" json:"dev_id"` // nil until claimed

	Status        ProjectStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	ProjectBudget float64       `gorm:"type:numeric(12,2)" json:"project_budget"`
	Timeline      *time.Time    `json:"timeline"`
	ImageURL      string        `gorm:"type:text" json:"image_url"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Client    *Client    `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE" json:"-"`
	Developer *Developer `gorm:"foreignKey:DevID;constraint:OnDelete:SET NULL" json:"-"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
