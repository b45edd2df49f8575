package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Rating struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID    uuid.UUID `gorm:"type:uuid;index;not null" json:"client_id"`
	DeveloperID uuid.UUID `gorm:"type:uuid;index;not null" json:"developer_id"`

	Rating  int    `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"` // 1-5
	Comment string `gorm:"type:text" json:"comment"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Rating) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}
