package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Developer is the freelancer side of a user (developers.user_id -> users.id).
type Developer struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	Username     string                      `gorm:"type:varchar(50)" json:"username"`
	Bio          string                      `gorm:"type:text" json:"bio"`
	Skills       datatypes.JSONSlice[string] `json:"skills"`
	GithubURL    string                      `gorm:"type:text" json:"github_url"`
	LinkedinURL  string                      `gorm:"type:text" json:"linkedin_url"`
	PortfolioURL string                      `gorm:"type:text" json:"portfolio_url"`
	HourlyRate   float64                     `gorm:"type:numeric(10,2);default:0" json:"hourly_rate"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (d *Developer) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return
}

// Client is the hiring side of a user (clients.user_id -> users.id).
type Client struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	CompanyName string `gorm:"type:varchar(150)" json:"company_name"`
	Industry    string `gorm:"type:varchar(80);index" json:"industry"`
	Website     string `gorm:"type:text" json:"website"`
	Description string `gorm:"type:text" json:"description"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (c *Client) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
