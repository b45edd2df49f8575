package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleClient    Role = "client"
	RoleDeveloper Role = "developer"
	RoleAdmin     Role = "admin"
)

// ParseRole accepts any casing ("CLIENT", "client").
func ParseRole(s string) (Role, bool) {
	switch r := Role(lower(s)); r {
	case RoleClient, RoleDeveloper, RoleAdmin:
		return r, true
	}
	return "", false
}

type UserStatus string

const (
	StatusOnline  UserStatus = "online"
	StatusOffline UserStatus = "offline"
)

func ParseUserStatus(s string) (UserStatus, bool) {
	switch st := UserStatus(lower(s)); st {
	case StatusOnline, StatusOffline:
		return st, true
	}
	return "", false
}

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username  *string   `gorm:"type:varchar(50);uniqueIndex" json:"username,omitempty"`
	FirstName string    `gorm:"type:varchar(127);not null" json:"first_name"`
	LastName  string    `gorm:"type:varchar(127);not null" json:"last_name"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Telephone string    `gorm:"type:varchar(15)" json:"telephone"`

	Password string `gorm:"column:password_hash;not null" json:"-"`
	Role     Role   `gorm:"type:varchar(20);not null;index" json:"role"`

	IsVerified bool       `gorm:"not null;default:false" json:"is_verified"`
	Status     UserStatus `gorm:"type:varchar(20);not null;default:'offline'" json:"status"`
	LastSeen   *time.Time `json:"last_seen"`
	IsActive   bool       `gorm:"not null;default:true" json:"is_active"`

	// verification code sent by email, cleared once verified
	AuthCode       *string    `gorm:"type:varchar(6)" json:"-"`
	AuthCodeExpiry *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Developer *Developer `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"developer,omitempty"`
	Client    *Client    `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"client,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return
}

func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
