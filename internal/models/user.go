package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the account identity owned by the auth provider. Findr only reads
// it to decorate profiles and matches.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Name      *string   `json:"name"`
	Username  *string   `json:"username" gorm:"uniqueIndex"`
	House     *string   `json:"house"`
	Image     *string   `json:"image"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserSummary is the public slice of a User shown next to profiles.
type UserSummary struct {
	ID       string  `json:"id"`
	Name     *string `json:"name"`
	Username *string `json:"username"`
	House    *string `json:"house"`
	Image    *string `json:"image"`
}

func (u User) Summary() UserSummary {
	return UserSummary{
		ID:       u.ID,
		Name:     u.Name,
		Username: u.Username,
		House:    u.House,
		Image:    u.Image,
	}
}

type DeviceToken struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"user_id" gorm:"type:varchar(64);not null;index"`
	Token     string    `json:"token" gorm:"uniqueIndex;not null"`
	Platform  string    `json:"platform" gorm:"type:varchar(16);not null"` // ios, android, web
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d *DeviceToken) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
