package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID            string         `json:"id" gorm:"primaryKey;size:64"`
	Email         *string        `json:"email,omitempty" gorm:"uniqueIndex"`
	PasswordHash  string         `json:"-"`
	GoogleID      *string        `json:"-" gorm:"uniqueIndex"`
	DisplayName   string         `json:"display_name"`
	Username      string         `json:"username"`
	PhotoURL      string         `json:"photo_url"`
	ProviderPhoto string         `json:"-"`
	IsAnonymous   bool           `json:"is_anonymous" gorm:"not null;default:false;index"`
	TotalScore    int            `json:"total_score" gorm:"not null;default:0"`
	GamesPlayed   int            `json:"games_played" gorm:"not null;default:0"`
	LastPlayed    *time.Time     `json:"last_played"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

// Username is a global reservation of a lowercase name by a registered user.
type Username struct {
	Name      string    `json:"name" gorm:"primaryKey;size:64"`
	UserID    string    `json:"user_id" gorm:"not null;index;size:64"`
	CreatedAt time.Time `json:"created_at"`
}
