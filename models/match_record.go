package models

import (
	"time"

	"gorm.io/gorm"
)

// MatchRecord is the durable summary of a finished match.
type MatchRecord struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Code      string         `json:"code" gorm:"index;not null;size:16"`
	Mode      string         `json:"mode" gorm:"not null;size:20"`
	Range     string         `json:"range" gorm:"not null;size:32"`
	Duration  int            `json:"duration"`
	HostID    string         `json:"host_id" gorm:"index;size:64"`
	TeamMode  bool           `json:"team_mode"`
	StartedAt *time.Time     `json:"started_at"`
	EndedAt   *time.Time     `json:"ended_at"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Results []MatchResult `json:"results,omitempty" gorm:"foreignKey:MatchRecordID"`
}

type MatchResult struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	MatchRecordID uint      `json:"match_record_id" gorm:"not null;index"`
	PlayerID      string    `json:"player_id" gorm:"not null;index;size:64"`
	Name          string    `json:"name" gorm:"not null"`
	Team          string    `json:"team" gorm:"size:8"`
	Score         int       `json:"score" gorm:"not null;default:0"`
	Placement     int       `json:"placement" gorm:"not null"`
	IsAnonymous   bool      `json:"is_anonymous"`
	CreatedAt     time.Time `json:"created_at"`
}
