package models

import (
	"time"
)

// Match status values.
const (
	MatchScheduled = "scheduled"
	MatchCompleted = "completed"
)

// Match is one pairing inside a tournament round. A bye is stored as a
// completed single-player match (BlackID empty, Bye true) so the round's
// history stays complete.
type Match struct {
	ID           string `json:"id" gorm:"primaryKey"`
	TournamentID string `json:"tournament_id" gorm:"not null;index"`
	RoundNumber  int    `json:"round_number" gorm:"not null;index"`

	WhiteID   string `json:"white_id" gorm:"not null"`
	WhiteName string `json:"white_name"`
	BlackID   string `json:"black_id,omitempty"`
	BlackName string `json:"black_name,omitempty"`

	Status string `json:"status" gorm:"not null;default:'scheduled'"`
	Bye    bool   `json:"bye" gorm:"not null;default:false"`

	ScheduledAt time.Time `json:"scheduled_at"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
