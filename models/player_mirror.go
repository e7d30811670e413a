package models

import (
	"time"
)

// PlayerMirror is a local snapshot of player directory data, populated by the
// player sync worker. It backs admin listing/search endpoints only — the
// authoritative read for eligibility and moderation is always the live
// player-service call, never this cache.
type PlayerMirror struct {
	ID       string `json:"id" gorm:"primaryKey"`
	PlayerID string `json:"player_id" gorm:"uniqueIndex;not null"`
	Username string `json:"username" gorm:"index;not null"`
	Email    string `json:"email,omitempty"`

	Age         int    `json:"age"`
	Gender      string `json:"gender,omitempty"`
	Rating      int    `json:"rating"`
	Blacklisted bool   `json:"blacklisted" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at"`
}
