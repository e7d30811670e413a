package models

import (
	"time"
)

// BanRecord is one blacklist entry for a player. Records are never deleted —
// lifting a ban (manually or via the expiry sweep) flips IsActive off and
// stamps the unban fields, so the full moderation history stays queryable.
type BanRecord struct {
	ID       string `json:"id" gorm:"primaryKey"`
	PlayerID string `json:"player_id" gorm:"not null;index"`
	AdminID  string `json:"admin_id" gorm:"not null"`
	Reason   string `json:"reason"`

	// BanDurationHours is nil for a permanent ban. ExpiresAt is derived from
	// it at creation time and stays nil for permanent bans.
	BanDurationHours *int       `json:"ban_duration_hours,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty" gorm:"index"`

	// At most one active record may exist per player; enforced by a partial
	// unique index on (player_id) WHERE is_active, see Migrate.
	IsActive bool `json:"is_active" gorm:"not null;default:false"`

	UnbannedAt  *time.Time `json:"unbanned_at,omitempty"`
	UnbannedBy  string     `json:"unbanned_by,omitempty"`
	UnbanReason string     `json:"unban_reason,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Expired reports whether a temporary ban has run out as of now.
// Permanent bans never expire.
func (b *BanRecord) Expired(now time.Time) bool {
	return b.BanDurationHours != nil && b.ExpiresAt != nil && !now.Before(*b.ExpiresAt)
}
