package models

import (
	"time"
)

// Outbox task kinds. Each maps to exactly one collaborator call.
const (
	TaskSetBlacklisted   = "set_blacklisted"
	TaskClearBlacklisted = "clear_blacklisted"
	TaskBanEmail         = "ban_email"
	TaskUnbanEmail       = "unban_email"
	TaskSignUpEmail      = "signup_email"
)

// Outbox task statuses.
const (
	TaskPending = "pending"
	TaskDone    = "done"
	TaskDead    = "dead"
)

// OutboxTask is a queued collaborator call. Tasks are created in the same
// transaction as the state change that requires them, so a committed ban or
// sign-up always has its side effects recorded even if delivery fails.
// Delivery is at-least-once: the outbox worker retries with backoff until the
// task succeeds or hits the attempt cap and is marked dead.
type OutboxTask struct {
	ID       string `json:"id" gorm:"primaryKey"`
	Kind     string `json:"kind" gorm:"not null;index"`
	PlayerID string `json:"player_id" gorm:"not null;index"`

	Reason           string `json:"reason,omitempty"`
	BanDurationHours *int   `json:"ban_duration_hours,omitempty"`
	TournamentName   string `json:"tournament_name,omitempty"`

	Status        string    `json:"status" gorm:"not null;default:'pending';index"`
	Attempts      int       `json:"attempts" gorm:"not null;default:0"`
	NextAttemptAt time.Time `json:"next_attempt_at" gorm:"index"`
	LastError     string    `json:"last_error,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
