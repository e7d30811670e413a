package models

import (
	"time"
)

// Tournament status values. Transitions are monotonic:
// upcoming → in_progress → completed, never backward.
const (
	TournamentUpcoming   = "upcoming"
	TournamentInProgress = "in_progress"
	TournamentCompleted  = "completed"
)

// GenderAny (or an empty RequiredGender) means the tournament is open to all.
const GenderAny = "ANY"

// Tournament is the root entity of the lifecycle state machine.
// CurrentRound is 0 while upcoming, 1..MaxRounds while in progress, and
// frozen once completed. Completed tournaments are archived, never deleted.
type Tournament struct {
	ID          string `json:"id" gorm:"primaryKey"`
	AdminID     string `json:"admin_id" gorm:"not null;index"`
	Name        string `json:"name" gorm:"not null;uniqueIndex"`
	Description string `json:"description"`
	PosterURL   string `json:"poster_url,omitempty"`

	Status       string `json:"status" gorm:"not null;default:'upcoming';index"`
	CurrentRound int    `json:"current_round" gorm:"not null;default:0"`
	MaxRounds    int    `json:"max_rounds" gorm:"not null"`
	MaxPlayers   int    `json:"max_players" gorm:"not null"`

	// Eligibility constraints checked at sign-up. Nil bounds are open-ended;
	// RequiredGender "" or "ANY" imposes no gender restriction.
	MinRating      *int   `json:"min_rating,omitempty"`
	MaxRating      *int   `json:"max_rating,omitempty"`
	MinAge         *int   `json:"min_age,omitempty"`
	MaxAge         *int   `json:"max_age,omitempty"`
	RequiredGender string `json:"required_gender,omitempty"`

	// Zero-valued registration bounds leave that side of the window open.
	RegistrationStartAt time.Time `json:"registration_start_at"`
	RegistrationEndAt   time.Time `json:"registration_end_at"`

	StartTime   time.Time  `json:"start_time"`
	EndTime     time.Time  `json:"end_time"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Participants []TournamentPlayer `json:"participants,omitempty" gorm:"foreignKey:TournamentID"`

	// Calculated fields (not stored in DB)
	ParticipantsCount int64 `json:"participants_count,omitempty" gorm:"-"`
	AvailableSlots    int64 `json:"available_slots,omitempty" gorm:"-"`
}

// RegistrationOpen reports whether sign-ups are inside the schedule window.
func (t *Tournament) RegistrationOpen(now time.Time) bool {
	if !t.RegistrationStartAt.IsZero() && now.Before(t.RegistrationStartAt) {
		return false
	}
	if !t.RegistrationEndAt.IsZero() && now.After(t.RegistrationEndAt) {
		return false
	}
	return true
}

// TournamentPlayer is a player's registration in one tournament.
// Username/Email are denormalized from the player directory at sign-up time;
// Rating is the rating snapshot used for pairing, Points accumulate across
// rounds (a bye counts as a win).
type TournamentPlayer struct {
	ID           string `json:"id" gorm:"primaryKey"`
	TournamentID string `json:"tournament_id" gorm:"not null;uniqueIndex:idx_tournament_player"`
	PlayerID     string `json:"player_id" gorm:"not null;uniqueIndex:idx_tournament_player"`

	Username string `json:"username"`
	Email    string `json:"email,omitempty"`

	Rating int     `json:"rating"`
	Points float64 `json:"points" gorm:"not null;default:0"`

	SignedUpAt time.Time `json:"signed_up_at" gorm:"autoCreateTime"`
}
