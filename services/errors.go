package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Precondition violations are surfaced to the caller and never retried
// automatically — they mean the caller acted on a stale view. Collaborator
// failures never abort a committed state change; they land in the outbox.
var (
	// Moderation
	ErrAlreadyBanned      = errors.New("player is already blacklisted")
	ErrNotBanned          = errors.New("player is not blacklisted")
	ErrInvalidBanDuration = errors.New("ban duration must be a positive number of hours")

	// Tournament lifecycle
	ErrTournamentNotFound      = errors.New("tournament not found")
	ErrInvalidTournamentConfig = errors.New("invalid tournament configuration")
	ErrTournamentNameTaken     = errors.New("a tournament with this name already exists")
	ErrInvalidStateTransition  = errors.New("operation not allowed in the tournament's current status")
	ErrRoundLimitReached       = errors.New("tournament has reached its maximum number of rounds")
	ErrRegistrationClosed      = errors.New("registration for this tournament is not open")
	ErrAlreadySignedUp         = errors.New("player is already signed up for this tournament")
	ErrNotSignedUp             = errors.New("player is not signed up for this tournament")
	ErrTournamentFull          = errors.New("tournament is full")
	ErrPlayerBlacklisted       = errors.New("player is blacklisted from participating in tournaments")
	ErrPlayerIneligible        = errors.New("player does not meet the tournament requirements")

	// Shared
	ErrPlayerNotFound          = errors.New("player not found")
	ErrUnauthorized            = errors.New("actor is not allowed to perform this action")
	ErrCollaboratorUnavailable = errors.New("collaborator service unavailable")
)

// isDuplicate detects unique-constraint violations across the postgres
// driver (translated) and the sqlite test driver.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
