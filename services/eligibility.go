package services

import (
	"fmt"
	"strings"

	"chess-tournament-system/models"
)

// CheckEligibility validates a player against a tournament's sign-up
// constraints. Blacklisted players are rejected outright; the remaining
// checks mirror the tournament's rating/age/gender gates.
func CheckEligibility(p *PlayerSummary, t *models.Tournament) error {
	if p.Blacklisted {
		return ErrPlayerBlacklisted
	}
	if t.MinRating != nil && p.Rating < *t.MinRating {
		return fmt.Errorf("%w: rating %d below minimum %d", ErrPlayerIneligible, p.Rating, *t.MinRating)
	}
	if t.MaxRating != nil && p.Rating > *t.MaxRating {
		return fmt.Errorf("%w: rating %d above maximum %d", ErrPlayerIneligible, p.Rating, *t.MaxRating)
	}
	if t.MinAge != nil && p.Age < *t.MinAge {
		return fmt.Errorf("%w: below minimum age %d", ErrPlayerIneligible, *t.MinAge)
	}
	if t.MaxAge != nil && p.Age > *t.MaxAge {
		return fmt.Errorf("%w: above maximum age %d", ErrPlayerIneligible, *t.MaxAge)
	}
	if t.RequiredGender != "" && !strings.EqualFold(t.RequiredGender, models.GenderAny) &&
		!strings.EqualFold(t.RequiredGender, p.Gender) {
		return fmt.Errorf("%w: gender requirement not met", ErrPlayerIneligible)
	}
	return nil
}
