package services

import (
	"sort"
	"time"

	"chess-tournament-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MatchGenerator produces the matches for one round. The lifecycle service
// treats it as a collaborator; the default implementation is the local Swiss
// pairer below.
type MatchGenerator interface {
	GeneratePairings(tx *gorm.DB, tournament *models.Tournament, round int) ([]models.Match, error)
}

// PairingService implements Swiss-system pairing: participants are ranked by
// accumulated points, then rating, and adjacent players are paired. An odd
// participant count gives the lowest-ranked player a bye, which scores as a
// win.
type PairingService struct{}

func NewPairingService() *PairingService {
	return &PairingService{}
}

func (p *PairingService) GeneratePairings(tx *gorm.DB, tournament *models.Tournament, round int) ([]models.Match, error) {
	var players []models.TournamentPlayer
	if err := tx.Where("tournament_id = ?", tournament.ID).Find(&players).Error; err != nil {
		return nil, err
	}

	sort.SliceStable(players, func(i, j int) bool {
		if players[i].Points != players[j].Points {
			return players[i].Points > players[j].Points
		}
		return players[i].Rating > players[j].Rating
	})

	scheduledAt := time.Now().Add(24 * time.Hour)
	var matches []models.Match

	for i := 0; i+1 < len(players); i += 2 {
		white, black := players[i], players[i+1]
		matches = append(matches, models.Match{
			ID:           uuid.NewString(),
			TournamentID: tournament.ID,
			RoundNumber:  round,
			WhiteID:      white.PlayerID,
			WhiteName:    white.Username,
			BlackID:      black.PlayerID,
			BlackName:    black.Username,
			Status:       models.MatchScheduled,
			ScheduledAt:  scheduledAt,
		})
	}

	if len(players)%2 != 0 {
		bye := players[len(players)-1]
		matches = append(matches, models.Match{
			ID:           uuid.NewString(),
			TournamentID: tournament.ID,
			RoundNumber:  round,
			WhiteID:      bye.PlayerID,
			WhiteName:    bye.Username,
			Status:       models.MatchCompleted,
			Bye:          true,
			ScheduledAt:  scheduledAt,
		})
		// A bye scores as a win.
		if err := tx.Model(&models.TournamentPlayer{}).
			Where("id = ?", bye.ID).
			Update("points", gorm.Expr("points + 1")).Error; err != nil {
			return nil, err
		}
	}

	if len(matches) > 0 {
		if err := tx.Create(&matches).Error; err != nil {
			return nil, err
		}
	}
	return matches, nil
}
