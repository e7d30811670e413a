package services

import (
	"testing"

	"chess-tournament-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedPairingTournament(t *testing.T, db *gorm.DB, entries ...models.TournamentPlayer) *models.Tournament {
	t.Helper()
	tournament := &models.Tournament{
		ID:         uuid.NewString(),
		AdminID:    "admin-1",
		Name:       "Pairing Test " + uuid.NewString(),
		Status:     models.TournamentInProgress,
		MaxRounds:  5,
		MaxPlayers: 16,
	}
	require.NoError(t, db.Create(tournament).Error)
	for i := range entries {
		entries[i].ID = uuid.NewString()
		entries[i].TournamentID = tournament.ID
	}
	require.NoError(t, db.Create(&entries).Error)
	return tournament
}

func TestGeneratePairingsByStandings(t *testing.T) {
	db := newTestDB(t)
	tournament := seedPairingTournament(t, db,
		models.TournamentPlayer{PlayerID: "p1", Username: "p1", Rating: 1500, Points: 2},
		models.TournamentPlayer{PlayerID: "p2", Username: "p2", Rating: 1800, Points: 2},
		models.TournamentPlayer{PlayerID: "p3", Username: "p3", Rating: 2100, Points: 1},
		models.TournamentPlayer{PlayerID: "p4", Username: "p4", Rating: 1600, Points: 0},
	)

	matches, err := NewPairingService().GeneratePairings(db, tournament, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	// Points first, rating breaks ties: p2 vs p1, then p3 vs p4.
	assert.Equal(t, "p2", matches[0].WhiteID)
	assert.Equal(t, "p1", matches[0].BlackID)
	assert.Equal(t, "p3", matches[1].WhiteID)
	assert.Equal(t, "p4", matches[1].BlackID)

	for _, m := range matches {
		assert.Equal(t, 2, m.RoundNumber)
		assert.Equal(t, models.MatchScheduled, m.Status)
		assert.False(t, m.Bye)
	}
}

func TestGeneratePairingsOddCountGivesBye(t *testing.T) {
	db := newTestDB(t)
	tournament := seedPairingTournament(t, db,
		models.TournamentPlayer{PlayerID: "p1", Username: "p1", Rating: 2000, Points: 1},
		models.TournamentPlayer{PlayerID: "p2", Username: "p2", Rating: 1900, Points: 1},
		models.TournamentPlayer{PlayerID: "p3", Username: "p3", Rating: 1400, Points: 0},
	)

	matches, err := NewPairingService().GeneratePairings(db, tournament, 1)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	bye := matches[1]
	assert.True(t, bye.Bye)
	assert.Equal(t, "p3", bye.WhiteID)
	assert.Empty(t, bye.BlackID)
	assert.Equal(t, models.MatchCompleted, bye.Status)

	// The bye scores as a win.
	var p3 models.TournamentPlayer
	require.NoError(t, db.Where("player_id = ?", "p3").First(&p3).Error)
	assert.EqualValues(t, 1, p3.Points)
}

func TestGeneratePairingsEmptyTournament(t *testing.T) {
	db := newTestDB(t)
	tournament := &models.Tournament{
		ID:         uuid.NewString(),
		AdminID:    "admin-1",
		Name:       "Empty",
		Status:     models.TournamentInProgress,
		MaxRounds:  3,
		MaxPlayers: 8,
	}
	require.NoError(t, db.Create(tournament).Error)

	matches, err := NewPairingService().GeneratePairings(db, tournament, 1)
	require.NoError(t, err)
	assert.Empty(t, matches)
}
