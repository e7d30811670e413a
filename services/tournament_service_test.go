package services

import (
	"context"
	"testing"
	"time"

	"chess-tournament-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTournamentFixture(t *testing.T, players ...*PlayerSummary) (*TournamentService, *fakeDirectory, *fakeMailer) {
	t.Helper()
	db := newTestDB(t)
	dir := newFakeDirectory(players...)
	mailer := &fakeMailer{}
	svc := NewTournamentService(db, dir, NewPairingService(), &OutboxDispatcher{Players: dir, Mailer: mailer})
	return svc, dir, mailer
}

func basicParams(name string, maxPlayers, maxRounds int) CreateTournamentParams {
	return CreateTournamentParams{
		Name:       name,
		MaxPlayers: maxPlayers,
		MaxRounds:  maxRounds,
		StartTime:  time.Now().Add(24 * time.Hour),
		EndTime:    time.Now().Add(48 * time.Hour),
	}
}

func somePlayers(n int) []*PlayerSummary {
	players := make([]*PlayerSummary, 0, n)
	for i := 0; i < n; i++ {
		players = append(players, &PlayerSummary{
			ID:       string(rune('a' + i)),
			Username: "player-" + string(rune('a'+i)),
			Email:    string(rune('a'+i)) + "@example.com",
			Age:      20 + i,
			Gender:   "MALE",
			Rating:   1500 + 100*i,
		})
	}
	return players
}

func TestFullLifecycle(t *testing.T) {
	players := somePlayers(3)
	svc, _, mailer := newTournamentFixture(t, players...)
	ctx := context.Background()

	tournament, err := svc.CreateTournament(ctx, admin, basicParams("Spring Open", 2, 3))
	require.NoError(t, err)
	assert.Equal(t, models.TournamentUpcoming, tournament.Status)
	assert.Equal(t, 0, tournament.CurrentRound)

	// p3 bounces off the 2-player capacity.
	_, err = svc.SignUp(ctx, tournament.ID, "a")
	require.NoError(t, err)
	_, err = svc.SignUp(ctx, tournament.ID, "b")
	require.NoError(t, err)
	_, err = svc.SignUp(ctx, tournament.ID, "c")
	assert.ErrorIs(t, err, ErrTournamentFull)

	assert.Len(t, mailer.signup, 2)

	// Start pairs round 1.
	tournament, err = svc.StartTournament(ctx, tournament.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentInProgress, tournament.Status)
	assert.Equal(t, 1, tournament.CurrentRound)

	matches, err := svc.Matches(tournament.ID, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "b", matches[0].WhiteID) // higher rating gets white
	assert.Equal(t, "a", matches[0].BlackID)

	// Sign-up after start is a state error, not a capacity error.
	_, err = svc.SignUp(ctx, tournament.ID, "c")
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	// Advance through the remaining rounds, then hit the cap.
	for round := 2; round <= 3; round++ {
		tournament, err = svc.AdvanceRound(ctx, tournament.ID, admin)
		require.NoError(t, err)
		assert.Equal(t, round, tournament.CurrentRound)
	}
	_, err = svc.AdvanceRound(ctx, tournament.ID, admin)
	assert.ErrorIs(t, err, ErrRoundLimitReached)

	tournament, err = svc.CompleteTournament(ctx, tournament.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentCompleted, tournament.Status)
	assert.Equal(t, 3, tournament.CurrentRound)
	require.NotNil(t, tournament.CompletedAt)

	// Completing twice fails, and the record stays completed.
	_, err = svc.CompleteTournament(ctx, tournament.ID, admin)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestStartRequiresUpcoming(t *testing.T) {
	svc, _, _ := newTournamentFixture(t, somePlayers(2)...)
	ctx := context.Background()

	tournament, err := svc.CreateTournament(ctx, admin, basicParams("Open", 4, 2))
	require.NoError(t, err)

	_, err = svc.StartTournament(ctx, tournament.ID, admin)
	require.NoError(t, err)

	// A second start must not reset the round counter.
	_, err = svc.StartTournament(ctx, tournament.ID, admin)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	current, err := svc.GetTournament(tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, current.CurrentRound)
}

func TestLifecycleRequiresOwningAdmin(t *testing.T) {
	svc, _, _ := newTournamentFixture(t)
	ctx := context.Background()

	tournament, err := svc.CreateTournament(ctx, admin, basicParams("Open", 4, 2))
	require.NoError(t, err)

	otherAdmin := Actor{ID: "admin-2", Role: RoleAdmin}
	player := Actor{ID: "p1", Role: RolePlayer}

	_, err = svc.StartTournament(ctx, tournament.ID, otherAdmin)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.StartTournament(ctx, tournament.ID, player)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.CreateTournament(ctx, player, basicParams("Player Cup", 4, 2))
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCompleteBeforeMaxRoundsIsAllowed(t *testing.T) {
	svc, _, _ := newTournamentFixture(t)
	ctx := context.Background()

	tournament, err := svc.CreateTournament(ctx, admin, basicParams("Open", 4, 7))
	require.NoError(t, err)
	_, err = svc.StartTournament(ctx, tournament.ID, admin)
	require.NoError(t, err)

	tournament, err = svc.CompleteTournament(ctx, tournament.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentCompleted, tournament.Status)
	assert.Equal(t, 1, tournament.CurrentRound)
}

func TestCreateDuplicateName(t *testing.T) {
	svc, _, _ := newTournamentFixture(t)
	ctx := context.Background()

	_, err := svc.CreateTournament(ctx, admin, basicParams("Spring Open", 4, 2))
	require.NoError(t, err)

	_, err = svc.CreateTournament(ctx, admin, basicParams("Spring Open", 8, 5))
	assert.ErrorIs(t, err, ErrTournamentNameTaken)
}

func TestCreateRejectsInvalidConfig(t *testing.T) {
	svc, _, _ := newTournamentFixture(t)
	ctx := context.Background()

	_, err := svc.CreateTournament(ctx, admin, basicParams("", 4, 2))
	assert.ErrorIs(t, err, ErrInvalidTournamentConfig)
	_, err = svc.CreateTournament(ctx, admin, basicParams("Solo", 1, 2))
	assert.ErrorIs(t, err, ErrInvalidTournamentConfig)
	_, err = svc.CreateTournament(ctx, admin, basicParams("No Rounds", 4, 0))
	assert.ErrorIs(t, err, ErrInvalidTournamentConfig)
}

func TestSignUpValidation(t *testing.T) {
	svc, _, _ := newTournamentFixture(t,
		&PlayerSummary{ID: "weak", Username: "weak", Rating: 1200, Age: 25, Gender: "MALE"},
		&PlayerSummary{ID: "young", Username: "young", Rating: 2000, Age: 12, Gender: "MALE"},
		&PlayerSummary{ID: "banned", Username: "banned", Rating: 2000, Age: 25, Gender: "MALE", Blacklisted: true},
		&PlayerSummary{ID: "ok", Username: "ok", Rating: 2000, Age: 25, Gender: "MALE"},
		&PlayerSummary{ID: "woman", Username: "woman", Rating: 2000, Age: 25, Gender: "FEMALE"},
	)
	ctx := context.Background()

	params := basicParams("Restricted Open", 8, 3)
	params.MinRating = intPtr(1500)
	params.MinAge = intPtr(16)
	params.RequiredGender = "MALE"
	tournament, err := svc.CreateTournament(ctx, admin, params)
	require.NoError(t, err)

	_, err = svc.SignUp(ctx, tournament.ID, "weak")
	assert.ErrorIs(t, err, ErrPlayerIneligible)
	_, err = svc.SignUp(ctx, tournament.ID, "young")
	assert.ErrorIs(t, err, ErrPlayerIneligible)
	_, err = svc.SignUp(ctx, tournament.ID, "woman")
	assert.ErrorIs(t, err, ErrPlayerIneligible)
	_, err = svc.SignUp(ctx, tournament.ID, "banned")
	assert.ErrorIs(t, err, ErrPlayerBlacklisted)
	_, err = svc.SignUp(ctx, tournament.ID, "ghost")
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	participant, err := svc.SignUp(ctx, tournament.ID, "ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", participant.Username)
	assert.Equal(t, 2000, participant.Rating)

	_, err = svc.SignUp(ctx, tournament.ID, "ok")
	assert.ErrorIs(t, err, ErrAlreadySignedUp)
}

func TestSignUpRegistrationWindow(t *testing.T) {
	svc, _, _ := newTournamentFixture(t, somePlayers(1)...)
	ctx := context.Background()

	params := basicParams("Closed Open", 8, 3)
	params.RegistrationStartAt = time.Now().Add(-48 * time.Hour)
	params.RegistrationEndAt = time.Now().Add(-24 * time.Hour)
	tournament, err := svc.CreateTournament(ctx, admin, params)
	require.NoError(t, err)

	_, err = svc.SignUp(ctx, tournament.ID, "a")
	assert.ErrorIs(t, err, ErrRegistrationClosed)
}

func TestWithdraw(t *testing.T) {
	svc, _, _ := newTournamentFixture(t, somePlayers(2)...)
	ctx := context.Background()

	tournament, err := svc.CreateTournament(ctx, admin, basicParams("Open", 4, 2))
	require.NoError(t, err)

	_, err = svc.SignUp(ctx, tournament.ID, "a")
	require.NoError(t, err)

	// Withdrawing someone not signed up fails.
	assert.ErrorIs(t, svc.Withdraw(ctx, tournament.ID, "b"), ErrNotSignedUp)

	require.NoError(t, svc.Withdraw(ctx, tournament.ID, "a"))

	// The slot is free again.
	_, err = svc.SignUp(ctx, tournament.ID, "a")
	require.NoError(t, err)

	// No withdrawal once the tournament is running.
	_, err = svc.StartTournament(ctx, tournament.ID, admin)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Withdraw(ctx, tournament.ID, "a"), ErrInvalidStateTransition)
}

func TestRemovePlayer(t *testing.T) {
	svc, _, _ := newTournamentFixture(t, somePlayers(2)...)
	ctx := context.Background()

	tournament, err := svc.CreateTournament(ctx, admin, basicParams("Open", 4, 2))
	require.NoError(t, err)
	_, err = svc.SignUp(ctx, tournament.ID, "a")
	require.NoError(t, err)
	_, err = svc.SignUp(ctx, tournament.ID, "b")
	require.NoError(t, err)

	// The admin kick works while in progress, unlike self-withdrawal.
	_, err = svc.StartTournament(ctx, tournament.ID, admin)
	require.NoError(t, err)
	require.NoError(t, svc.RemovePlayer(ctx, tournament.ID, "a", admin))

	_, err = svc.CompleteTournament(ctx, tournament.ID, admin)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.RemovePlayer(ctx, tournament.ID, "b", admin), ErrInvalidStateTransition)
}

func TestGetTournamentCounts(t *testing.T) {
	svc, _, _ := newTournamentFixture(t, somePlayers(3)...)
	ctx := context.Background()

	tournament, err := svc.CreateTournament(ctx, admin, basicParams("Open", 8, 2))
	require.NoError(t, err)
	for _, id := range []string{"a", "b", "c"} {
		_, err = svc.SignUp(ctx, tournament.ID, id)
		require.NoError(t, err)
	}

	loaded, err := svc.GetTournament(tournament.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, loaded.ParticipantsCount)
	assert.EqualValues(t, 5, loaded.AvailableSlots)
	assert.Len(t, loaded.Participants, 3)

	_, err = svc.GetTournament("missing")
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}
