package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"time"

	"chess-tournament-system/models"
	"chess-tournament-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TournamentService enforces the tournament state machine:
// upcoming → in_progress → completed, with a round counter that only moves
// forward while in progress. Every mutation runs under a row lock on the
// tournament so concurrent sign-ups and transitions serialize per entity.
type TournamentService struct {
	DB         *gorm.DB
	Players    PlayerDirectory
	Pairer     MatchGenerator
	Dispatcher *OutboxDispatcher
}

func NewTournamentService(db *gorm.DB, players PlayerDirectory, pairer MatchGenerator, dispatcher *OutboxDispatcher) *TournamentService {
	return &TournamentService{DB: db, Players: players, Pairer: pairer, Dispatcher: dispatcher}
}

// CreateTournamentParams carries the validated create payload.
type CreateTournamentParams struct {
	Name        string
	Description string
	MaxPlayers  int
	MaxRounds   int

	MinRating      *int
	MaxRating      *int
	MinAge         *int
	MaxAge         *int
	RequiredGender string

	RegistrationStartAt time.Time
	RegistrationEndAt   time.Time
	StartTime           time.Time
	EndTime             time.Time

	PosterURL string
}

// CreateTournament registers a new tournament in upcoming state, round 0.
func (s *TournamentService) CreateTournament(ctx context.Context, actor Actor, params CreateTournamentParams) (*models.Tournament, error) {
	if !actor.IsAdmin() {
		return nil, ErrUnauthorized
	}
	if params.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidTournamentConfig)
	}
	if params.MaxPlayers < 2 {
		return nil, fmt.Errorf("%w: at least 2 players are required", ErrInvalidTournamentConfig)
	}
	if params.MaxRounds < 1 {
		return nil, fmt.Errorf("%w: max_rounds must be at least 1", ErrInvalidTournamentConfig)
	}

	tournament := &models.Tournament{
		ID:                  uuid.NewString(),
		AdminID:             actor.ID,
		Name:                params.Name,
		Description:         params.Description,
		PosterURL:           params.PosterURL,
		Status:              models.TournamentUpcoming,
		CurrentRound:        0,
		MaxRounds:           params.MaxRounds,
		MaxPlayers:          params.MaxPlayers,
		MinRating:           params.MinRating,
		MaxRating:           params.MaxRating,
		MinAge:              params.MinAge,
		MaxAge:              params.MaxAge,
		RequiredGender:      params.RequiredGender,
		RegistrationStartAt: params.RegistrationStartAt,
		RegistrationEndAt:   params.RegistrationEndAt,
		StartTime:           params.StartTime,
		EndTime:             params.EndTime,
	}

	if err := s.DB.Create(tournament).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrTournamentNameTaken
		}
		return nil, err
	}
	log.Printf("[TOURNAMENT] %q created by %s (%d players, %d rounds)",
		tournament.Name, actor.ID, tournament.MaxPlayers, tournament.MaxRounds)
	return tournament, nil
}

// StartTournament moves an upcoming tournament to in_progress at round 1 and
// generates the first-round pairings in the same transaction — either the
// whole transition commits or nothing does.
func (s *TournamentService) StartTournament(ctx context.Context, id string, actor Actor) (*models.Tournament, error) {
	var tournament models.Tournament
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.lockTournament(tx, id, &tournament); err != nil {
			return err
		}
		if err := s.requireOwner(&tournament, actor); err != nil {
			return err
		}
		if tournament.Status != models.TournamentUpcoming {
			return ErrInvalidStateTransition
		}

		tournament.Status = models.TournamentInProgress
		tournament.CurrentRound = 1
		if err := tx.Save(&tournament).Error; err != nil {
			return err
		}
		_, err := s.Pairer.GeneratePairings(tx, &tournament, 1)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[TOURNAMENT] %q started by %s", tournament.Name, actor.ID)
	return &tournament, nil
}

// AdvanceRound increments the round counter and pairs the next round.
func (s *TournamentService) AdvanceRound(ctx context.Context, id string, actor Actor) (*models.Tournament, error) {
	var tournament models.Tournament
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.lockTournament(tx, id, &tournament); err != nil {
			return err
		}
		if err := s.requireOwner(&tournament, actor); err != nil {
			return err
		}
		if tournament.Status != models.TournamentInProgress {
			return ErrInvalidStateTransition
		}
		if tournament.CurrentRound >= tournament.MaxRounds {
			return ErrRoundLimitReached
		}

		tournament.CurrentRound++
		if err := tx.Save(&tournament).Error; err != nil {
			return err
		}
		_, err := s.Pairer.GeneratePairings(tx, &tournament, tournament.CurrentRound)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[TOURNAMENT] %q advanced to round %d/%d", tournament.Name, tournament.CurrentRound, tournament.MaxRounds)
	return &tournament, nil
}

// CompleteTournament finishes an in-progress tournament. The admin may end
// early — reaching MaxRounds is not required. Completing twice fails.
func (s *TournamentService) CompleteTournament(ctx context.Context, id string, actor Actor) (*models.Tournament, error) {
	var tournament models.Tournament
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.lockTournament(tx, id, &tournament); err != nil {
			return err
		}
		if err := s.requireOwner(&tournament, actor); err != nil {
			return err
		}
		if tournament.Status != models.TournamentInProgress {
			return ErrInvalidStateTransition
		}

		now := time.Now()
		tournament.Status = models.TournamentCompleted
		tournament.CompletedAt = &now
		return tx.Save(&tournament).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[TOURNAMENT] %q completed at round %d", tournament.Name, tournament.CurrentRound)
	return &tournament, nil
}

// SignUp registers a player into an upcoming tournament after capacity and
// eligibility checks. The live player summary is authoritative here — the
// local mirror is never consulted for eligibility.
func (s *TournamentService) SignUp(ctx context.Context, id, playerID string) (*models.TournamentPlayer, error) {
	summary, err := s.Players.GetPlayerSummary(ctx, playerID)
	if err != nil {
		return nil, err
	}

	participant := &models.TournamentPlayer{
		ID:       uuid.NewString(),
		PlayerID: playerID,
		Username: summary.Username,
		Email:    summary.Email,
		Rating:   summary.Rating,
	}
	task := newTask(models.TaskSignUpEmail, playerID)

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var tournament models.Tournament
		if err := s.lockTournament(tx, id, &tournament); err != nil {
			return err
		}
		if tournament.Status != models.TournamentUpcoming {
			return ErrInvalidStateTransition
		}
		if !tournament.RegistrationOpen(time.Now()) {
			return ErrRegistrationClosed
		}
		if err := CheckEligibility(summary, &tournament); err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&models.TournamentPlayer{}).
			Where("tournament_id = ? AND player_id = ?", id, playerID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadySignedUp
		}

		var count int64
		if err := tx.Model(&models.TournamentPlayer{}).
			Where("tournament_id = ?", id).
			Count(&count).Error; err != nil {
			return err
		}
		if count >= int64(tournament.MaxPlayers) {
			return ErrTournamentFull
		}

		participant.TournamentID = id
		task.TournamentName = tournament.Name
		if err := tx.Create(participant).Error; err != nil {
			if isDuplicate(err) {
				return ErrAlreadySignedUp
			}
			return err
		}
		return tx.Create(&task).Error
	})
	if err != nil {
		return nil, err
	}

	if s.Dispatcher != nil {
		s.Dispatcher.DeliverNow(ctx, s.DB, []models.OutboxTask{task})
	}
	return participant, nil
}

// Withdraw removes a player's own registration. Withdrawal after the
// tournament has started is not supported.
func (s *TournamentService) Withdraw(ctx context.Context, id, playerID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var tournament models.Tournament
		if err := s.lockTournament(tx, id, &tournament); err != nil {
			return err
		}
		if tournament.Status != models.TournamentUpcoming {
			return ErrInvalidStateTransition
		}
		return s.deleteParticipant(tx, id, playerID)
	})
}

// RemovePlayer is the admin kick. Allowed until the tournament completes.
func (s *TournamentService) RemovePlayer(ctx context.Context, id, playerID string, actor Actor) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var tournament models.Tournament
		if err := s.lockTournament(tx, id, &tournament); err != nil {
			return err
		}
		if err := s.requireOwner(&tournament, actor); err != nil {
			return err
		}
		if tournament.Status == models.TournamentCompleted {
			return ErrInvalidStateTransition
		}
		return s.deleteParticipant(tx, id, playerID)
	})
}

// GetTournament returns a tournament with its participants and the
// calculated slot counts.
func (s *TournamentService) GetTournament(id string) (*models.Tournament, error) {
	var tournament models.Tournament
	err := s.DB.Preload("Participants", func(db *gorm.DB) *gorm.DB {
		return db.Order("points DESC, rating DESC")
	}).First(&tournament, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTournamentNotFound
	}
	if err != nil {
		return nil, err
	}

	tournament.ParticipantsCount = int64(len(tournament.Participants))
	tournament.AvailableSlots = int64(tournament.MaxPlayers) - tournament.ParticipantsCount
	return &tournament, nil
}

// Matches returns a tournament's matches, optionally filtered by round.
func (s *TournamentService) Matches(id string, round int) ([]models.Match, error) {
	query := s.DB.Where("tournament_id = ?", id)
	if round > 0 {
		query = query.Where("round_number = ?", round)
	}
	var matches []models.Match
	err := query.Order("round_number ASC, created_at ASC").Find(&matches).Error
	return matches, err
}

func (s *TournamentService) lockTournament(tx *gorm.DB, id string, out *models.Tournament) error {
	err := lockForUpdate(tx).First(out, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrTournamentNotFound
	}
	return err
}

func (s *TournamentService) requireOwner(t *models.Tournament, actor Actor) error {
	if actor.Role == RoleSystem {
		return nil
	}
	if actor.Role != RoleAdmin || t.AdminID != actor.ID {
		return ErrUnauthorized
	}
	return nil
}

func (s *TournamentService) deleteParticipant(tx *gorm.DB, tournamentID, playerID string) error {
	result := tx.Where("tournament_id = ? AND player_id = ?", tournamentID, playerID).
		Delete(&models.TournamentPlayer{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotSignedUp
	}
	return nil
}

// --- Fiber endpoints ---

// CreateTournamentEndpoint handles POST /tournaments (multipart form with an
// optional poster image).
func (s *TournamentService) CreateTournamentEndpoint(c *fiber.Ctx) error {
	actor := ActorFromCtx(c)

	params := CreateTournamentParams{
		Name:           c.FormValue("name"),
		Description:    c.FormValue("description"),
		RequiredGender: c.FormValue("required_gender"),
	}

	var err error
	if params.MaxPlayers, err = strconv.Atoi(c.FormValue("max_players")); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "max_players must be an integer"})
	}
	if params.MaxRounds, err = strconv.Atoi(c.FormValue("max_rounds")); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "max_rounds must be an integer"})
	}

	for field, dst := range map[string]**int{
		"min_rating": &params.MinRating,
		"max_rating": &params.MaxRating,
		"min_age":    &params.MinAge,
		"max_age":    &params.MaxAge,
	} {
		if v := c.FormValue(field); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return c.Status(400).JSON(fiber.Map{"error": field + " must be an integer"})
			}
			*dst = &n
		}
	}

	for field, dst := range map[string]*time.Time{
		"registration_start_at": &params.RegistrationStartAt,
		"registration_end_at":   &params.RegistrationEndAt,
		"start_time":            &params.StartTime,
		"end_time":              &params.EndTime,
	} {
		if v := c.FormValue(field); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return c.Status(400).JSON(fiber.Map{"error": "invalid " + field + " (use RFC3339)"})
			}
			*dst = t
		}
	}

	if poster, err := c.FormFile("poster"); err == nil && poster.Size > 0 {
		ext := filepath.Ext(poster.Filename)
		if ext == "" {
			ext = ".jpg"
		}
		url, err := utils.UploadPoster(poster, params.Name, ext)
		if err != nil {
			log.Printf("[TOURNAMENT] poster upload failed: %v", err)
			return c.Status(500).JSON(fiber.Map{"error": "failed to upload poster"})
		}
		params.PosterURL = url
	}

	tournament, err := s.CreateTournament(c.Context(), actor, params)
	if err != nil {
		return s.tournamentError(c, err, "")
	}
	return c.Status(201).JSON(tournament)
}

// GetTournamentByID handles GET /tournaments/:id.
func (s *TournamentService) GetTournamentByID(c *fiber.Ctx) error {
	tournament, err := s.GetTournament(c.Params("id"))
	if err != nil {
		return s.tournamentError(c, err, "")
	}
	return c.JSON(tournament)
}

// GetAllTournaments handles GET /tournaments.
func (s *TournamentService) GetAllTournaments(c *fiber.Ctx) error {
	var tournaments []models.Tournament
	if err := s.DB.Order("start_time ASC").Find(&tournaments).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch tournaments"})
	}
	return c.JSON(tournaments)
}

// GetUpcomingTournaments handles GET /tournaments/upcoming (public).
func (s *TournamentService) GetUpcomingTournaments(c *fiber.Ctx) error {
	var tournaments []models.Tournament
	err := s.DB.Where("status = ? AND start_time > ?", models.TournamentUpcoming, time.Now()).
		Order("start_time ASC").
		Find(&tournaments).Error
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch tournaments"})
	}
	return c.JSON(tournaments)
}

// StartTournamentEndpoint handles POST /tournaments/:id/start.
func (s *TournamentService) StartTournamentEndpoint(c *fiber.Ctx) error {
	id := c.Params("id")
	tournament, err := s.StartTournament(c.Context(), id, ActorFromCtx(c))
	if err != nil {
		return s.tournamentError(c, err, id)
	}
	return c.JSON(tournament)
}

// AdvanceRoundEndpoint handles POST /tournaments/:id/next-round.
func (s *TournamentService) AdvanceRoundEndpoint(c *fiber.Ctx) error {
	id := c.Params("id")
	tournament, err := s.AdvanceRound(c.Context(), id, ActorFromCtx(c))
	if err != nil {
		return s.tournamentError(c, err, id)
	}
	return c.JSON(tournament)
}

// CompleteTournamentEndpoint handles POST /tournaments/:id/complete.
func (s *TournamentService) CompleteTournamentEndpoint(c *fiber.Ctx) error {
	id := c.Params("id")
	tournament, err := s.CompleteTournament(c.Context(), id, ActorFromCtx(c))
	if err != nil {
		return s.tournamentError(c, err, id)
	}
	return c.JSON(tournament)
}

// SignUpEndpoint handles POST /tournaments/:id/signup. Players sign
// themselves up; the actor identity is the player.
func (s *TournamentService) SignUpEndpoint(c *fiber.Ctx) error {
	id := c.Params("id")
	actor := ActorFromCtx(c)

	participant, err := s.SignUp(c.Context(), id, actor.ID)
	if err != nil {
		return s.tournamentError(c, err, id)
	}
	return c.Status(201).JSON(participant)
}

// WithdrawEndpoint handles POST /tournaments/:id/withdraw.
func (s *TournamentService) WithdrawEndpoint(c *fiber.Ctx) error {
	id := c.Params("id")
	actor := ActorFromCtx(c)

	if err := s.Withdraw(c.Context(), id, actor.ID); err != nil {
		return s.tournamentError(c, err, id)
	}
	return c.JSON(fiber.Map{"message": "withdrawn from tournament"})
}

// RemovePlayerEndpoint handles DELETE /tournaments/:id/players/:player_id.
func (s *TournamentService) RemovePlayerEndpoint(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.RemovePlayer(c.Context(), id, c.Params("player_id"), ActorFromCtx(c)); err != nil {
		return s.tournamentError(c, err, id)
	}
	return c.JSON(fiber.Map{"message": "player removed from tournament"})
}

// GetParticipantsEndpoint handles GET /tournaments/:id/players, ranked by
// standings.
func (s *TournamentService) GetParticipantsEndpoint(c *fiber.Ctx) error {
	var participants []models.TournamentPlayer
	err := s.DB.Where("tournament_id = ?", c.Params("id")).
		Order("points DESC, rating DESC").
		Find(&participants).Error
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch participants"})
	}
	return c.JSON(participants)
}

// GetMatchesEndpoint handles GET /tournaments/:id/matches?round=N.
func (s *TournamentService) GetMatchesEndpoint(c *fiber.Ctx) error {
	round, _ := strconv.Atoi(c.Query("round"))
	matches, err := s.Matches(c.Params("id"), round)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch matches"})
	}
	return c.JSON(matches)
}

// tournamentError maps typed errors to HTTP and, when the tournament is
// known, attaches its current canonical state.
func (s *TournamentService) tournamentError(c *fiber.Ctx, err error, id string) error {
	status := 500
	switch {
	case errors.Is(err, ErrInvalidTournamentConfig):
		status = 400
	case errors.Is(err, ErrTournamentNotFound), errors.Is(err, ErrPlayerNotFound):
		status = 404
	case errors.Is(err, ErrTournamentNameTaken),
		errors.Is(err, ErrInvalidStateTransition),
		errors.Is(err, ErrRoundLimitReached),
		errors.Is(err, ErrAlreadySignedUp),
		errors.Is(err, ErrNotSignedUp):
		status = 409
	case errors.Is(err, ErrTournamentFull),
		errors.Is(err, ErrRegistrationClosed),
		errors.Is(err, ErrPlayerBlacklisted),
		errors.Is(err, ErrPlayerIneligible),
		errors.Is(err, ErrUnauthorized):
		status = 403
	case errors.Is(err, ErrCollaboratorUnavailable):
		status = 503
	}

	resp := fiber.Map{"error": err.Error()}
	if id != "" {
		var current models.Tournament
		if dbErr := s.DB.First(&current, "id = ?", id).Error; dbErr == nil {
			resp["tournament"] = current
		}
	}
	return c.Status(status).JSON(resp)
}
