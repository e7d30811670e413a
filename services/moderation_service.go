package services

import (
	"context"
	"errors"
	"log"
	"time"

	"chess-tournament-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ModerationService applies and lifts player bans and keeps ban records
// consistent with the player directory's blacklisted flag. The ban record is
// the authoritative state; directory flips and notification emails are
// delivered at-least-once through the outbox and never roll a committed ban
// back.
type ModerationService struct {
	DB         *gorm.DB
	Players    PlayerDirectory
	Dispatcher *OutboxDispatcher
}

func NewModerationService(db *gorm.DB, players PlayerDirectory, dispatcher *OutboxDispatcher) *ModerationService {
	return &ModerationService{DB: db, Players: players, Dispatcher: dispatcher}
}

// Ban blacklists a player. durationHours nil means permanent.
func (s *ModerationService) Ban(ctx context.Context, actor Actor, playerID, reason string, durationHours *int) (*models.BanRecord, error) {
	if durationHours != nil && *durationHours <= 0 {
		return nil, ErrInvalidBanDuration
	}

	// Validate the player exists before touching any state. Directory outage
	// here fails the admin's request — nothing has been committed yet.
	if _, err := s.Players.GetPlayerSummary(ctx, playerID); err != nil {
		return nil, err
	}

	now := time.Now()
	record := &models.BanRecord{
		ID:               uuid.NewString(),
		PlayerID:         playerID,
		AdminID:          actor.ID,
		Reason:           reason,
		BanDurationHours: durationHours,
		IsActive:         true,
		CreatedAt:        now,
	}
	if durationHours != nil {
		expires := now.Add(time.Duration(*durationHours) * time.Hour)
		record.ExpiresAt = &expires
	}

	tasks := []models.OutboxTask{
		newTask(models.TaskSetBlacklisted, playerID),
		newTask(models.TaskBanEmail, playerID),
	}
	tasks[1].Reason = reason
	tasks[1].BanDurationHours = durationHours

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.BanRecord
		err := lockForUpdate(tx).
			Where("player_id = ? AND is_active = ?", playerID, true).
			First(&existing).Error
		if err == nil {
			return ErrAlreadyBanned
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(record).Error; err != nil {
			// Partial unique index backstop: a concurrent ban won the race.
			if isDuplicate(err) {
				return ErrAlreadyBanned
			}
			return err
		}
		return tx.Create(&tasks).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[MODERATION] player %s blacklisted by %s (duration=%v)", playerID, actor.ID, durationHours)
	if s.Dispatcher != nil {
		s.Dispatcher.DeliverNow(ctx, s.DB, tasks)
	}
	return record, nil
}

// Unban lifts a player's active ban.
func (s *ModerationService) Unban(ctx context.Context, actor Actor, playerID, reason string) (*models.BanRecord, error) {
	record, err := s.liftBan(playerID, actor, reason)
	if err != nil {
		return nil, err
	}

	log.Printf("[MODERATION] player %s whitelisted by %s", playerID, actor.ID)
	if s.Dispatcher != nil {
		s.Dispatcher.DeliverNow(ctx, s.DB, record.tasks)
	}
	return record.ban, nil
}

// AutoExpireSweep lifts every temporary ban whose duration has elapsed and
// returns how many were lifted. Permanent bans (nil duration) are never
// touched. Each record is re-checked under its row lock so the sweep cannot
// race a manual unban.
func (s *ModerationService) AutoExpireSweep(ctx context.Context) (int, error) {
	var candidates []string
	err := s.DB.Model(&models.BanRecord{}).
		Where("is_active = ? AND ban_duration_hours IS NOT NULL AND expires_at <= ?", true, time.Now()).
		Pluck("player_id", &candidates).Error
	if err != nil {
		return 0, err
	}

	lifted := 0
	for _, playerID := range candidates {
		record, err := s.liftBan(playerID, SystemActor, "Duration expired.")
		if err != nil {
			if errors.Is(err, ErrNotBanned) {
				continue // unbanned manually between the scan and the lock
			}
			log.Printf("[SWEEP] failed to expire ban for player %s: %v", playerID, err)
			continue
		}
		lifted++
		if s.Dispatcher != nil {
			s.Dispatcher.DeliverNow(ctx, s.DB, record.tasks)
		}
	}

	if lifted > 0 {
		log.Printf("[SWEEP] ✅ auto-expired %d ban(s)", lifted)
	}
	return lifted, nil
}

// ActiveBans returns the current blacklist, newest first.
func (s *ModerationService) ActiveBans() ([]models.BanRecord, error) {
	var records []models.BanRecord
	err := s.DB.Where("is_active = ?", true).Order("created_at DESC").Find(&records).Error
	return records, err
}

// BanHistory returns every ban ever issued against a player, newest first.
func (s *ModerationService) BanHistory(playerID string) ([]models.BanRecord, error) {
	var records []models.BanRecord
	err := s.DB.Where("player_id = ?", playerID).Order("created_at DESC").Find(&records).Error
	return records, err
}

// ActiveBanFor returns the player's active record, or nil.
func (s *ModerationService) ActiveBanFor(playerID string) (*models.BanRecord, error) {
	var record models.BanRecord
	err := s.DB.Where("player_id = ? AND is_active = ?", playerID, true).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

type liftedBan struct {
	ban   *models.BanRecord
	tasks []models.OutboxTask
}

// liftBan deactivates the active record for playerID inside one transaction,
// queuing the directory flip and the unban email. The sweep and manual unban
// both funnel through here so the invariant checks live in one place.
func (s *ModerationService) liftBan(playerID string, actor Actor, reason string) (*liftedBan, error) {
	var record models.BanRecord
	tasks := []models.OutboxTask{
		newTask(models.TaskClearBlacklisted, playerID),
		newTask(models.TaskUnbanEmail, playerID),
	}
	tasks[1].Reason = reason

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		err := lockForUpdate(tx).
			Where("player_id = ? AND is_active = ?", playerID, true).
			First(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotBanned
		}
		if err != nil {
			return err
		}

		now := time.Now()
		record.IsActive = false
		record.UnbannedAt = &now
		record.UnbannedBy = actor.ID
		record.UnbanReason = reason
		if err := tx.Save(&record).Error; err != nil {
			return err
		}
		return tx.Create(&tasks).Error
	})
	if err != nil {
		return nil, err
	}
	return &liftedBan{ban: &record, tasks: tasks}, nil
}

// --- Fiber endpoints ---

// BlacklistPlayer handles POST /admin/blacklist.
func (s *ModerationService) BlacklistPlayer(c *fiber.Ctx) error {
	type Req struct {
		PlayerID         string `json:"player_id"`
		Reason           string `json:"reason"`
		BanDurationHours *int   `json:"ban_duration_hours,omitempty"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.PlayerID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "player_id is required"})
	}

	actor := ActorFromCtx(c)
	if !actor.IsAdmin() {
		return c.Status(403).JSON(fiber.Map{"error": ErrUnauthorized.Error()})
	}

	record, err := s.Ban(c.Context(), actor, req.PlayerID, req.Reason, req.BanDurationHours)
	if err != nil {
		return s.moderationError(c, err, req.PlayerID)
	}
	return c.Status(201).JSON(record)
}

// WhitelistPlayer handles POST /admin/whitelist.
func (s *ModerationService) WhitelistPlayer(c *fiber.Ctx) error {
	type Req struct {
		PlayerID string `json:"player_id"`
		Reason   string `json:"reason"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.PlayerID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "player_id is required"})
	}

	actor := ActorFromCtx(c)
	if !actor.IsAdmin() {
		return c.Status(403).JSON(fiber.Map{"error": ErrUnauthorized.Error()})
	}

	record, err := s.Unban(c.Context(), actor, req.PlayerID, req.Reason)
	if err != nil {
		return s.moderationError(c, err, req.PlayerID)
	}
	return c.JSON(record)
}

// GetBlacklist handles GET /admin/blacklist.
func (s *ModerationService) GetBlacklist(c *fiber.Ctx) error {
	records, err := s.ActiveBans()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch blacklist"})
	}
	return c.JSON(records)
}

// SearchPlayers handles GET /admin/players/search?q=… against the local
// player mirror. Search is a convenience view — moderation actions always
// re-validate against the live directory.
func (s *ModerationService) SearchPlayers(c *fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return c.Status(400).JSON(fiber.Map{"error": "query parameter q is required"})
	}

	var players []models.PlayerMirror
	pattern := "%" + q + "%"
	err := s.DB.Where("username LIKE ? OR email LIKE ?", pattern, pattern).
		Order("username ASC").
		Limit(25).
		Find(&players).Error
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to search players"})
	}
	return c.JSON(players)
}

// GetBanHistory handles GET /admin/blacklist/:player_id/history.
func (s *ModerationService) GetBanHistory(c *fiber.Ctx) error {
	records, err := s.BanHistory(c.Params("player_id"))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch ban history"})
	}
	return c.JSON(records)
}

// moderationError maps typed errors to HTTP and attaches the player's
// current canonical ban state so the caller can re-evaluate.
func (s *ModerationService) moderationError(c *fiber.Ctx, err error, playerID string) error {
	current, _ := s.ActiveBanFor(playerID)

	status := 500
	switch {
	case errors.Is(err, ErrAlreadyBanned), errors.Is(err, ErrNotBanned):
		status = 409
	case errors.Is(err, ErrInvalidBanDuration):
		status = 400
	case errors.Is(err, ErrPlayerNotFound):
		status = 404
	case errors.Is(err, ErrCollaboratorUnavailable):
		status = 503
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error(), "active_ban": current})
}
