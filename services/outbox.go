package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"chess-tournament-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OutboxDispatcher maps a queued task to its collaborator call. It is shared
// by the outbox worker and the immediate post-commit delivery attempt, so
// both paths behave identically.
type OutboxDispatcher struct {
	Players PlayerDirectory
	Mailer  NotificationGateway
}

func (d *OutboxDispatcher) Dispatch(ctx context.Context, task *models.OutboxTask) error {
	switch task.Kind {
	case models.TaskSetBlacklisted:
		return d.Players.SetBlacklisted(ctx, task.PlayerID, true)
	case models.TaskClearBlacklisted:
		return d.Players.SetBlacklisted(ctx, task.PlayerID, false)
	case models.TaskBanEmail, models.TaskUnbanEmail, models.TaskSignUpEmail:
		// Email address is resolved at delivery time so a retried task never
		// carries a stale address.
		summary, err := d.Players.GetPlayerSummary(ctx, task.PlayerID)
		if err != nil {
			return err
		}
		switch task.Kind {
		case models.TaskBanEmail:
			return d.Mailer.SendBanNotice(ctx, summary.Email, summary.Username, task.Reason, task.BanDurationHours)
		case models.TaskUnbanEmail:
			return d.Mailer.SendUnbanNotice(ctx, summary.Email, summary.Username, task.Reason)
		default:
			return d.Mailer.SendSignUpNotice(ctx, summary.Email, summary.Username, task.TournamentName)
		}
	default:
		return fmt.Errorf("unknown outbox task kind: %s", task.Kind)
	}
}

// DeliverNow makes one best-effort delivery attempt right after the owning
// transaction commits, so the common case does not wait for the worker tick.
// Failures are recorded on the task and left for the worker to retry.
func (d *OutboxDispatcher) DeliverNow(ctx context.Context, db *gorm.DB, tasks []models.OutboxTask) {
	for i := range tasks {
		task := &tasks[i]
		if err := d.Dispatch(ctx, task); err != nil {
			log.Printf("[OUTBOX] immediate delivery of %s for player %s failed, queued for retry: %v",
				task.Kind, task.PlayerID, err)
			db.Model(task).Updates(map[string]interface{}{
				"attempts":        gorm.Expr("attempts + 1"),
				"last_error":      err.Error(),
				"next_attempt_at": time.Now().Add(30 * time.Second),
			})
			continue
		}
		db.Model(task).Update("status", models.TaskDone)
	}
}

// newTask builds a pending outbox task due immediately.
func newTask(kind, playerID string) models.OutboxTask {
	return models.OutboxTask{
		ID:            uuid.NewString(),
		Kind:          kind,
		PlayerID:      playerID,
		Status:        models.TaskPending,
		NextAttemptAt: time.Now(),
	}
}
