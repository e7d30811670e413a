package workers

import (
	"context"
	"log"
	"time"

	"chess-tournament-system/models"

	"gorm.io/gorm"
)

// OutboxWorker drains pending collaborator tasks (blacklist flag flips,
// notification emails) with bounded exponential backoff. Tasks that exhaust
// MaxAttempts are marked dead and logged for manual reconciliation — the ban
// or sign-up they belong to stays committed either way.
type OutboxWorker struct {
	DB          *gorm.DB
	Dispatch    func(ctx context.Context, task *models.OutboxTask) error
	Interval    time.Duration
	MaxAttempts int
}

func NewOutboxWorker(db *gorm.DB, dispatch func(ctx context.Context, task *models.OutboxTask) error) *OutboxWorker {
	return &OutboxWorker{
		DB:          db,
		Dispatch:    dispatch,
		Interval:    15 * time.Second,
		MaxAttempts: 8,
	}
}

func (w *OutboxWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting outbox worker…")
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.ProcessDue(ctx); err != nil {
				log.Printf("[OUTBOX] ❌ batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Outbox worker stopped")
			return
		}
	}
}

// ProcessDue attempts every pending task whose retry time has arrived and
// returns how many were delivered.
func (w *OutboxWorker) ProcessDue(ctx context.Context) (int, error) {
	var tasks []models.OutboxTask
	err := w.DB.Where("status = ? AND next_attempt_at <= ?", models.TaskPending, time.Now()).
		Order("next_attempt_at ASC").
		Limit(50).
		Find(&tasks).Error
	if err != nil {
		return 0, err
	}

	delivered := 0
	for i := range tasks {
		task := &tasks[i]
		if err := w.Dispatch(ctx, task); err != nil {
			w.recordFailure(task, err)
			continue
		}
		if err := w.DB.Model(task).Update("status", models.TaskDone).Error; err != nil {
			log.Printf("[OUTBOX] failed to mark task %s done: %v", task.ID, err)
			continue
		}
		delivered++
	}

	if delivered > 0 {
		log.Printf("[OUTBOX] ✅ delivered %d task(s)", delivered)
	}
	return delivered, nil
}

func (w *OutboxWorker) recordFailure(task *models.OutboxTask, cause error) {
	task.Attempts++
	task.LastError = cause.Error()

	updates := map[string]interface{}{
		"attempts":   task.Attempts,
		"last_error": task.LastError,
	}
	if task.Attempts >= w.MaxAttempts {
		updates["status"] = models.TaskDead
		log.Printf("[OUTBOX] ☠️ task %s (%s, player %s) dead after %d attempts — needs manual reconciliation: %v",
			task.ID, task.Kind, task.PlayerID, task.Attempts, cause)
	} else {
		updates["next_attempt_at"] = time.Now().Add(w.backoff(task.Attempts))
		log.Printf("[OUTBOX] ⚠️ task %s (%s) attempt %d failed, retrying: %v",
			task.ID, task.Kind, task.Attempts, cause)
	}

	if err := w.DB.Model(task).Updates(updates).Error; err != nil {
		log.Printf("[OUTBOX] failed to record failure for task %s: %v", task.ID, err)
	}
}

// backoff doubles per attempt from 30s, capped at an hour.
func (w *OutboxWorker) backoff(attempts int) time.Duration {
	d := 30 * time.Second
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= time.Hour {
			return time.Hour
		}
	}
	return d
}
