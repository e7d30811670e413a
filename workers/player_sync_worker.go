package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"chess-tournament-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlayerFromDirectory matches the JSON of the player service's public
// changes feed.
type PlayerFromDirectory struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Age         int       `json:"age"`
	Gender      string    `json:"gender"`
	Rating      int       `json:"rating"`
	Blacklisted bool      `json:"blacklisted"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type GetPlayerChangesResponse struct {
	Players []PlayerFromDirectory `json:"players"`
}

// PlayerSyncWorker keeps the local player mirror fresh by polling the player
// service's changes feed with a since-watermark. The mirror backs admin
// search only; sign-up and ban decisions always read the directory live.
type PlayerSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string
	endpointPath string
	serviceToken string
	httpClient   *http.Client
}

func NewPlayerSyncWorker(db *gorm.DB, playerServiceBaseURL, serviceToken string) *PlayerSyncWorker {
	return &PlayerSyncWorker{
		db:           db,
		interval:     1 * time.Minute,
		baseURL:      playerServiceBaseURL,
		endpointPath: "/api/v1/public/players",
		serviceToken: serviceToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (w *PlayerSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting player sync worker (player-service → player_mirrors)…")

	// Initial backfill from the beginning of time.
	if err := w.syncBatch(ctx, time.Time{}); err != nil {
		log.Printf("[SYNC] ⚠️ initial sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.syncBatch(ctx, w.lastSyncTime()); err != nil {
				log.Printf("[SYNC] ❌ sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Player sync worker stopped")
			return
		}
	}
}

// lastSyncTime is the watermark: the freshest UpdatedAt already mirrored.
func (w *PlayerSyncWorker) lastSyncTime() time.Time {
	var lastTime time.Time
	err := w.db.Raw("SELECT MAX(updated_at) FROM player_mirrors").Scan(&lastTime).Error
	if err != nil || lastTime.IsZero() {
		return time.Unix(0, 0)
	}
	return lastTime
}

func (w *PlayerSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid player service URL %q: %w", w.baseURL, err)
	}

	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	endpointURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", endpointURL.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to build sync request: %w", err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("player service request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("player service non-200 response: %d — %s", resp.StatusCode, string(body))
	}

	var response GetPlayerChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode player changes: %w", err)
	}
	if len(response.Players) == 0 {
		return nil
	}

	var upserted, errored int
	for _, remote := range response.Players {
		mirror := models.PlayerMirror{
			ID:          remote.ID,
			PlayerID:    remote.ID,
			Username:    remote.Username,
			Email:       remote.Email,
			Age:         remote.Age,
			Gender:      remote.Gender,
			Rating:      remote.Rating,
			Blacklisted: remote.Blacklisted,
			CreatedAt:   remote.CreatedAt,
			UpdatedAt:   remote.UpdatedAt,
		}

		err := w.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "player_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"username", "email", "age", "gender", "rating", "blacklisted", "updated_at",
			}),
		}).Create(&mirror).Error
		if err != nil {
			errored++
			log.Printf("[SYNC] ⚠️ failed to upsert player mirror (player_id=%q, username=%q): %v",
				remote.ID, remote.Username, err)
		} else {
			upserted++
		}
	}

	log.Printf("[SYNC] ✅ synced %d player(s) (%d upserted, %d errors)", len(response.Players), upserted, errored)
	return nil
}
