package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// PlayerSummary is the slice of player-service data this service needs.
type PlayerSummary struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Age         int    `json:"age"`
	Gender      string `json:"gender"`
	Rating      int    `json:"rating"`
	Blacklisted bool   `json:"blacklisted"`
}

// PlayerDirectory is the player-service collaborator. The player service owns
// all player data; this service only reads summaries and flips the
// blacklisted flag.
type PlayerDirectory interface {
	GetPlayerSummary(ctx context.Context, playerID string) (*PlayerSummary, error)
	SetBlacklisted(ctx context.Context, playerID string, blacklisted bool) error
}

// PlayerServiceClient talks to the player service through the gateway mesh
// with a dedicated service token.
type PlayerServiceClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewPlayerServiceClient(baseURL, token string) *PlayerServiceClient {
	return &PlayerServiceClient{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *PlayerServiceClient) GetPlayerSummary(ctx context.Context, playerID string) (*PlayerSummary, error) {
	url := fmt.Sprintf("%s/api/v1/players/%s/summary", c.BaseURL, playerID)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCollaboratorUnavailable, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrPlayerNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Printf("[PLAYER_SVC] GET %s returned %d: %s", url, resp.StatusCode, string(body))
		return nil, fmt.Errorf("%w: player service returned %d", ErrCollaboratorUnavailable, resp.StatusCode)
	}

	var out PlayerSummary
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode player summary: %w", err)
	}
	return &out, nil
}

func (c *PlayerServiceClient) SetBlacklisted(ctx context.Context, playerID string, blacklisted bool) error {
	url := fmt.Sprintf("%s/api/v1/players/%s/blacklist", c.BaseURL, playerID)

	payload, _ := json.Marshal(map[string]bool{"blacklisted": blacklisted})
	req, err := http.NewRequestWithContext(ctx, "PUT", url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCollaboratorUnavailable, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Printf("[PLAYER_SVC] PUT %s returned %d: %s", url, resp.StatusCode, string(body))
		return fmt.Errorf("%w: player service returned %d", ErrCollaboratorUnavailable, resp.StatusCode)
	}
	return nil
}
