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

// NotificationGateway is the email-service collaborator. Delivery is
// fire-and-forget with retry through the outbox; a failed send never rolls
// back the moderation or tournament state it announces.
type NotificationGateway interface {
	SendBanNotice(ctx context.Context, email, username, reason string, durationHours *int) error
	SendUnbanNotice(ctx context.Context, email, username, reason string) error
	SendSignUpNotice(ctx context.Context, email, username, tournamentName string) error
}

// EmailServiceClient posts notification requests to the email service.
type EmailServiceClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewEmailServiceClient(baseURL, token string) *EmailServiceClient {
	return &EmailServiceClient{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *EmailServiceClient) SendBanNotice(ctx context.Context, email, username, reason string, durationHours *int) error {
	return c.post(ctx, "/api/v1/emails/blacklist", map[string]interface{}{
		"to":                 email,
		"username":           username,
		"reason":             reason,
		"ban_duration_hours": durationHours,
	})
}

func (c *EmailServiceClient) SendUnbanNotice(ctx context.Context, email, username, reason string) error {
	return c.post(ctx, "/api/v1/emails/whitelist", map[string]interface{}{
		"to":       email,
		"username": username,
		"reason":   reason,
	})
}

func (c *EmailServiceClient) SendSignUpNotice(ctx context.Context, email, username, tournamentName string) error {
	return c.post(ctx, "/api/v1/emails/tournament-signup", map[string]interface{}{
		"to":         email,
		"username":   username,
		"tournament": tournamentName,
	})
}

func (c *EmailServiceClient) post(ctx context.Context, path string, payload map[string]interface{}) error {
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+path, bytes.NewReader(body))
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

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Printf("[EMAIL_SVC] POST %s returned %d: %s", path, resp.StatusCode, string(respBody))
		return fmt.Errorf("%w: email service returned %d", ErrCollaboratorUnavailable, resp.StatusCode)
	}
	return nil
}
