package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// GenerateRequest asks the backend for a new piece of personalized content.
type GenerateRequest struct {
	Topic  string `json:"topic"`
	Tone   string `json:"tone,omitempty"`
	Length int    `json:"length,omitempty"`
}

// GeneratedContent is one generated piece.
type GeneratedContent struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile is the signed-in user's profile.
type Profile struct {
	ID          string            `json:"id"`
	DisplayName string            `json:"display_name"`
	Email       string            `json:"email"`
	Preferences map[string]string `json:"preferences,omitempty"`
}

// ProfileUpdate carries the mutable profile fields. Nil fields are left
// unchanged by the backend.
type ProfileUpdate struct {
	DisplayName *string           `json:"display_name,omitempty"`
	Preferences map[string]string `json:"preferences,omitempty"`
}

// HistoryEntry is one past generation.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Excerpt   string    `json:"excerpt"`
	CreatedAt time.Time `json:"created_at"`
}

// Subscription is the user's payment plan state.
type Subscription struct {
	Plan     string    `json:"plan"`
	Active   bool      `json:"active"`
	RenewsAt time.Time `json:"renews_at"`
}

// VerifyResult is the backend's judgment of the current credential.
type VerifyResult struct {
	Subject string `json:"subject"`
	Valid   bool   `json:"valid"`
}

// StatusReport is the backend's self-reported health.
type StatusReport struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// GenerateContent produces a new piece of personalized content. Generation
// blocks the main user workflow, so it runs under the Critical policy.
func (c *Client) GenerateContent(ctx context.Context, req GenerateRequest) (*GeneratedContent, error) {
	var out GeneratedContent
	op := operation{name: "generate_content", method: http.MethodPost, path: "/v1/content/generate", body: req}
	if err := c.call(ctx, op, c.critical, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyCredential asks the backend to validate the current credential.
func (c *Client) VerifyCredential(ctx context.Context) (*VerifyResult, error) {
	var out VerifyResult
	op := operation{name: "verify_credential", method: http.MethodPost, path: "/v1/auth/verify"}
	if err := c.call(ctx, op, c.critical, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProfile fetches the signed-in user's profile.
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	var out Profile
	op := operation{name: "get_profile", method: http.MethodGet, path: "/v1/profile"}
	if err := c.call(ctx, op, c.standard, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile mutates the signed-in user's profile.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*Profile, error) {
	var out Profile
	op := operation{name: "update_profile", method: http.MethodPut, path: "/v1/profile", body: update}
	if err := c.call(ctx, op, c.critical, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListHistory returns up to limit past generations, newest first.
func (c *Client) ListHistory(ctx context.Context, limit int) ([]HistoryEntry, error) {
	path := "/v1/history"
	if limit > 0 {
		path += "?" + url.Values{"limit": {fmt.Sprint(limit)}}.Encode()
	}
	var out struct {
		Entries []HistoryEntry `json:"entries"`
	}
	op := operation{name: "list_history", method: http.MethodGet, path: path}
	if err := c.call(ctx, op, c.standard, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// AddFavorite marks a generated piece as a favorite.
func (c *Client) AddFavorite(ctx context.Context, contentID string) error {
	body := map[string]string{"content_id": contentID}
	op := operation{name: "add_favorite", method: http.MethodPost, path: "/v1/favorites", body: body}
	return c.call(ctx, op, c.standard, nil)
}

// RemoveFavorite unmarks a favorite.
func (c *Client) RemoveFavorite(ctx context.Context, contentID string) error {
	op := operation{name: "remove_favorite", method: http.MethodDelete, path: "/v1/favorites/" + url.PathEscape(contentID)}
	return c.call(ctx, op, c.standard, nil)
}

// GetSubscription fetches the user's payment plan state.
func (c *Client) GetSubscription(ctx context.Context) (*Subscription, error) {
	var out Subscription
	op := operation{name: "get_subscription", method: http.MethodGet, path: "/v1/subscription"}
	if err := c.call(ctx, op, c.standard, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status performs a non-essential backend health check under the Advisory
// policy.
func (c *Client) Status(ctx context.Context) (*StatusReport, error) {
	var out StatusReport
	op := operation{name: "status", method: http.MethodGet, path: "/v1/status"}
	if err := c.call(ctx, op, c.advisory, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
