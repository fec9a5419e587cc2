package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// APIKey is an issued API key. The Key field is only populated on creation;
// listings return the preview instead.
type APIKey struct {
	ID         int    `json:"id"`
	Key        string `json:"key,omitempty"`
	KeyPreview string `json:"key_preview,omitempty"`
	Label      string `json:"label"`
	Scopes     string `json:"scopes,omitempty"`
	Revoked    bool   `json:"revoked"`
	CreatedAt  string `json:"created_at,omitempty"`
	ExpiresAt  string `json:"expires_at,omitempty"`
}

// ListKeys retrieves all API keys of the authenticated user.
func (c *Client) ListKeys(ctx context.Context) ([]APIKey, error) {
	var keys []APIKey
	if err := c.doJSON(ctx, &call{method: http.MethodGet, path: "/keys/"}, &keys); err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return keys, nil
}

// CreateKey issues a new API key. The returned Key value is shown exactly
// once; it cannot be retrieved again later.
func (c *Client) CreateKey(ctx context.Context, label, scopes string, expiresInDays int) (*APIKey, error) {
	payload := map[string]any{"label": label, "scopes": scopes}
	if expiresInDays > 0 {
		payload["expires_in_days"] = expiresInDays
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var key APIKey
	if err := c.doJSON(ctx, &call{method: http.MethodPost, path: "/keys/", body: body}, &key); err != nil {
		return nil, fmt.Errorf("failed to create key: %w", err)
	}
	return &key, nil
}

// RevokeKey revokes an API key by ID.
func (c *Client) RevokeKey(ctx context.Context, id int) error {
	if err := c.doJSON(ctx, &call{method: http.MethodDelete, path: fmt.Sprintf("/keys/%d", id)}, nil); err != nil {
		return fmt.Errorf("failed to revoke key %d: %w", id, err)
	}
	return nil
}
