package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// API is a managed API definition.
type API struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

// ListAPIs retrieves all API definitions.
func (c *Client) ListAPIs(ctx context.Context) ([]API, error) {
	var apis []API
	if err := c.doJSON(ctx, &call{method: http.MethodGet, path: "/apis/"}, &apis); err != nil {
		return nil, fmt.Errorf("failed to list APIs: %w", err)
	}
	return apis, nil
}

// GetAPI retrieves a single API definition by ID.
func (c *Client) GetAPI(ctx context.Context, id int) (*API, error) {
	var api API
	if err := c.doJSON(ctx, &call{method: http.MethodGet, path: fmt.Sprintf("/apis/%d", id)}, &api); err != nil {
		return nil, fmt.Errorf("failed to get API %d: %w", id, err)
	}
	return &api, nil
}

// CreateAPI registers a new API definition and returns the created record.
func (c *Client) CreateAPI(ctx context.Context, api API) (*API, error) {
	body, err := json.Marshal(api)
	if err != nil {
		return nil, err
	}
	var created API
	if err := c.doJSON(ctx, &call{method: http.MethodPost, path: "/apis/", body: body}, &created); err != nil {
		return nil, fmt.Errorf("failed to create API: %w", err)
	}
	return &created, nil
}

// DeleteAPI removes an API definition by ID.
func (c *Client) DeleteAPI(ctx context.Context, id int) error {
	if err := c.doJSON(ctx, &call{method: http.MethodDelete, path: fmt.Sprintf("/apis/%d", id)}, nil); err != nil {
		return fmt.Errorf("failed to delete API %d: %w", id, err)
	}
	return nil
}
