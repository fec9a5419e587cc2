package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/apigatehq/apigate-cli/auth"
	"github.com/rs/zerolog/log"
)

const defaultTimeout = 30 * time.Second

// Client is an authenticated HTTP client for the Apigate API. It attaches
// the current access token to every outgoing request and transparently
// recovers from token expiry: on a 401 it asks the refresh coordinator for
// a valid token and replays the original request exactly once.
type Client struct {
	baseURL string
	http    *http.Client
	store   auth.CredentialStore
	coord   *auth.Coordinator
}

// New creates a Client for the given server URL backed by the given
// credential store. Each Client owns its own refresh coordinator.
func New(baseURL string, store auth.CredentialStore) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		store:   store,
	}
	c.coord = auth.NewCoordinator(store, &refresher{client: c})
	return c
}

// SetHTTPClient replaces the underlying HTTP client, e.g. to adjust the
// request timeout.
func (c *Client) SetHTTPClient(h *http.Client) {
	c.http = h
}

// Coordinator exposes the refresh coordinator so callers can tune its retry
// policy.
func (c *Client) Coordinator() *auth.Coordinator {
	return c.coord
}

// Store returns the credential store backing this client.
func (c *Client) Store() auth.CredentialStore {
	return c.store
}

// call describes one API request so that it can be rebuilt and replayed
// verbatim after a token refresh. attempt is 0 on first dispatch and 1 on
// the single refresh-triggered replay; a 401 on attempt 1 is final.
// noRetry marks session endpoints whose 401s are credential failures, not
// token expiry, and must never enter the refresh path.
type call struct {
	method  string
	path    string
	query   url.Values
	body    []byte
	attempt int
	noRetry bool
}

// buildRequest materializes the call and attaches the current access token
// as a bearer credential when one is stored.
func (c *Client) buildRequest(ctx context.Context, cl *call) (*http.Request, error) {
	u := c.baseURL + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}

	var rdr io.Reader
	if cl.body != nil {
		rdr = bytes.NewReader(cl.body)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, u, rdr)
	if err != nil {
		log.Error().Err(err).Str("method", cl.method).Str("path", cl.path).Msg("Failed to create HTTP request object")
		return nil, err
	}
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if pair, ok := c.store.Get(); ok && pair.Access != "" {
		req.Header.Set("Authorization", "Bearer "+pair.Access)
	}
	return req, nil
}

// do dispatches the call. On the first 401 for this logical call it asks the
// coordinator for a refreshed token (starting or joining a refresh), then
// resends the original request once with the new token attached directly,
// bypassing the normal 401 handling so a stale replay cannot loop. Any other
// response is passed through unchanged.
func (c *Client) do(ctx context.Context, cl *call) (*http.Response, error) {
	req, err := c.buildRequest(ctx, cl)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("method", cl.method).Str("path", cl.path).Msg("Sending HTTP request")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusUnauthorized || cl.attempt > 0 || cl.noRetry {
		return resp, nil
	}
	resp.Body.Close()

	log.Debug().Str("method", cl.method).Str("path", cl.path).Msg("Received 401, requesting token refresh")
	access, err := c.coord.EnsureValidToken(ctx)
	if err != nil {
		// The refresh failure is the actionable cause, surface it instead
		// of the original 401.
		return nil, err
	}

	retry := &call{method: cl.method, path: cl.path, query: cl.query, body: cl.body, attempt: cl.attempt + 1}
	req, err = c.buildRequest(ctx, retry)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+access)

	log.Debug().Str("method", cl.method).Str("path", cl.path).Msg("Replaying request with refreshed token")
	resp, err = c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request replay failed: %w", err)
	}
	return resp, nil
}

// doJSON dispatches the call and decodes a 2xx JSON response into out.
// Non-2xx statuses become *APIError. out may be nil when the caller only
// cares about success.
func (c *Client) doJSON(ctx context.Context, cl *call, out any) error {
	resp, err := c.do(ctx, cl)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error().Str("method", cl.method).Str("path", cl.path).Int("status", resp.StatusCode).Msg("HTTP request returned non-OK status")
		return newAPIError(resp.StatusCode, body)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response JSON: %w", err)
	}
	return nil
}
