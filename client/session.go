package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/apigatehq/apigate-cli/auth"
	"github.com/rs/zerolog/log"
)

// tokenResponse mirrors the token payload of the auth endpoints.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Error        string `json:"error"`
}

// Login authenticates with email and password, seeds the credential store
// with the returned token pair, and caches the authenticated profile. All
// subsequent calls through this client carry the access token and are
// covered by the automatic refresh layer.
func (c *Client) Login(ctx context.Context, email, password string) (*auth.Profile, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}

	// A 401 here means bad credentials, not an expired access token, so the
	// login call itself is exempt from the refresh-and-replay path.
	var tok tokenResponse
	if err := c.doJSON(ctx, &call{method: http.MethodPost, path: "/auth/login", body: body, noRetry: true}, &tok); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("login response did not contain an access token")
	}
	c.store.Set(auth.TokenPair{Access: tok.AccessToken, Refresh: tok.RefreshToken})
	log.Info().Str("email", email).Msg("Logged in successfully")

	// The profile fetch is best-effort: the session is established even if
	// it fails.
	profile, err := c.Me(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Logged in but failed to fetch profile")
		return nil, nil
	}
	return profile, nil
}

// Me fetches the authenticated profile and caches it in the store.
func (c *Client) Me(ctx context.Context) (*auth.Profile, error) {
	var p auth.Profile
	if err := c.doJSON(ctx, &call{method: http.MethodGet, path: "/auth/me"}, &p); err != nil {
		return nil, err
	}
	c.store.SetProfile(&p)
	return &p, nil
}

// Logout asks the server to invalidate the session, then clears the local
// credentials unconditionally. A server-side failure is logged but never
// keeps the user logged in locally.
func (c *Client) Logout(ctx context.Context) {
	err := c.doJSON(ctx, &call{method: http.MethodPost, path: "/auth/logout", noRetry: true}, nil)
	c.store.Clear()
	if err != nil {
		log.Warn().Err(err).Msg("Server-side logout failed, local credentials cleared anyway")
	} else {
		log.Info().Msg("Logged out")
	}
}

// refresher implements auth.Refresher against POST /auth/refresh-tokens.
// The refresh token travels as an explicit body field on both the login and
// refresh paths; no cookie transport is used.
type refresher struct {
	client *Client
}

func (r *refresher) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	body, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return auth.TokenPair{}, err
	}

	// This call goes straight to the transport: a refresh must never pass
	// through the 401-handling path it backs.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.client.baseURL+"/auth/refresh-tokens", bytes.NewReader(body))
	if err != nil {
		return auth.TokenPair{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.http.Do(req)
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("failed to read refresh response: %w", err)
	}

	var tok tokenResponse
	if len(raw) > 0 {
		// A non-JSON body is fine for error statuses, ignore parse failures
		// there and fall through to the status checks.
		if jsonErr := json.Unmarshal(raw, &tok); jsonErr != nil && resp.StatusCode < 300 {
			return auth.TokenPair{}, fmt.Errorf("failed to parse refresh response: %w", jsonErr)
		}
	}

	switch {
	case tok.Error != "":
		return auth.TokenPair{}, fmt.Errorf("%w: %s", auth.ErrRefreshRejected, tok.Error)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return auth.TokenPair{}, fmt.Errorf("%w: status %d", auth.ErrRefreshRejected, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return auth.TokenPair{}, newAPIError(resp.StatusCode, raw)
	}

	if tok.AccessToken == "" {
		return auth.TokenPair{}, fmt.Errorf("refresh response did not contain an access token")
	}
	return auth.TokenPair{Access: tok.AccessToken, Refresh: tok.RefreshToken}, nil
}
