package client_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/apigatehq/apigate-cli/auth"
	"github.com/apigatehq/apigate-cli/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two parallel calls issued with an expired token must both succeed while
// the server observes exactly one refresh call.
func TestParallelExpiredCalls_ShareOneRefresh(t *testing.T) {
	srv := newFakeServer(t)
	c := srv.newClient(t)

	srv.mu.Lock()
	srv.refreshDelay = 100 * time.Millisecond
	srv.mu.Unlock()
	srv.expireAccess()

	var wg sync.WaitGroup
	profiles := make([]*auth.Profile, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			profiles[i], errs[i] = c.Me(t.Context())
		}(i)
	}
	wg.Wait()

	for i := 0; i < 2; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, profiles[i])
		assert.Equal(t, "dev@example.com", profiles[i].Email)
	}
	assert.Equal(t, 1, srv.refreshCallCount(), "concurrent 401s must collapse into one refresh")
}

// A request that still gets 401 after being replayed with a fresh token is
// surfaced as a final error: one original attempt plus one replay, no more.
func TestReplayedRequestNotRetriedTwice(t *testing.T) {
	srv := newFakeServer(t)
	c := srv.newClient(t)

	srv.mu.Lock()
	srv.expireMe = true
	srv.mu.Unlock()

	_, err := c.Me(t.Context())
	require.Error(t, err)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.Status)
	assert.Equal(t, 2, srv.meCallCount(), "expected exactly original attempt + one replay")
	assert.Equal(t, 1, srv.refreshCallCount())
}

// A refresh endpoint that fails transiently twice then succeeds results in
// exactly three refresh calls and the original request still succeeds.
func TestTransientRefreshFailuresAreRetried(t *testing.T) {
	srv := newFakeServer(t)
	c := srv.newClient(t)

	srv.mu.Lock()
	srv.refreshFails = 2
	srv.mu.Unlock()
	srv.expireAccess()

	profile, err := c.Me(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", profile.Email)
	assert.Equal(t, 3, srv.refreshCallCount())
}

// A refresh endpoint that fails on every attempt tears the session down:
// the caller gets the refresh failure and the store is cleared.
func TestRefreshExhaustionTearsDownSession(t *testing.T) {
	srv := newFakeServer(t)
	c := srv.newClient(t)

	srv.mu.Lock()
	srv.refreshFails = 100
	srv.mu.Unlock()
	srv.expireAccess()

	_, err := c.Me(t.Context())
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrSessionExpired)
	assert.Equal(t, 3, srv.refreshCallCount(), "retries stop at the cap")

	_, ok := c.Store().Get()
	assert.False(t, ok, "credential store must be cleared after exhaustion")
}

// An explicit refresh rejection is immediately fatal, with no retries.
func TestRefreshRejectionIsImmediatelyFatal(t *testing.T) {
	srv := newFakeServer(t)
	c := srv.newClient(t)

	srv.mu.Lock()
	srv.refreshReject = true
	srv.mu.Unlock()
	srv.expireAccess()

	_, err := c.Me(t.Context())
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrSessionExpired)
	assert.ErrorIs(t, err, auth.ErrRefreshRejected)
	assert.Equal(t, 1, srv.refreshCallCount())

	_, ok := c.Store().Get()
	assert.False(t, ok)
}

// Errors other than 401 pass through untouched and never trigger a refresh.
func TestNonAuthErrorsNeverTriggerRefresh(t *testing.T) {
	srv := newFakeServer(t)
	c := srv.newClient(t)

	// No /apis/3 route registered; ListAPIs against a missing key path gives
	// a plain client-side decode of the 404.
	_, err := c.GetAPI(t.Context(), 3)
	require.Error(t, err)

	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		assert.NotEqual(t, 401, apiErr.Status)
	}
	assert.Equal(t, 0, srv.refreshCallCount())
}

// Requests issued without any stored credentials carry no bearer header and
// a 401 resolves to ErrNotLoggedIn rather than a refresh attempt.
func TestUnauthenticatedRequestFailsWithoutRefresh(t *testing.T) {
	srv := newFakeServer(t)
	c := client.New(srv.URL(), auth.NewMemoryStore())

	_, err := c.Me(t.Context())
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrNotLoggedIn)
	assert.Equal(t, 0, srv.refreshCallCount())
}
