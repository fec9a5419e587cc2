package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	// ErrRefreshRejected is returned by a Refresher when the server explicitly
	// reports the refresh token invalid or expired. It is never retried.
	ErrRefreshRejected = errors.New("refresh token rejected by server")

	// ErrSessionExpired is broadcast to every waiter once the refresh protocol
	// has given up. The session must be re-established with a fresh login.
	ErrSessionExpired = errors.New("session expired")

	// ErrNotLoggedIn is returned when no credentials are stored.
	ErrNotLoggedIn = errors.New("not logged in")
)

const (
	defaultMaxAttempts    = 3
	defaultBaseDelay      = 500 * time.Millisecond
	defaultAttemptTimeout = 10 * time.Second
)

// refreshResult is the outcome delivered to each waiter: a fresh access
// token or the error that ended the refresh protocol.
type refreshResult struct {
	access string
	err    error
}

// Coordinator serializes token refreshes. At most one refresh call is in
// flight at any time; a caller that observes an authorization failure while
// a refresh is already underway joins the queue and receives the same
// outcome instead of starting another refresh.
//
// Each client owns its own Coordinator so that independent clients (and
// tests) never share refresh state.
type Coordinator struct {
	store     CredentialStore
	refresher Refresher

	maxAttempts    int
	baseDelay      time.Duration
	attemptTimeout time.Duration

	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshResult
}

// NewCoordinator creates a Coordinator with the default retry policy:
// 3 attempts, linear backoff starting at 500ms, 10s per-attempt timeout.
func NewCoordinator(store CredentialStore, refresher Refresher) *Coordinator {
	return &Coordinator{
		store:          store,
		refresher:      refresher,
		maxAttempts:    defaultMaxAttempts,
		baseDelay:      defaultBaseDelay,
		attemptTimeout: defaultAttemptTimeout,
	}
}

// SetRetryPolicy overrides the attempt cap, the backoff base delay, and the
// per-attempt timeout. Non-positive values keep the current settings.
func (c *Coordinator) SetRetryPolicy(maxAttempts int, baseDelay, attemptTimeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if maxAttempts > 0 {
		c.maxAttempts = maxAttempts
	}
	if baseDelay > 0 {
		c.baseDelay = baseDelay
	}
	if attemptTimeout > 0 {
		c.attemptTimeout = attemptTimeout
	}
}

// EnsureValidToken returns an access token obtained by a refresh that
// settled after the caller observed an authorization failure. The first
// caller to arrive while the coordinator is idle starts the refresh
// protocol; every caller, leader included, waits for the broadcast outcome,
// so all requests queued behind one refresh observe the same result.
//
// The caller's context only bounds its own wait. The refresh protocol runs
// detached, so an abandoned caller never fails the rest of the queue, and a
// late broadcast into the abandoned caller's buffered channel is simply
// discarded.
func (c *Coordinator) EnsureValidToken(ctx context.Context) (string, error) {
	ch := make(chan refreshResult, 1)

	c.mu.Lock()
	c.waiters = append(c.waiters, ch)
	if !c.refreshing {
		c.refreshing = true
		go c.runRefresh()
	} else {
		log.Debug().Msg("Refresh already in flight, queueing behind it")
	}
	c.mu.Unlock()

	select {
	case res := <-ch:
		return res.access, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// runRefresh executes the refresh protocol, then flips the state back to
// idle and fans the outcome out to everyone queued behind this attempt.
// Only one runRefresh goroutine exists at a time.
func (c *Coordinator) runRefresh() {
	access, err := c.refreshWithRetries()

	c.mu.Lock()
	c.refreshing = false
	waiters := c.waiters
	c.waiters = nil
	c.mu.Unlock()

	for _, ch := range waiters {
		ch <- refreshResult{access: access, err: err}
	}
}

// refreshWithRetries calls the refresh endpoint up to maxAttempts times with
// a linearly increasing delay between attempts. A rejection ends the
// protocol immediately; transport and server errors are retried within the
// cap. Once the protocol gives up, the store is cleared: the session is
// unauthenticated until the next login.
func (c *Coordinator) refreshWithRetries() (string, error) {
	pair, ok := c.store.Get()
	if !ok || pair.Refresh == "" {
		c.store.Clear()
		return "", ErrNotLoggedIn
	}

	c.mu.Lock()
	maxAttempts, baseDelay, attemptTimeout := c.maxAttempts, c.baseDelay, c.attemptTimeout
	c.mu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			delay := time.Duration(attempt-1) * baseDelay
			log.Debug().Int("attempt", attempt).Dur("delay", delay).Msg("Backing off before next refresh attempt")
			time.Sleep(delay)
		}

		ctx, cancel := context.WithTimeout(context.Background(), attemptTimeout)
		newPair, err := c.refresher.Refresh(ctx, pair.Refresh)
		cancel()

		if err == nil {
			if newPair.Refresh == "" {
				// Server did not rotate the refresh token, keep the old one.
				newPair.Refresh = pair.Refresh
			}
			c.store.Set(newPair)
			log.Info().Int("attempt", attempt).Msg("Access token refreshed")
			return newPair.Access, nil
		}

		lastErr = err
		if errors.Is(err, ErrRefreshRejected) {
			log.Warn().Err(err).Msg("Refresh token rejected, giving up")
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("Token refresh attempt failed")
	}

	c.store.Clear()
	return "", fmt.Errorf("%w: %w", ErrSessionExpired, lastErr)
}
