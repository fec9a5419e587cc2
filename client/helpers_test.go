package client_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/apigatehq/apigate-cli/auth"
	"github.com/apigatehq/apigate-cli/client"
)

// fakeServer is a minimal in-process Apigate backend. It issues serial
// token pairs ("access-1"/"refresh-1", ...), rejects requests that do not
// carry the current access token with 401, and lets tests script the
// refresh endpoint's failures.
type fakeServer struct {
	t  *testing.T
	mu sync.Mutex

	serial       int
	validAccess  string
	validRefresh string

	refreshCalls  int
	refreshFails  int           // this many refresh calls answer 500 before succeeding
	refreshReject bool          // every refresh answers 401 {"error": ...}
	refreshDelay  time.Duration // hold each refresh call open this long
	expireMe      bool          // /auth/me answers 401 regardless of token

	meCalls int

	srv *httptest.Server
}

func newFakeServer(t *testing.T) *fakeServer {
	f := &fakeServer{t: t}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", f.handleLogin)
	mux.HandleFunc("POST /auth/refresh-tokens", f.handleRefresh)
	mux.HandleFunc("POST /auth/logout", f.handleLogout)
	mux.HandleFunc("GET /auth/me", f.handleMe)
	mux.HandleFunc("GET /apis/", f.handleListAPIs)
	mux.HandleFunc("POST /apis/", f.handleCreateAPI)
	mux.HandleFunc("GET /keys/", f.handleListKeys)

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeServer) URL() string { return f.srv.URL }

// newClient returns a logged-in client with a fast retry policy and a short
// transport timeout. Request counters are reset after the login handshake so
// tests count from a clean baseline.
func (f *fakeServer) newClient(t *testing.T) *client.Client {
	c := client.New(f.URL(), auth.NewMemoryStore())
	c.SetHTTPClient(&http.Client{Timeout: 5 * time.Second})
	c.Coordinator().SetRetryPolicy(3, 10*time.Millisecond, time.Second)
	if _, err := c.Login(t.Context(), "dev@example.com", "secret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	f.mu.Lock()
	f.meCalls = 0
	f.refreshCalls = 0
	f.mu.Unlock()
	return c
}

func (f *fakeServer) issuePair() (string, string) {
	f.serial++
	f.validAccess = fmt.Sprintf("access-%d", f.serial)
	f.validRefresh = fmt.Sprintf("refresh-%d", f.serial)
	return f.validAccess, f.validRefresh
}

// expireAccess invalidates the currently issued access token while keeping
// the refresh token usable, simulating access-token expiry.
func (f *fakeServer) expireAccess() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validAccess = ""
}

func (f *fakeServer) refreshCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

func (f *fakeServer) meCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.meCalls
}

func (f *fakeServer) authorized(r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return f.validAccess != "" && got == f.validAccess
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Password != "secret" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	f.mu.Lock()
	access, refresh := f.issuePair()
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"access_token": access, "refresh_token": refresh})
}

func (f *fakeServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&payload)

	f.mu.Lock()
	f.refreshCalls++
	delay := f.refreshDelay
	reject := f.refreshReject
	fail := f.refreshFails > 0
	if fail {
		f.refreshFails--
	}
	valid := payload.RefreshToken != "" && payload.RefreshToken == f.validRefresh
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	switch {
	case reject:
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "refresh token expired"})
	case fail:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "temporary outage"})
	case !valid:
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unknown refresh token"})
	default:
		f.mu.Lock()
		access, refresh := f.issuePair()
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{"access_token": access, "refresh_token": refresh})
	}
}

func (f *fakeServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "User logged out"})
}

func (f *fakeServer) handleMe(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.meCalls++
	expire := f.expireMe
	f.mu.Unlock()

	if expire || !f.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired token"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": "dev@example.com", "name": "Dev", "role": "admin"})
}

func (f *fakeServer) handleListAPIs(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired token"})
		return
	}
	if r.URL.Path != "/apis/" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "API not found"})
		return
	}
	writeJSON(w, http.StatusOK, []map[string]any{
		{"id": 1, "name": "orders", "version": "v1", "description": "Order intake"},
		{"id": 2, "name": "billing", "version": "v2"},
	})
}

func (f *fakeServer) handleCreateAPI(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired token"})
		return
	}
	var api map[string]any
	if err := json.NewDecoder(r.Body).Decode(&api); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad payload"})
		return
	}
	api["id"] = 42
	writeJSON(w, http.StatusCreated, api)
}

func (f *fakeServer) handleListKeys(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired token"})
		return
	}
	writeJSON(w, http.StatusOK, []map[string]any{
		{"id": 7, "label": "ci", "key_preview": "agk_12…", "revoked": false},
	})
}
