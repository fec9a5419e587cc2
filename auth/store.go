package auth

import "sync"

// TokenPair holds the current access and refresh credentials. The refresh
// token may be empty when the server manages it out of band.
type TokenPair struct {
	Access  string `json:"access_token"`
	Refresh string `json:"refresh_token,omitempty"`
}

// Profile is the authenticated identity cached after a successful login or
// profile fetch. It is read-only derived state owned by the credential store.
type Profile struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}

// CredentialStore holds the current token pair and the cached profile.
// It is a pure state container: no network calls, no async behavior.
// Implementations must allow concurrent reads while the refresh leader
// replaces the pair; readers see either the old or the new pair, never a
// torn mix of the two.
type CredentialStore interface {
	// Get returns the current token pair, or false when no pair is stored.
	Get() (TokenPair, bool)
	// Set replaces both tokens atomically.
	Set(pair TokenPair)
	// Profile returns the cached profile, or nil when none is cached.
	Profile() *Profile
	// SetProfile replaces the cached profile.
	SetProfile(p *Profile)
	// Clear removes both tokens and the cached profile.
	Clear()
}

// MemoryStore is an in-process CredentialStore guarded by a RWMutex.
// Writes only happen on login, logout, or refresh completion, so a
// single-writer/multi-reader discipline is enough.
type MemoryStore struct {
	mu      sync.RWMutex
	pair    TokenPair
	present bool
	profile *Profile
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get() (TokenPair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair, s.present
}

func (s *MemoryStore) Set(pair TokenPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = pair
	s.present = true
}

func (s *MemoryStore) Profile() *Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

func (s *MemoryStore) SetProfile(p *Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = p
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = TokenPair{}
	s.present = false
	s.profile = nil
}
