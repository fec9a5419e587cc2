package db

import (
	"context"
	"sync"

	"github.com/apigatehq/apigate-cli/auth"
	"github.com/rs/zerolog/log"
)

// Store adapts a TokenRepository to auth.CredentialStore so a login
// survives across CLI invocations. Only the token pair is persisted; the
// profile cache lives in memory for the duration of one invocation.
type Store struct {
	repo TokenRepository

	mu      sync.RWMutex
	profile *auth.Profile
}

// NewStore creates a CredentialStore backed by the given repository.
func NewStore(repo TokenRepository) *Store {
	return &Store{repo: repo}
}

func (s *Store) Get() (auth.TokenPair, bool) {
	token, err := s.repo.Get(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("Failed to read token record")
		return auth.TokenPair{}, false
	}
	if token == nil || token.AccessToken == "" {
		return auth.TokenPair{}, false
	}
	return auth.TokenPair{Access: token.AccessToken, Refresh: token.RefreshToken}, true
}

func (s *Store) Set(pair auth.TokenPair) {
	err := s.repo.Upsert(context.Background(), &Token{
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to save token record")
	}
}

func (s *Store) Profile() *auth.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

func (s *Store) SetProfile(p *auth.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = p
}

func (s *Store) Clear() {
	if err := s.repo.Clear(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to clear token record")
	}
	s.mu.Lock()
	s.profile = nil
	s.mu.Unlock()
}
