package auth

import (
	"sync"
	"time"
)

// TokenState is one consistent view of the cached credentials.
type TokenState struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Valid reports whether the access token can be used at now.
// The zero TokenState is never valid.
func (s TokenState) Valid(now time.Time) bool {
	return s.AccessToken != "" && now.Before(s.Expiry)
}

// TokenStore holds the current token triple. Readers always see the
// access token, refresh token and expiry from the same update.
type TokenStore struct {
	mu    sync.RWMutex
	state TokenState
}

// NewTokenStore creates an empty store; its state is already expired.
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Get returns a copy of the current state.
func (s *TokenStore) Get() TokenState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Update replaces the whole state atomically.
func (s *TokenStore) Update(state TokenState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// Clear discards all cached credentials.
func (s *TokenStore) Clear() {
	s.Update(TokenState{})
}
