// Package session binds opaque client tokens to download sessions. The token
// travels in a cookie; the download id never has to be guessable because the
// binding is checked server-side.
package session

import (
	"sync"

	"github.com/google/uuid"
)

// CookieName is the HTTP cookie carrying the client token.
const CookieName = "mf_session"

// Store maps client tokens to their current download session id. Each token
// holds at most one binding at a time.
type Store struct {
	mu      sync.RWMutex
	byToken map[string]string
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		byToken: make(map[string]string),
	}
}

// NewToken mints a fresh opaque client token.
func (s *Store) NewToken() string {
	return uuid.NewString()
}

// Bind associates the token with a download session, replacing any previous
// binding.
func (s *Store) Bind(token, downloadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byToken[token] = downloadID
}

// Lookup returns the download session bound to the token.
func (s *Store) Lookup(token string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byToken[token]
	return id, ok
}

// Owns reports whether the token is bound to the given download session.
func (s *Store) Owns(token, downloadID string) bool {
	id, ok := s.Lookup(token)
	return ok && id == downloadID
}

// Unbind drops the token's binding.
func (s *Store) Unbind(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byToken, token)
}
