package session

import "sync"

// Store holds token sets keyed by principal id.
//
// Session-scoped by design: tokens for different principals never share
// state, and the zero value is ready to use. The resolver is the only
// writer on the refresh path.
type Store struct {
	mu     sync.RWMutex
	tokens map[string]TokenSet
}

// NewStore creates an empty token store.
func NewStore() *Store {
	return &Store{tokens: make(map[string]TokenSet)}
}

// Get returns the token set for the principal, if one is held.
func (s *Store) Get(principalID string) (TokenSet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ts, ok := s.tokens[principalID]
	return ts, ok
}

// Put replaces the token set for the principal.
func (s *Store) Put(principalID string, ts TokenSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens == nil {
		s.tokens = make(map[string]TokenSet)
	}
	s.tokens[principalID] = ts
}

// Delete removes the principal's token set, ending the session.
func (s *Store) Delete(principalID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, principalID)
}
