package server

import (
	"net/http"
	"sync"
	"time"

	"moodify/internal/shared"
)

// SessionCookie is the name of the browser session cookie.
const SessionCookie = "moodify_session"

// stateCookie carries the OAuth CSRF state between /auth/login and the callback.
const stateCookie = "moodify_oauth_state"

// Sessions maps opaque browser session ids to principal ids.
//
// Cookie payloads never contain tokens; the token sets live in the session
// store keyed by principal, so two browsers signed in as different listeners
// can never observe each other's tokens.
type Sessions struct {
	mu         sync.RWMutex
	principals map[string]string
}

// NewSessions creates an empty session registry.
func NewSessions() *Sessions {
	return &Sessions{principals: make(map[string]string)}
}

// Issue creates a session for the principal and sets the browser cookie.
func (s *Sessions) Issue(w http.ResponseWriter, principalID string) string {
	id := shared.GenerateID()

	s.mu.Lock()
	s.principals[id] = principalID
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// Principal returns the principal id for the request's session cookie.
func (s *Sessions) Principal(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	principalID, ok := s.principals[cookie.Value]
	return principalID, ok
}

// Clear removes the request's session and expires the cookie.
//
// Returns the principal id the session belonged to, if any, so the caller
// can also drop the stored token set.
func (s *Sessions) Clear(w http.ResponseWriter, r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	s.mu.Lock()
	principalID, ok := s.principals[cookie.Value]
	delete(s.principals, cookie.Value)
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})

	return principalID, ok
}
