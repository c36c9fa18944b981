package session

import "time"

// ExpirySkew is subtracted from a token's lifetime when judging freshness so
// a token is never presented to the catalog right at its expiry instant.
const ExpirySkew = 30 * time.Second

// TokenSet holds the access/refresh token pair and expiry instant for one
// principal's session.
//
// ExpiresAt reflects the issuing server's stated lifetime at the moment of
// the last successful (re)issue. The set is replaced wholesale by a
// successful refresh and never partially mutated.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Fresh reports whether the access token may still be presented at the given instant.
func (t TokenSet) Fresh(now time.Time) bool {
	return now.Before(t.ExpiresAt.Add(-ExpirySkew))
}
