// package services defines interfaces for the music catalog HTTP API
package services

import (
	"context"

	"golang.org/x/oauth2"

	"moodify/internal/models"
)

// Catalog defines read operations against the music catalog, authenticated
// with a bearer token resolved per request by the session layer.
type Catalog interface {
	// Search finds tracks for the given search expression and market.
	// The result is capped at [SearchLimit] tracks by the catalog request.
	Search(ctx context.Context, accessToken, terms, market string) ([]models.Track, error)

	// Me retrieves the authenticated listener's catalog profile.
	Me(ctx context.Context, accessToken string) (models.Principal, error)

	// Name returns the name of the catalog service (e.g. "Spotify")
	Name() string
}

// Authorizer drives the authorization-code sign-in flow.
type Authorizer interface {
	// AuthURL returns the provider's authorization URL for the given CSRF state token.
	AuthURL(state string) string

	// Exchange trades an authorization code for a token pair.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}
