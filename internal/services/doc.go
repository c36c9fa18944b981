// Package services implements the music catalog client.
//
// [SpotifyService] covers the two catalog operations the recommendation
// pipeline needs: track search constrained to a market with a fixed result
// cap, and the listener profile. It also drives the authorization-code
// sign-in flow via [Authorizer].
//
// The client is stateless with respect to sessions: bearer tokens are
// resolved per request by internal/session and passed into each call. Rate
// limiting (HTTP 429) is surfaced as [shared.ErrRateLimited], distinct from
// 5xx outages, so callers can present a "try again shortly" state instead of
// a hard error.
package services
