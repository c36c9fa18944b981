// Package session implements the OAuth token lifecycle for authenticated listeners.
//
// Three pieces cooperate per principal:
//
//   - [Store] holds the current [TokenSet] (access token, refresh token, expiry instant)
//   - [Refresher] exchanges an expired refresh token at the identity provider's token endpoint
//   - [Resolver] produces a valid set on each inbound request, refreshing when necessary
//
// The token moves through Fresh → Expired → Refreshing → Fresh. The refresh
// transition is the only shared write and the only race worth guarding: the
// provider rotates refresh tokens on use, so concurrent resolvers for one
// principal are coalesced into a single flight and share its result. A
// rejected refresh deletes the stored set, forcing re-authentication, since
// continuing with a stale or rotated token corrupts the session.
package session
