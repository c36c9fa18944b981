package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"moodify/internal/shared"
)

// TokenRefresher exchanges an expired refresh token for a new token set.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (TokenSet, error)
}

// Resolver produces a valid token set for a principal on each inbound
// request, refreshing when necessary.
//
// The expire-then-refresh window is the one race in the system: two
// concurrent requests observing the same expired token must not both hit the
// token endpoint, because the provider rotates the refresh token on use.
// Refreshes are coalesced per principal with [singleflight.Group]; latecomers
// await and share the in-flight result.
type Resolver struct {
	store     *Store
	refresher TokenRefresher
	logger    *log.Logger
	group     singleflight.Group
	now       func() time.Time
}

// NewResolver creates a Resolver over the given store and refresher.
func NewResolver(store *Store, refresher TokenRefresher, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Resolver{
		store:     store,
		refresher: refresher,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock overrides the resolver's time source (used in tests).
func (r *Resolver) SetClock(now func() time.Time) {
	r.now = now
}

// Resolve returns a token set that may be presented to the catalog.
//
// The common path is a cheap read: a fresh stored set is returned unchanged
// with zero network calls. An expired set triggers exactly one refresh even
// under concurrent callers. A rejected refresh tears the session down and
// returns [shared.ErrRefreshFailed]; the caller must treat the principal as
// unauthenticated rather than retrying.
func (r *Resolver) Resolve(ctx context.Context, principalID string) (TokenSet, error) {
	if principalID == "" {
		return TokenSet{}, shared.ErrNotAuthenticated
	}

	current, ok := r.store.Get(principalID)
	if !ok {
		return TokenSet{}, shared.ErrNotAuthenticated
	}
	if current.Fresh(r.now()) {
		return current, nil
	}

	result, err, coalesced := r.group.Do(principalID, func() (any, error) {
		return r.refresh(ctx, principalID)
	})
	if err != nil {
		return TokenSet{}, err
	}
	if coalesced {
		r.logger.Debug("coalesced concurrent token refresh", "principal", principalID)
	}

	return result.(TokenSet), nil
}

// refresh runs inside the principal's single flight.
//
// The store is re-read first: a flight that completed between our expiry
// check and Do already replaced the set, and its result must be reused
// instead of burning the rotated refresh token again.
func (r *Resolver) refresh(ctx context.Context, principalID string) (TokenSet, error) {
	current, ok := r.store.Get(principalID)
	if !ok {
		return TokenSet{}, shared.ErrNotAuthenticated
	}
	if current.Fresh(r.now()) {
		return current, nil
	}

	refreshed, err := r.refresher.Refresh(ctx, current.RefreshToken)
	if err != nil {
		if IsCancellation(err) {
			// Abandoned request: commit nothing, keep the stored set for
			// the next caller to refresh.
			return TokenSet{}, fmt.Errorf("token refresh abandoned: %w", err)
		}
		if errors.Is(err, shared.ErrRefreshFailed) || errors.Is(err, shared.ErrNoRefreshToken) {
			r.logger.Warn("token refresh rejected, tearing down session", "principal", principalID, "err", err)
			r.store.Delete(principalID)
		}
		return TokenSet{}, err
	}

	r.store.Put(principalID, refreshed)
	r.logger.Info("token refreshed", "principal", principalID, "expires_at", refreshed.ExpiresAt)

	return refreshed, nil
}
