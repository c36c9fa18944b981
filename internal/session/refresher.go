package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"moodify/internal/shared"
)

// DefaultTokenURL is the Spotify accounts service token endpoint.
const DefaultTokenURL = "https://accounts.spotify.com/api/token"

// Refresher exchanges a refresh token for a new token set at the identity
// provider's token endpoint.
//
// Each call may consume/rotate the refresh token server-side, so callers
// must not fire concurrent refreshes for the same token; [Resolver]
// serializes them per principal.
type Refresher struct {
	clientID     string
	clientSecret string
	tokenURL     string
	httpClient   *http.Client
	now          func() time.Time
}

// NewRefresher creates a Refresher authenticating with the given client credential pair.
func NewRefresher(clientID, clientSecret string, opts ...RefresherOption) (*Refresher, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("%w: client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	r := &Refresher{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     DefaultTokenURL,
		httpClient:   http.DefaultClient,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// RefresherOption customizes a [Refresher].
type RefresherOption func(*Refresher)

// WithTokenURL overrides the token endpoint (used in tests).
func WithTokenURL(u string) RefresherOption {
	return func(r *Refresher) { r.tokenURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) RefresherOption {
	return func(r *Refresher) { r.httpClient = c }
}

// WithClock overrides the time source (used in tests).
func WithClock(now func() time.Time) RefresherOption {
	return func(r *Refresher) { r.now = now }
}

// tokenResponse is the identity provider's token grant response body.
//
// refresh_token is optional: the provider may omit it, meaning "keep the
// previous one".
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// Refresh posts a refresh_token grant and returns the replacement token set.
//
// If the response omits a new refresh token, the previous one is retained in
// the returned set. The refresh is never retried here; retry policy belongs
// to the caller.
func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (TokenSet, error) {
	if refreshToken == "" {
		return TokenSet{}, shared.ErrNoRefreshToken
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return TokenSet{}, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(r.clientID, r.clientSecret)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return TokenSet{}, ctxErr
		}
		return TokenSet{}, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return TokenSet{}, fmt.Errorf("%w: token endpoint returned status %d", shared.ErrRefreshFailed, resp.StatusCode)
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return TokenSet{}, fmt.Errorf("%w: malformed token response: %v", shared.ErrRefreshFailed, err)
	}

	if body.AccessToken == "" || body.ExpiresIn <= 0 {
		return TokenSet{}, fmt.Errorf("%w: token response missing access_token or expires_in", shared.ErrRefreshFailed)
	}

	ts := TokenSet{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
		ExpiresAt:    r.now().Add(time.Duration(body.ExpiresIn) * time.Second),
	}
	if ts.RefreshToken == "" {
		ts.RefreshToken = refreshToken
	}

	return ts, nil
}

// IsCancellation reports whether the refresh error came from the caller
// abandoning the request rather than the provider rejecting it.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
