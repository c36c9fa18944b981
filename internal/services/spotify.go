// Spotify API implementation of [Catalog]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"

	"moodify/internal/models"
	"moodify/internal/shared"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// SearchLimit caps every catalog search request.
	SearchLimit = 10
)

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Followers   followers      `json:"followers"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	Explicit   bool            `json:"explicit"`
	PreviewURL string          `json:"preview_url"`
	Popularity int             `json:"popularity"`
	URI        string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	Images      []SpotifyImage  `json:"images"`
	URI         string          `json:"uri"`
}

// spotifySearchResponse is the /search envelope constrained to tracks.
type spotifySearchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
		Total int            `json:"total"`
	} `json:"tracks"`
}

// SpotifyService implements [Catalog] and [Authorizer] for Spotify API interactions.
//
// The service holds no token state: bearer tokens are resolved per request by
// the session layer and passed to each call, so one client serves all
// principals.
type SpotifyService struct {
	config     *oauth2.Config
	httpClient *http.Client
	baseURL    string
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:3000/auth/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-email",
			"playlist-read-private",
			"playlist-read-collaborative",
			"user-read-currently-playing",
			"user-modify-playback-state",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: http.DefaultClient,
		baseURL:    spotifyBaseURL,
	}, nil
}

// SetBaseURL overrides the API base URL (used in tests).
func (s *SpotifyService) SetBaseURL(u string) {
	s.baseURL = u
}

// SetHTTPClient overrides the HTTP client.
func (s *SpotifyService) SetHTTPClient(c *http.Client) {
	s.httpClient = c
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for tokens.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// doRequest performs an authenticated GET against the Spotify API and decodes
// the JSON response into result.
//
// Status mapping: 401 means the presented token is no longer valid, 429 is
// the catalog's rate-limit signal and is surfaced distinctly so callers can
// back off rather than hard-fail, and 5xx is a generic upstream outage.
func (s *SpotifyService) doRequest(ctx context.Context, accessToken, endpoint string, result any) error {
	if accessToken == "" {
		return shared.ErrNotAuthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: catalog rejected token", shared.ErrNotAuthenticated)
	case resp.StatusCode == http.StatusTooManyRequests:
		if retry := resp.Header.Get("Retry-After"); retry != "" {
			return fmt.Errorf("%w: retry after %ss", shared.ErrRateLimited, retry)
		}
		return shared.ErrRateLimited
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: spotify API status %d", shared.ErrUpstreamUnavailable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("spotify API error: status %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// Me retrieves the current listener's profile.
func (s *SpotifyService) Me(ctx context.Context, accessToken string) (models.Principal, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, accessToken, "/me", &user); err != nil {
		return models.Principal{}, err
	}

	principal := models.Principal{
		ExternalID:  user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}
	if len(user.Images) > 0 {
		principal.AvatarURL = user.Images[0].URL
	}

	return principal, nil
}

// Search queries the catalog for tracks matching the search expression in the
// given market.
//
// Tracks lacking a preview URL are not filtered out; that is a presentation
// concern.
func (s *SpotifyService) Search(ctx context.Context, accessToken, terms, market string) ([]models.Track, error) {
	if terms == "" {
		return nil, fmt.Errorf("%w: empty search terms", shared.ErrInvalidArgument)
	}

	// The synthesizer emits terms already percent-encoded for the wire
	// (spaces as %20, fields joined with +), so they go into the query
	// string verbatim; escaping them again would corrupt the search.
	endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=%d", terms, SearchLimit)
	if market != "" {
		endpoint += "&market=" + url.QueryEscape(market)
	}

	var response spotifySearchResponse
	if err := s.doRequest(ctx, accessToken, endpoint, &response); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(response.Tracks.Items))
	for _, st := range response.Tracks.Items {
		tracks = append(tracks, toTrack(st))
	}

	return tracks, nil
}

// toTrack converts a Spotify track payload into the domain [models.Track].
func toTrack(st SpotifyTrack) models.Track {
	track := models.Track{
		ID:         st.ID,
		Name:       st.Name,
		DurationMS: st.DurationMS,
		PreviewURL: st.PreviewURL,
	}

	for _, artist := range st.Artists {
		track.Artists = append(track.Artists, artist.Name)
	}

	track.Album.Name = st.Album.Name
	for _, img := range st.Album.Images {
		track.Album.Images = append(track.Album.Images, models.Image{
			URL:    img.URL,
			Height: img.Height,
			Width:  img.Width,
		})
	}

	return track
}
