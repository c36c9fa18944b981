package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"

	"moodify/internal/models"
	"moodify/internal/shared"
	"moodify/internal/tasks"
)

// actionResponse is the JSON envelope for every API route.
//
// Success responses carry tracks/summary or data; failures carry a message.
type actionResponse struct {
	Success bool           `json:"success"`
	Tracks  []models.Track `json:"tracks,omitempty"`
	Summary string         `json:"summary,omitempty"`
	Message string         `json:"message,omitempty"`
	Data    any            `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ProfileStore persists taste profiles for the API and CLI surfaces.
type ProfileStore interface {
	GetBySpotifyID(ctx context.Context, spotifyID string) (*models.Profile, error)
	Upsert(ctx context.Context, profile *models.Profile) error
}

// API exposes the recommendation engine and taste profiles over HTTP.
type API struct {
	engine   tasks.Engine
	sessions *Sessions
	profiles ProfileStore
	logger   *log.Logger
}

// NewAPI creates the API handler set. profiles may be nil when the server
// runs without a database; profile routes then return 503.
func NewAPI(engine tasks.Engine, sessions *Sessions, profiles ProfileStore, logger *log.Logger) *API {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &API{
		engine:   engine,
		sessions: sessions,
		profiles: profiles,
		logger:   logger,
	}
}

type suggestRequest struct {
	Query string `json:"query"`
}

// SuggestSongs handles POST /api/suggest-songs.
//
// Unauthenticated requests are rejected before any upstream call is made.
func (a *API) SuggestSongs(w http.ResponseWriter, r *http.Request) {
	principalID, ok := a.sessions.Principal(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, actionResponse{
			Success: false,
			Message: "not authenticated",
		})
		return
	}

	var req suggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, actionResponse{
			Success: false,
			Message: "invalid request body",
		})
		return
	}

	result, err := a.engine.Recommend(r.Context(), nil, principalID, req.Query)
	if err != nil {
		a.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, actionResponse{
		Success: true,
		Tracks:  result.Tracks,
		Summary: result.Summary,
	})
}

// Me handles GET /api/me.
func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	principalID, ok := a.sessions.Principal(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, actionResponse{
			Success: false,
			Message: "not authenticated",
		})
		return
	}

	principal, err := a.engine.Profile(r.Context(), principalID)
	if err != nil {
		a.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, actionResponse{Success: true, Data: principal})
}

// profilePayload is the wire shape of a taste profile.
type profilePayload struct {
	SpotifyID   string   `json:"spotify_id"`
	Email       string   `json:"email"`
	DisplayName string   `json:"display_name"`
	AvatarURL   string   `json:"avatar_url,omitempty"`
	Genres      []string `json:"genres"`
	Artists     []string `json:"artists"`
	LikedTracks []string `json:"liked_tracks"`
}

func toProfilePayload(p *models.Profile) profilePayload {
	return profilePayload{
		SpotifyID:   p.SpotifyID(),
		Email:       p.Email(),
		DisplayName: p.DisplayName(),
		AvatarURL:   p.AvatarURL(),
		Genres:      p.Genres(),
		Artists:     p.Artists(),
		LikedTracks: p.LikedTracks(),
	}
}

// GetProfile handles GET /api/profile.
func (a *API) GetProfile(w http.ResponseWriter, r *http.Request) {
	principalID, ok := a.sessions.Principal(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, actionResponse{
			Success: false,
			Message: "not authenticated",
		})
		return
	}
	if a.profiles == nil {
		writeJSON(w, http.StatusServiceUnavailable, actionResponse{
			Success: false,
			Message: "profile storage unavailable",
		})
		return
	}

	profile, err := a.profiles.GetBySpotifyID(r.Context(), principalID)
	if err != nil {
		if errors.Is(err, shared.ErrProfileNotFound) {
			writeJSON(w, http.StatusNotFound, actionResponse{
				Success: false,
				Message: "profile not found",
			})
			return
		}
		a.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, actionResponse{Success: true, Data: toProfilePayload(profile)})
}

type updateProfileRequest struct {
	Genres      []string `json:"genres"`
	Artists     []string `json:"artists"`
	LikedTracks []string `json:"liked_tracks"`
}

// UpdateProfile handles PUT /api/profile. Only the taste fields are writable;
// identity fields come from the catalog at sign-in.
func (a *API) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	principalID, ok := a.sessions.Principal(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, actionResponse{
			Success: false,
			Message: "not authenticated",
		})
		return
	}
	if a.profiles == nil {
		writeJSON(w, http.StatusServiceUnavailable, actionResponse{
			Success: false,
			Message: "profile storage unavailable",
		})
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, actionResponse{
			Success: false,
			Message: "invalid request body",
		})
		return
	}

	profile, err := a.profiles.GetBySpotifyID(r.Context(), principalID)
	if err != nil {
		if errors.Is(err, shared.ErrProfileNotFound) {
			writeJSON(w, http.StatusNotFound, actionResponse{
				Success: false,
				Message: "profile not found",
			})
			return
		}
		a.fail(w, err)
		return
	}

	if req.Genres != nil {
		profile.SetGenres(req.Genres)
	}
	if req.Artists != nil {
		profile.SetArtists(req.Artists)
	}
	if req.LikedTracks != nil {
		profile.SetLikedTracks(req.LikedTracks)
	}

	if err := a.profiles.Upsert(r.Context(), profile); err != nil {
		a.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, actionResponse{Success: true, Data: toProfilePayload(profile)})
}

// fail translates sentinel error kinds into HTTP responses.
func (a *API) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrRefreshFailed):
		writeJSON(w, http.StatusUnauthorized, actionResponse{
			Success: false,
			Message: "not authenticated",
		})
	case errors.Is(err, shared.ErrRateLimited):
		writeJSON(w, http.StatusTooManyRequests, actionResponse{
			Success: false,
			Message: "rate limited by catalog, retry later",
		})
	case errors.Is(err, shared.ErrUpstreamUnavailable):
		writeJSON(w, http.StatusBadGateway, actionResponse{
			Success: false,
			Message: "catalog unavailable",
		})
	case errors.Is(err, shared.ErrSynthesisFailed):
		a.logger.Error("query synthesis failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, actionResponse{
			Success: false,
			Message: "could not generate recommendations",
		})
	default:
		a.logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, actionResponse{
			Success: false,
			Message: "internal error",
		})
	}
}
