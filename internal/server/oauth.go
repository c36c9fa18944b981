package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"moodify/internal/models"
	"moodify/internal/services"
	"moodify/internal/session"
	"moodify/internal/shared"
)

// Auth implements the browser sign-in flow: redirect to the provider,
// exchange the callback code, and bind a browser session to the principal.
type Auth struct {
	authorizer services.Authorizer
	catalog    services.Catalog
	store      *session.Store
	sessions   *Sessions
	profiles   ProfileStore
	logger     *log.Logger
	redirectTo string
}

// NewAuth creates the sign-in handler set. redirectTo is where the browser
// lands after a completed callback; profiles may be nil.
func NewAuth(authorizer services.Authorizer, catalog services.Catalog, store *session.Store, sessions *Sessions, profiles ProfileStore, logger *log.Logger, redirectTo string) *Auth {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if redirectTo == "" {
		redirectTo = "/"
	}
	return &Auth{
		authorizer: authorizer,
		catalog:    catalog,
		store:      store,
		sessions:   sessions,
		profiles:   profiles,
		logger:     logger,
		redirectTo: redirectTo,
	}
}

// Login handles GET /auth/login: issue a CSRF state cookie and redirect to
// the provider's authorization page.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	state := shared.GenerateID()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})
	http.Redirect(w, r, a.authorizer.AuthURL(state), http.StatusTemporaryRedirect)
}

// Callback handles GET /auth/callback: verify state, exchange the code,
// store the token set keyed by the catalog's principal id, and issue a
// browser session.
func (a *Auth) Callback(w http.ResponseWriter, r *http.Request) {
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		a.logger.Warn("authorization denied", "error", errParam)
		writeJSON(w, http.StatusUnauthorized, actionResponse{
			Success: false,
			Message: "authorization denied",
		})
		return
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		writeJSON(w, http.StatusBadRequest, actionResponse{
			Success: false,
			Message: "state mismatch",
		})
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, actionResponse{
			Success: false,
			Message: "missing authorization code",
		})
		return
	}

	token, err := a.authorizer.Exchange(r.Context(), code)
	if err != nil {
		a.logger.Error("code exchange failed", "error", err)
		writeJSON(w, http.StatusUnauthorized, actionResponse{
			Success: false,
			Message: "authorization failed",
		})
		return
	}

	principal, err := a.catalog.Me(r.Context(), token.AccessToken)
	if err != nil {
		a.logger.Error("profile fetch failed", "error", err)
		writeJSON(w, http.StatusBadGateway, actionResponse{
			Success: false,
			Message: "could not load profile",
		})
		return
	}

	a.store.Put(principal.ExternalID, session.TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	})
	a.sessions.Issue(w, principal.ExternalID)
	a.upsertProfile(r, principal)

	http.SetCookie(w, &http.Cookie{
		Name:    stateCookie,
		Value:   "",
		Path:    "/",
		Expires: time.Unix(0, 0),
		MaxAge:  -1,
	})

	http.Redirect(w, r, a.redirectTo, http.StatusSeeOther)
}

// Logout handles POST /auth/logout: drop the browser session and the
// principal's stored token set.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if principalID, ok := a.sessions.Clear(w, r); ok {
		a.store.Delete(principalID)
	}
	writeJSON(w, http.StatusOK, actionResponse{Success: true})
}

func (a *Auth) upsertProfile(r *http.Request, principal models.Principal) {
	if a.profiles == nil {
		return
	}

	existing, err := a.profiles.GetBySpotifyID(r.Context(), principal.ExternalID)
	if err == nil {
		existing.SetDisplayName(principal.DisplayName)
		existing.SetAvatarURL(principal.AvatarURL)
		if err := a.profiles.Upsert(r.Context(), existing); err != nil {
			a.logger.Warn("profile update failed", "error", err)
		}
		return
	}

	profile := models.NewProfile(0, principal.ExternalID, principal.Email, principal.DisplayName)
	profile.SetAvatarURL(principal.AvatarURL)
	if err := a.profiles.Upsert(r.Context(), profile); err != nil {
		a.logger.Warn("profile create failed", "error", err)
	}
}
