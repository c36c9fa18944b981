package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"moodify/internal/models"
	"moodify/internal/session"
	"moodify/internal/shared"
	"moodify/internal/tasks"
)

type stubEngine struct {
	result    *tasks.RecommendResult
	err       error
	principal models.Principal
	calls     int
}

func (s *stubEngine) Recommend(ctx context.Context, progress chan<- tasks.ProgressUpdate, principalID, moodText string) (*tasks.RecommendResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubEngine) Profile(ctx context.Context, principalID string) (models.Principal, error) {
	s.calls++
	if s.err != nil {
		return models.Principal{}, s.err
	}
	return s.principal, nil
}

type stubAuthorizer struct {
	token *oauth2.Token
	err   error
}

func (s *stubAuthorizer) AuthURL(state string) string {
	return "https://accounts.example.com/authorize?state=" + state
}

func (s *stubAuthorizer) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.token, nil
}

type stubCatalog struct {
	principal models.Principal
	tracks    []models.Track
	err       error
}

func (s *stubCatalog) Search(ctx context.Context, accessToken, terms, market string) ([]models.Track, error) {
	return s.tracks, s.err
}

func (s *stubCatalog) Me(ctx context.Context, accessToken string) (models.Principal, error) {
	return s.principal, s.err
}

func (s *stubCatalog) Name() string { return "stub" }

type memProfiles struct {
	byID map[string]*models.Profile
}

func newMemProfiles() *memProfiles {
	return &memProfiles{byID: make(map[string]*models.Profile)}
}

func (m *memProfiles) GetBySpotifyID(ctx context.Context, spotifyID string) (*models.Profile, error) {
	p, ok := m.byID[spotifyID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrProfileNotFound, spotifyID)
	}
	return p, nil
}

func (m *memProfiles) Upsert(ctx context.Context, profile *models.Profile) error {
	m.byID[profile.SpotifyID()] = profile
	return nil
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) actionResponse {
	t.Helper()
	var resp actionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp
}

// signIn issues a session for the principal and returns the cookie to attach
// to subsequent requests.
func signIn(t *testing.T, sessions *Sessions, principalID string) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	sessions.Issue(rec, principalID)
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie")
	}
	return cookies[0]
}

func TestSessions(t *testing.T) {
	sessions := NewSessions()

	t.Run("issue binds cookie to principal", func(t *testing.T) {
		cookie := signIn(t, sessions, "principal-1")

		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.AddCookie(cookie)

		principalID, ok := sessions.Principal(req)
		if !ok || principalID != "principal-1" {
			t.Errorf("expected principal-1, got %q ok=%v", principalID, ok)
		}
	})

	t.Run("unknown cookie resolves nothing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "bogus"})

		if _, ok := sessions.Principal(req); ok {
			t.Error("expected unknown session to miss")
		}
	})

	t.Run("clear drops the session", func(t *testing.T) {
		cookie := signIn(t, sessions, "principal-2")

		req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()

		principalID, ok := sessions.Clear(rec, req)
		if !ok || principalID != "principal-2" {
			t.Fatalf("expected principal-2, got %q ok=%v", principalID, ok)
		}

		if _, ok := sessions.Principal(req); ok {
			t.Error("session should be gone after clear")
		}
	})
}

func TestSuggestSongs(t *testing.T) {
	tracks := []models.Track{
		{ID: "t1", Name: "So What", Artists: []string{"Miles Davis"}},
		{ID: "t2", Name: "Doxy", Artists: []string{"Miles Davis"}},
	}

	t.Run("unauthenticated makes no engine call", func(t *testing.T) {
		engine := &stubEngine{}
		api := NewAPI(engine, NewSessions(), nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/suggest-songs", strings.NewReader(`{"query":"rainy day jazz"}`))
		rec := httptest.NewRecorder()
		api.SuggestSongs(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
		resp := decodeResponse(t, rec)
		if resp.Success || resp.Message != "not authenticated" {
			t.Errorf("unexpected envelope: %+v", resp)
		}
		if engine.calls != 0 {
			t.Errorf("expected zero engine calls, got %d", engine.calls)
		}
	})

	t.Run("happy path returns tracks and summary", func(t *testing.T) {
		engine := &stubEngine{result: &tasks.RecommendResult{Tracks: tracks, Summary: "Cool-toned classics."}}
		sessions := NewSessions()
		api := NewAPI(engine, sessions, nil, nil)
		cookie := signIn(t, sessions, "principal-1")

		req := httptest.NewRequest(http.MethodPost, "/api/suggest-songs", strings.NewReader(`{"query":"rainy day jazz"}`))
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		api.SuggestSongs(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		resp := decodeResponse(t, rec)
		if !resp.Success || len(resp.Tracks) != 2 || resp.Summary != "Cool-toned classics." {
			t.Errorf("unexpected envelope: %+v", resp)
		}
	})

	t.Run("malformed body rejected", func(t *testing.T) {
		engine := &stubEngine{}
		sessions := NewSessions()
		api := NewAPI(engine, sessions, nil, nil)
		cookie := signIn(t, sessions, "principal-1")

		req := httptest.NewRequest(http.MethodPost, "/api/suggest-songs", strings.NewReader("{"))
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		api.SuggestSongs(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if engine.calls != 0 {
			t.Errorf("expected zero engine calls, got %d", engine.calls)
		}
	})

	t.Run("error mapping", func(t *testing.T) {
		cases := []struct {
			name       string
			err        error
			wantStatus int
		}{
			{"stale session", shared.ErrNotAuthenticated, http.StatusUnauthorized},
			{"refresh rejection", shared.ErrRefreshFailed, http.StatusUnauthorized},
			{"rate limited", shared.ErrRateLimited, http.StatusTooManyRequests},
			{"catalog outage", shared.ErrUpstreamUnavailable, http.StatusBadGateway},
			{"synthesis failure", shared.ErrSynthesisFailed, http.StatusInternalServerError},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				sessions := NewSessions()
				api := NewAPI(&stubEngine{err: fmt.Errorf("%w: upstream said no", tc.err)}, sessions, nil, nil)
				cookie := signIn(t, sessions, "principal-1")

				req := httptest.NewRequest(http.MethodPost, "/api/suggest-songs", strings.NewReader(`{"query":"anything"}`))
				req.AddCookie(cookie)
				rec := httptest.NewRecorder()
				api.SuggestSongs(rec, req)

				if rec.Code != tc.wantStatus {
					t.Errorf("expected %d, got %d", tc.wantStatus, rec.Code)
				}
				if resp := decodeResponse(t, rec); resp.Success {
					t.Error("failure envelope should have success=false")
				}
			})
		}
	})
}

func TestMe(t *testing.T) {
	sessions := NewSessions()
	engine := &stubEngine{principal: models.Principal{
		ExternalID:  "sp-1",
		Email:       "listener@example.com",
		DisplayName: "Listener",
	}}
	api := NewAPI(engine, sessions, nil, nil)
	cookie := signIn(t, sessions, "sp-1")

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	api.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if !resp.Success || resp.Data == nil {
		t.Errorf("unexpected envelope: %+v", resp)
	}
}

func TestProfileRoutes(t *testing.T) {
	t.Run("missing profile is 404", func(t *testing.T) {
		sessions := NewSessions()
		api := NewAPI(&stubEngine{}, sessions, newMemProfiles(), nil)
		cookie := signIn(t, sessions, "sp-1")

		req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		api.GetProfile(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("update rewrites taste fields only", func(t *testing.T) {
		sessions := NewSessions()
		profiles := newMemProfiles()
		profile := models.NewProfile(1, "sp-1", "listener@example.com", "Listener")
		if err := profiles.Upsert(context.Background(), profile); err != nil {
			t.Fatal(err)
		}

		api := NewAPI(&stubEngine{}, sessions, profiles, nil)
		cookie := signIn(t, sessions, "sp-1")

		body := bytes.NewBufferString(`{"genres":["jazz","bebop"],"artists":["Miles Davis"]}`)
		req := httptest.NewRequest(http.MethodPut, "/api/profile", body)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		api.UpdateProfile(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		updated, err := profiles.GetBySpotifyID(context.Background(), "sp-1")
		if err != nil {
			t.Fatal(err)
		}
		if len(updated.Genres()) != 2 || updated.Genres()[1] != "bebop" {
			t.Errorf("genres not updated: %v", updated.Genres())
		}
		if updated.Email() != "listener@example.com" {
			t.Error("identity fields must not change on PUT")
		}
	})

	t.Run("no storage is 503", func(t *testing.T) {
		sessions := NewSessions()
		api := NewAPI(&stubEngine{}, sessions, nil, nil)
		cookie := signIn(t, sessions, "sp-1")

		req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		api.GetProfile(rec, req)

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", rec.Code)
		}
	})
}

func TestAuthFlow(t *testing.T) {
	principal := models.Principal{
		ExternalID:  "sp-42",
		Email:       "listener@example.com",
		DisplayName: "Listener",
	}
	token := &oauth2.Token{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		Expiry:       time.Now().Add(time.Hour),
	}

	newAuth := func(profiles ProfileStore) (*Auth, *session.Store, *Sessions) {
		store := session.NewStore()
		sessions := NewSessions()
		auth := NewAuth(&stubAuthorizer{token: token}, &stubCatalog{principal: principal}, store, sessions, profiles, nil, "/app")
		return auth, store, sessions
	}

	t.Run("login redirects with state cookie", func(t *testing.T) {
		auth, _, _ := newAuth(nil)

		req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
		rec := httptest.NewRecorder()
		auth.Login(rec, req)

		if rec.Code != http.StatusTemporaryRedirect {
			t.Fatalf("expected 307, got %d", rec.Code)
		}

		var state string
		for _, c := range rec.Result().Cookies() {
			if c.Name == stateCookie {
				state = c.Value
			}
		}
		if state == "" {
			t.Fatal("expected a state cookie")
		}
		if loc := rec.Header().Get("Location"); !strings.Contains(loc, "state="+state) {
			t.Errorf("redirect %q does not carry state", loc)
		}
	})

	t.Run("callback stores tokens and issues session", func(t *testing.T) {
		profiles := newMemProfiles()
		auth, store, sessions := newAuth(profiles)

		req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=s1", nil)
		req.AddCookie(&http.Cookie{Name: stateCookie, Value: "s1"})
		rec := httptest.NewRecorder()
		auth.Callback(rec, req)

		if rec.Code != http.StatusSeeOther {
			t.Fatalf("expected 303, got %d: %s", rec.Code, rec.Body.String())
		}

		tokens, ok := store.Get(principal.ExternalID)
		if !ok || tokens.AccessToken != "access-1" || tokens.RefreshToken != "refresh-1" {
			t.Errorf("token set not stored: %+v ok=%v", tokens, ok)
		}

		authed := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		for _, c := range rec.Result().Cookies() {
			if c.Name == SessionCookie {
				authed.AddCookie(c)
			}
		}
		if principalID, ok := sessions.Principal(authed); !ok || principalID != principal.ExternalID {
			t.Errorf("session not bound to principal: %q ok=%v", principalID, ok)
		}

		if _, err := profiles.GetBySpotifyID(context.Background(), principal.ExternalID); err != nil {
			t.Errorf("expected profile upsert on first sign-in: %v", err)
		}
	})

	t.Run("state mismatch rejected", func(t *testing.T) {
		auth, store, _ := newAuth(nil)

		req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=other", nil)
		req.AddCookie(&http.Cookie{Name: stateCookie, Value: "s1"})
		rec := httptest.NewRecorder()
		auth.Callback(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if _, ok := store.Get(principal.ExternalID); ok {
			t.Error("no tokens should be stored on state mismatch")
		}
	})

	t.Run("provider error surfaces as 401", func(t *testing.T) {
		auth, _, _ := newAuth(nil)

		req := httptest.NewRequest(http.MethodGet, "/auth/callback?error=access_denied", nil)
		rec := httptest.NewRecorder()
		auth.Callback(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("logout drops session and tokens", func(t *testing.T) {
		auth, store, sessions := newAuth(nil)
		store.Put("sp-42", session.TokenSet{AccessToken: "access-1"})
		cookie := signIn(t, sessions, "sp-42")

		req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		auth.Logout(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		if _, ok := store.Get("sp-42"); ok {
			t.Error("token set should be deleted on logout")
		}
	})
}

func TestRouterMethodCheck(t *testing.T) {
	router := NewBasicRouter()
	router.Handle(http.MethodPost, "/api/suggest-songs", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/suggest-songs", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestRouterHandleMethods(t *testing.T) {
	router := NewBasicRouter()
	router.HandleMethods("/api/profile", map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
		http.MethodPut: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
	})

	for method, want := range map[string]int{
		http.MethodGet:    http.StatusOK,
		http.MethodPut:    http.StatusNoContent,
		http.MethodDelete: http.StatusMethodNotAllowed,
	} {
		req := httptest.NewRequest(method, "/api/profile", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("%s: expected %d, got %d", method, want, rec.Code)
		}
	}
}

func TestServerRoutes(t *testing.T) {
	engine := &stubEngine{result: &tasks.RecommendResult{Summary: "ok"}}
	sessions := NewSessions()
	api := NewAPI(engine, sessions, nil, nil)
	auth := NewAuth(&stubAuthorizer{token: &oauth2.Token{AccessToken: "a"}}, &stubCatalog{}, session.NewStore(), sessions, nil, nil, "/")

	srv := NewServer(":0", auth, api, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 from /healthz, got %d", resp.StatusCode)
	}
}
