package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"moodify/internal/models"
	"moodify/internal/session"
	"moodify/internal/shared"
)

type stubResolver struct {
	tokens session.TokenSet
	err    error
	calls  int
}

func (s *stubResolver) Resolve(ctx context.Context, principalID string) (session.TokenSet, error) {
	s.calls++
	return s.tokens, s.err
}

type stubSynthesizer struct {
	directive models.SearchDirective
	err       error
	calls     int
}

func (s *stubSynthesizer) Synthesize(ctx context.Context, userText string) (models.SearchDirective, error) {
	s.calls++
	return s.directive, s.err
}

type stubCatalog struct {
	tracks    []models.Track
	principal models.Principal
	err       error
	calls     int
	gotToken  string
	gotTerms  string
	gotMarket string
}

func (s *stubCatalog) Search(ctx context.Context, accessToken, terms, market string) ([]models.Track, error) {
	s.calls++
	s.gotToken, s.gotTerms, s.gotMarket = accessToken, terms, market
	return s.tracks, s.err
}

func (s *stubCatalog) Me(ctx context.Context, accessToken string) (models.Principal, error) {
	s.calls++
	s.gotToken = accessToken
	return s.principal, s.err
}

func (s *stubCatalog) Name() string { return "stub" }

func TestRecommendEngine(t *testing.T) {
	tokens := session.TokenSet{AccessToken: "at", RefreshToken: "rt", ExpiresAt: time.Now().Add(5 * time.Minute)}

	t.Run("happy path wires resolver, synthesizer and catalog", func(t *testing.T) {
		resolver := &stubResolver{tokens: tokens}
		synthesizer := &stubSynthesizer{directive: models.SearchDirective{
			Terms: "jazz+genre:jazz", Market: "US", Summary: "You like jazz.",
		}}
		catalog := &stubCatalog{tracks: []models.Track{{ID: "t1", Name: "Doxy"}}}

		engine := NewRecommendEngine(resolver, synthesizer, catalog, nil)

		progress := make(chan ProgressUpdate, 8)
		result, err := engine.Recommend(context.Background(), progress, "alice", "upbeat jazz for studying")
		if err != nil {
			t.Fatalf("expected recommend to succeed, got %v", err)
		}

		if catalog.gotToken != "at" {
			t.Errorf("expected resolved token passed to catalog, got %q", catalog.gotToken)
		}
		if catalog.gotTerms != "jazz+genre:jazz" || catalog.gotMarket != "US" {
			t.Errorf("expected directive passed to catalog, got %q/%q", catalog.gotTerms, catalog.gotMarket)
		}
		if len(result.Tracks) != 1 || result.Tracks[0].Name != "Doxy" {
			t.Errorf("unexpected tracks %+v", result.Tracks)
		}
		if result.Summary != "You like jazz." {
			t.Errorf("unexpected summary %q", result.Summary)
		}

		close(progress)
		var phases []Phase
		for update := range progress {
			phases = append(phases, update.Phase)
		}
		want := []Phase{ResolveSession, SynthesizeQuery, SearchCatalog, Done}
		if len(phases) != len(want) {
			t.Fatalf("expected %d progress updates, got %d", len(want), len(phases))
		}
		for i, phase := range want {
			if phases[i] != phase {
				t.Errorf("update %d: expected phase %s, got %s", i, phase, phases[i])
			}
		}
	})

	t.Run("unauthenticated principal makes no downstream calls", func(t *testing.T) {
		resolver := &stubResolver{err: shared.ErrNotAuthenticated}
		synthesizer := &stubSynthesizer{}
		catalog := &stubCatalog{}

		engine := NewRecommendEngine(resolver, synthesizer, catalog, nil)

		_, err := engine.Recommend(context.Background(), nil, "nobody", "anything")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if synthesizer.calls != 0 {
			t.Error("expected no synthesizer call for unauthenticated principal")
		}
		if catalog.calls != 0 {
			t.Error("expected no catalog call for unauthenticated principal")
		}
	})

	t.Run("synthesis failure stops before the catalog", func(t *testing.T) {
		resolver := &stubResolver{tokens: tokens}
		synthesizer := &stubSynthesizer{err: shared.ErrSynthesisFailed}
		catalog := &stubCatalog{}

		engine := NewRecommendEngine(resolver, synthesizer, catalog, nil)

		_, err := engine.Recommend(context.Background(), nil, "alice", "anything")
		if !errors.Is(err, shared.ErrSynthesisFailed) {
			t.Errorf("expected ErrSynthesisFailed, got %v", err)
		}
		if catalog.calls != 0 {
			t.Error("expected no catalog call after synthesis failure")
		}
	})

	t.Run("catalog errors pass through untranslated", func(t *testing.T) {
		resolver := &stubResolver{tokens: tokens}
		synthesizer := &stubSynthesizer{directive: models.SearchDirective{Terms: "x", Market: "US"}}
		catalog := &stubCatalog{err: shared.ErrRateLimited}

		engine := NewRecommendEngine(resolver, synthesizer, catalog, nil)

		_, err := engine.Recommend(context.Background(), nil, "alice", "anything")
		if !errors.Is(err, shared.ErrRateLimited) {
			t.Errorf("expected ErrRateLimited, got %v", err)
		}
	})

	t.Run("nil progress channel is allowed", func(t *testing.T) {
		resolver := &stubResolver{tokens: tokens}
		synthesizer := &stubSynthesizer{directive: models.SearchDirective{Terms: "x", Market: "US"}}
		catalog := &stubCatalog{}

		engine := NewRecommendEngine(resolver, synthesizer, catalog, nil)

		if _, err := engine.Recommend(context.Background(), nil, "alice", "anything"); err != nil {
			t.Errorf("expected recommend to succeed without progress channel, got %v", err)
		}
	})

	t.Run("Profile resolves the session first", func(t *testing.T) {
		resolver := &stubResolver{tokens: tokens}
		catalog := &stubCatalog{principal: models.Principal{ExternalID: "u1", Email: "a@b.co"}}

		engine := NewRecommendEngine(resolver, &stubSynthesizer{}, catalog, nil)

		principal, err := engine.Profile(context.Background(), "alice")
		if err != nil {
			t.Fatalf("expected profile to succeed, got %v", err)
		}
		if principal.ExternalID != "u1" {
			t.Errorf("unexpected principal %+v", principal)
		}
		if catalog.gotToken != "at" {
			t.Errorf("expected resolved token passed to catalog, got %q", catalog.gotToken)
		}

		resolver.err = shared.ErrNotAuthenticated
		if _, err := engine.Profile(context.Background(), "alice"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}
