// package tasks implements the recommendation pipeline.
//
// The core abstraction is [RecommendEngine], which orchestrates one "get
// recommendations" action: resolve the principal's session, synthesize a
// catalog query from the mood text, and search the catalog. Operations emit
// progress updates via channels for non-blocking status reporting to CLI/TUI
// layers.
package tasks

import (
	"context"

	"github.com/charmbracelet/log"

	"moodify/internal/models"
	"moodify/internal/services"
	"moodify/internal/session"
	"moodify/internal/shared"
)

// RecommendResult contains all data from one recommendation run.
type RecommendResult struct {
	Directive models.SearchDirective // Synthesized catalog search directive
	Tracks    []models.Track         // Matching tracks, capped by the catalog request
	Summary   string                 // Model's human-readable summary, may be empty
}

// SessionResolver produces a valid token set for a principal.
type SessionResolver interface {
	Resolve(ctx context.Context, principalID string) (session.TokenSet, error)
}

// QuerySynthesizer turns free-text intent into a search directive.
type QuerySynthesizer interface {
	Synthesize(ctx context.Context, userText string) (models.SearchDirective, error)
}

// Engine defines the recommendation operations offered to CLI, TUI and HTTP layers.
type Engine interface {
	// Recommend performs a full mood-to-tracks run for the given principal.
	Recommend(ctx context.Context, progress chan<- ProgressUpdate, principalID, moodText string) (*RecommendResult, error)

	// Profile fetches the principal's catalog profile using a resolved token.
	Profile(ctx context.Context, principalID string) (models.Principal, error)
}

// RecommendEngine implements [Engine] over the session resolver, the query
// synthesizer and the catalog client.
//
// The engine adds no retry policy of its own: each collaborator fails fast
// with a sentinel error kind and the caller decides what to surface.
type RecommendEngine struct {
	resolver    SessionResolver
	synthesizer QuerySynthesizer
	catalog     services.Catalog
	logger      *log.Logger
}

// NewRecommendEngine creates a RecommendEngine with the provided collaborators.
func NewRecommendEngine(resolver SessionResolver, synthesizer QuerySynthesizer, catalog services.Catalog, logger *log.Logger) *RecommendEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &RecommendEngine{
		resolver:    resolver,
		synthesizer: synthesizer,
		catalog:     catalog,
		logger:      logger,
	}
}

var _ Engine = (*RecommendEngine)(nil)

// Recommend resolves the session, synthesizes the query, and searches the catalog.
//
// The session is resolved first so an unauthenticated principal fails before
// any call leaves for the language model or the catalog.
func (e *RecommendEngine) Recommend(ctx context.Context, progress chan<- ProgressUpdate, principalID, moodText string) (*RecommendResult, error) {
	emit(progress, resolveSessionUpdate())

	tokens, err := e.resolver.Resolve(ctx, principalID)
	if err != nil {
		return nil, err
	}

	emit(progress, synthesizeQueryUpdate())

	directive, err := e.synthesizer.Synthesize(ctx, moodText)
	if err != nil {
		return nil, err
	}

	emit(progress, searchCatalogUpdate(directive.Terms))

	tracks, err := e.catalog.Search(ctx, tokens.AccessToken, directive.Terms, directive.Market)
	if err != nil {
		return nil, err
	}

	emit(progress, doneUpdate(len(tracks)))

	e.logger.Info("recommendation run complete", "principal", principalID, "terms", directive.Terms, "tracks", len(tracks))

	return &RecommendResult{
		Directive: directive,
		Tracks:    tracks,
		Summary:   directive.Summary,
	}, nil
}

// Profile resolves the session and fetches the principal's catalog profile.
func (e *RecommendEngine) Profile(ctx context.Context, principalID string) (models.Principal, error) {
	tokens, err := e.resolver.Resolve(ctx, principalID)
	if err != nil {
		return models.Principal{}, err
	}

	return e.catalog.Me(ctx, tokens.AccessToken)
}
