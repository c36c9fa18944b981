package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"moodify/internal/models"
	"moodify/internal/repositories"
	"moodify/internal/shared"
)

// openProfiles opens the configured database and returns the profile repository.
func (r *Runner) openProfiles() (*repositories.ProfileRepository, *sql.DB, error) {
	if r.config.Database.Path == "" {
		return nil, nil, fmt.Errorf("%w: database path not configured", shared.ErrMissingConfig)
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	return repositories.NewProfileRepository(db), db, nil
}

// currentProfile resolves the signed-in listener and loads (or creates) their
// stored taste profile.
func (r *Runner) currentProfile(ctx context.Context, repo *repositories.ProfileRepository) (*models.Profile, error) {
	if r.engine == nil {
		return nil, fmt.Errorf("%w: Spotify and Gemini credentials must be set in %s", shared.ErrMissingCredentials, r.configPath)
	}

	if err := r.seedSession(); err != nil {
		return nil, err
	}
	defer r.persistSession()

	principal, err := r.engine.Profile(ctx, localPrincipal)
	if err != nil {
		return nil, err
	}

	profile, err := repo.GetBySpotifyID(ctx, principal.ExternalID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, shared.ErrProfileNotFound) {
		return nil, err
	}

	profile = models.NewProfile(0, principal.ExternalID, principal.Email, principal.DisplayName)
	profile.SetAvatarURL(principal.AvatarURL)
	if err := repo.Create(profile); err != nil {
		return nil, err
	}

	r.logger.Info("created taste profile", "spotify_id", principal.ExternalID)
	return profile, nil
}

// ProfileShow prints the signed-in listener's taste profile.
func (r *Runner) ProfileShow(ctx context.Context, cmd *cli.Command) error {
	repo, db, err := r.openProfiles()
	if err != nil {
		return err
	}
	defer db.Close()

	profile, err := r.currentProfile(ctx, repo)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"spotify_id":   profile.SpotifyID(),
			"email":        profile.Email(),
			"display_name": profile.DisplayName(),
			"genres":       profile.Genres(),
			"artists":      profile.Artists(),
			"liked_tracks": profile.LikedTracks(),
		}, true)
	}

	r.writePlain("Profile: %s\n", profile.DisplayName())
	r.writePlain("Email: %s\n", profile.Email())
	r.writePlain("Spotify ID: %s\n\n", profile.SpotifyID())
	r.writePlain("Genres: %s\n", joinOrNone(profile.Genres()))
	r.writePlain("Artists: %s\n", joinOrNone(profile.Artists()))
	r.writePlain("Liked tracks: %d\n", len(profile.LikedTracks()))

	return nil
}

// ProfileAddGenre appends a genre to the taste profile.
func (r *Runner) ProfileAddGenre(ctx context.Context, cmd *cli.Command) error {
	return r.addTaste(ctx, cmd.StringArg("genre"), "genre", func(p *models.Profile, v string) {
		p.SetGenres(appendUnique(p.Genres(), v))
	})
}

// ProfileAddArtist appends an artist to the taste profile.
func (r *Runner) ProfileAddArtist(ctx context.Context, cmd *cli.Command) error {
	return r.addTaste(ctx, cmd.StringArg("artist"), "artist", func(p *models.Profile, v string) {
		p.SetArtists(appendUnique(p.Artists(), v))
	})
}

// ProfileLikeTrack marks a track id as liked.
func (r *Runner) ProfileLikeTrack(ctx context.Context, cmd *cli.Command) error {
	return r.addTaste(ctx, cmd.StringArg("track"), "track", func(p *models.Profile, v string) {
		p.SetLikedTracks(appendUnique(p.LikedTracks(), v))
	})
}

func (r *Runner) addTaste(ctx context.Context, value, kind string, apply func(*models.Profile, string)) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("%w: %s argument is required", shared.ErrMissingArgument, kind)
	}

	repo, db, err := r.openProfiles()
	if err != nil {
		return err
	}
	defer db.Close()

	profile, err := r.currentProfile(ctx, repo)
	if err != nil {
		return err
	}

	apply(profile, value)
	if err := repo.Update(profile); err != nil {
		return err
	}

	return r.writePlain("✓ Added %s %q\n", kind, value)
}

func appendUnique(values []string, value string) []string {
	for _, v := range values {
		if strings.EqualFold(v, value) {
			return values
		}
	}
	return append(values, value)
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "(none)"
	}
	return strings.Join(values, ", ")
}
