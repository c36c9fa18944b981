package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"moodify/internal/repositories"
	"moodify/internal/server"
	"moodify/internal/session"
	"moodify/internal/shared"
	"moodify/internal/synth"
	"moodify/internal/tasks"
)

// Serve runs the recommendation HTTP server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials

	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set", shared.ErrMissingCredentials)
	}
	if creds.Gemini.APIKey == "" {
		return fmt.Errorf("%w: Gemini api_key must be set", shared.ErrMissingCredentials)
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	refresher, err := session.NewRefresher(creds.Spotify.ClientID, creds.Spotify.ClientSecret)
	if err != nil {
		return fmt.Errorf("failed to create refresher: %w", err)
	}

	store := session.NewStore()
	resolver := session.NewResolver(store, refresher, r.logger)

	gemini, err := synth.NewGeminiClient(creds.Gemini.APIKey, creds.Gemini.Model)
	if err != nil {
		return fmt.Errorf("failed to create gemini client: %w", err)
	}
	synthesizer := synth.NewSynthesizer(gemini, r.logger)

	engine := tasks.NewRecommendEngine(resolver, synthesizer, r.spotify, r.logger)

	var profiles server.ProfileStore
	if r.config.Database.Path != "" {
		db, err := shared.NewDatabase(r.config.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
		if err := shared.RunMigrations(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		profiles = repositories.NewProfileRepository(db)
	} else {
		r.logger.Warn("no database path configured, profile routes disabled")
	}

	sessions := server.NewSessions()
	auth := server.NewAuth(r.spotify, r.spotify, store, sessions, profiles, r.logger, "/")
	api := server.NewAPI(engine, sessions, profiles, r.logger)

	srv := server.NewServer(addr, auth, api, r.logger)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.ListenAndServe(runCtx)
}
