package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"moodify/internal/services"
	"moodify/internal/session"
	"moodify/internal/shared"
	"moodify/internal/synth"
	"moodify/internal/tasks"
)

// localPrincipal keys the CLI's own token set in the session store. The CLI
// serves one signed-in listener, unlike the HTTP server which keys sessions
// by Spotify account id.
const localPrincipal = "local"

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	spotify    *services.SpotifyService
	store      *session.Store
	engine     tasks.Engine
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Spotify    *services.SpotifyService
	Engine     tasks.Engine
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = "config.toml"
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		spotify:    opts.Spotify,
		store:      session.NewStore(),
		engine:     opts.Engine,
		logger:     opts.Logger,
		output:     opts.Output,
	}

	if r.engine == nil {
		r.engine = r.buildEngine()
	}

	return r
}

// buildEngine assembles the recommendation pipeline from the loaded config.
// Returns nil when credentials are incomplete; commands that need the engine
// report the missing pieces themselves.
func (r *Runner) buildEngine() tasks.Engine {
	creds := r.config.Credentials

	if r.spotify == nil || creds.Gemini.APIKey == "" {
		return nil
	}

	refresher, err := session.NewRefresher(creds.Spotify.ClientID, creds.Spotify.ClientSecret)
	if err != nil {
		r.logger.Debug("refresher unavailable", "error", err)
		return nil
	}
	resolver := session.NewResolver(r.store, refresher, r.logger)

	gemini, err := synth.NewGeminiClient(creds.Gemini.APIKey, creds.Gemini.Model)
	if err != nil {
		r.logger.Debug("gemini client unavailable", "error", err)
		return nil
	}
	synthesizer := synth.NewSynthesizer(gemini, r.logger)

	return tasks.NewRecommendEngine(resolver, synthesizer, r.spotify, r.logger)
}

// seedSession loads the config's saved token pair into the session store
// under the CLI principal.
func (r *Runner) seedSession() error {
	creds := r.config.Credentials.Spotify
	if creds.AccessToken == "" && creds.RefreshToken == "" {
		return fmt.Errorf("%w: run 'moodify auth login' first", shared.ErrNotAuthenticated)
	}

	r.store.Put(localPrincipal, session.TokenSet{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		ExpiresAt:    time.Unix(creds.ExpiresAt, 0),
	})
	return nil
}

// persistSession writes any rotated tokens back to the config file so the
// next invocation starts from the refreshed pair.
func (r *Runner) persistSession() {
	tokens, ok := r.store.Get(localPrincipal)
	if !ok {
		return
	}

	creds := &r.config.Credentials.Spotify
	if tokens.AccessToken == creds.AccessToken && tokens.RefreshToken == creds.RefreshToken {
		return
	}

	creds.AccessToken = tokens.AccessToken
	creds.RefreshToken = tokens.RefreshToken
	creds.ExpiresAt = tokens.ExpiresAt.Unix()

	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		r.logger.Warn("failed to persist refreshed tokens", "error", err)
	}
}

// SetLogger swaps the runner's logger, used when the TUI redirects logs to a file.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, recommendCommand, profileCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
