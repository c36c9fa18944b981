// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles setup operations for the database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles the Spotify sign-in flow
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Spotify authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authenticate with Spotify using OAuth2",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show the saved token state",
				Action: r.AuthStatus,
			},
		},
	}
}

// recommendCommand runs a one-shot mood-to-tracks pipeline
func recommendCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "recommend",
		Aliases: []string{"rec"},
		Usage:   "Get track recommendations for a mood",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "mood",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, csv, markdown",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to a file instead of stdout",
			},
		},
		Action: r.Recommend,
	}
}

// profileCommand manages the locally stored taste profile
func profileCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Taste profile operations",
		Flags: []cli.Flag{configFlag()},
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the signed-in listener's profile",
				Flags:  []cli.Flag{configFlag(), &cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}},
				Action: r.ProfileShow,
			},
			{
				Name:  "genre",
				Usage: "Add a genre to the taste profile",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "genre"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.ProfileAddGenre,
			},
			{
				Name:  "artist",
				Usage: "Add an artist to the taste profile",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "artist"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.ProfileAddArtist,
			},
			{
				Name:  "like",
				Usage: "Mark a track as liked",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "track"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.ProfileLikeTrack,
			},
		},
	}
}

// serveCommand runs the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the recommendation HTTP server",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (overrides config)",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand launches the interactive terminal UI
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Interactive mood prompt in the terminal",
		Action: r.TUI,
	}
}
