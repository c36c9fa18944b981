package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"moodify/internal/formatter"
	"moodify/internal/shared"
	"moodify/internal/tasks"
)

// Recommend runs a one-shot mood-to-tracks pipeline and prints the result.
func (r *Runner) Recommend(ctx context.Context, cmd *cli.Command) error {
	moodText := cmd.StringArg("mood")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")
	format := cmd.String("format")
	outputFile := cmd.String("output")

	if r.engine == nil {
		return fmt.Errorf("%w: Spotify and Gemini credentials must be set in %s", shared.ErrMissingCredentials, r.configPath)
	}

	if err := r.seedSession(); err != nil {
		return err
	}
	defer r.persistSession()

	progress := make(chan tasks.ProgressUpdate, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase.String())
		}
	}()

	result, err := r.engine.Recommend(ctx, progress, localPrincipal, moodText)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(result, pretty)
	}

	var rendered []byte
	switch strings.ToLower(format) {
	case "", "text":
		rendered = formatter.ToText(result)
	case "csv":
		if rendered, err = formatter.ToCSV(result); err != nil {
			return err
		}
	case "markdown", "md":
		rendered = formatter.ToMarkdown(result)
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, rendered, 0644); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
		r.writePlain("✓ Recommendations written to %s\n", outputFile)
		return nil
	}

	return r.writePlain("%s", rendered)
}
