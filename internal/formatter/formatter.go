// package formatter provides functions to render recommendation results to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"moodify/internal/models"
	"moodify/internal/shared"
	"moodify/internal/tasks"
)

// ToCSV converts a recommendation result to CSV format with columns: ID, Title, Artists, Album, Duration
func ToCSV(result *tasks.RecommendResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artists", "Album", "Duration"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range result.Tracks {
		record := []string{
			track.ID,
			track.Name,
			strings.Join(track.Artists, "; "),
			track.Album.Name,
			shared.FormatDuration(track.DurationMS),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ToMarkdown converts a recommendation result to Markdown with the model's summary up top
func ToMarkdown(result *tasks.RecommendResult) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Recommendations\n\n")

	if result.Summary != "" {
		buf.WriteString(fmt.Sprintf("> %s\n\n", result.Summary))
	}

	buf.WriteString(fmt.Sprintf("**Query**: %s\n", result.Directive.Terms))
	if result.Directive.Market != "" {
		buf.WriteString(fmt.Sprintf("**Market**: %s\n", result.Directive.Market))
	}
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n\n", len(result.Tracks)))

	buf.WriteString("## Tracks\n\n")
	for i, track := range result.Tracks {
		albumPart := ""
		if track.Album.Name != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album.Name)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s [%s]\n",
			i+1, strings.Join(track.Artists, ", "), track.Name, albumPart, shared.FormatDuration(track.DurationMS)))
	}

	return buf.Bytes()
}

// ToText converts a recommendation result to plain text for terminal output
func ToText(result *tasks.RecommendResult) []byte {
	var buf bytes.Buffer

	if result.Summary != "" {
		buf.WriteString(result.Summary + "\n\n")
	}
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(result.Tracks)))

	for i, track := range result.Tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s [%s]\n",
			i+1, strings.Join(track.Artists, ", "), track.Name, shared.FormatDuration(track.DurationMS)))
	}

	return buf.Bytes()
}

// TrackLine renders one track the way the TUI's list items do.
func TrackLine(track models.Track) string {
	return fmt.Sprintf("%s - %s", strings.Join(track.Artists, ", "), track.Name)
}
