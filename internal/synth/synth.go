package synth

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"moodify/internal/models"
	"moodify/internal/shared"
)

// Delimiter separates the fields of the model's one-line answer.
const Delimiter = "||"

// DefaultIntent replaces empty or whitespace-only user text so the pipeline
// never sends an empty query to the language model.
const DefaultIntent = "I want to listen to some music, be unique and different based on current music trends and think of some good search query"

const promptTemplate = `You are a friendly Spotify search expert. For the user query "%s", provide:

searchQuery||market||summary

searchQuery: Extract 2-3 key terms. Use Spotify syntax (artist, album, track, year, genre, isrc, upc, tag:new, tag:hipster). Format: term1+term2+field:filter. URL encode special characters.

market: Use relevant ISO 3166-1 alpha-2 country code.

summary: In 2-3 lines, provide a polite, human-like summary:
1. "According to your search, we find you have great interest in..."
2. Suggest related artists or genres: "You might like..."
3. End with: "Here are the best results we found on Spotify according to your preference."

Example:
remaster%%20track:Doxy%%20artist:Miles%%20Davis||US||According to your search, we find you have great interest in Miles Davis and jazz remastered tracks. You might like other jazz legends such as John Coltrane or Thelonious Monk. Here are the best results we found on Spotify according to your preference.

Provide only the searchQuery||market||summary format without extra text.`

// TextGenerator produces a raw text completion for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Synthesizer turns free-text listener intent into a [models.SearchDirective]
// via a language-model round trip and a delimiter parse of the response.
type Synthesizer struct {
	generator TextGenerator
	logger    *log.Logger
}

// NewSynthesizer creates a Synthesizer over the given text generator.
func NewSynthesizer(generator TextGenerator, logger *log.Logger) *Synthesizer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Synthesizer{generator: generator, logger: logger}
}

// Synthesize builds the instruction prompt for the user's text, sends it to
// the model, and parses the single-line answer into a directive.
//
// Empty or whitespace-only text is substituted with [DefaultIntent] before
// the call. A failed model call or an answer lacking the delimiter fails
// with [shared.ErrSynthesisFailed]; no retry is attempted here.
func (s *Synthesizer) Synthesize(ctx context.Context, userText string) (models.SearchDirective, error) {
	intent := strings.TrimSpace(userText)
	if intent == "" {
		intent = DefaultIntent
	}

	prompt := BuildPrompt(intent)

	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return models.SearchDirective{}, err
	}

	directive, err := ParseDirective(answer)
	if err != nil {
		s.logger.Warn("model answer did not parse", "answer", answer, "err", err)
		return models.SearchDirective{}, err
	}

	s.logger.Debug("synthesized search directive", "terms", directive.Terms, "market", directive.Market)

	return directive, nil
}

// BuildPrompt embeds the listener's intent in the instruction template.
func BuildPrompt(intent string) string {
	return fmt.Sprintf(promptTemplate, intent)
}

// ParseDirective splits the model's raw answer on the literal delimiter.
//
// The answer is untrusted text: the field count is validated before use and
// the optional third field may be absent. Terms and market pass through
// unvalidated; malformed values surface downstream as a catalog-search
// failure or an empty result set.
func ParseDirective(answer string) (models.SearchDirective, error) {
	line := strings.TrimSpace(answer)
	if !strings.Contains(line, Delimiter) {
		return models.SearchDirective{}, fmt.Errorf("%w: answer lacks %q delimiter", shared.ErrSynthesisFailed, Delimiter)
	}

	fields := strings.SplitN(line, Delimiter, 3)
	if len(fields) < 2 {
		return models.SearchDirective{}, fmt.Errorf("%w: expected at least 2 fields, got %d", shared.ErrSynthesisFailed, len(fields))
	}

	directive := models.SearchDirective{
		Terms:  strings.TrimSpace(fields[0]),
		Market: strings.TrimSpace(fields[1]),
	}
	if len(fields) == 3 {
		directive.Summary = strings.TrimSpace(fields[2])
	}

	if directive.Terms == "" || directive.Market == "" {
		return models.SearchDirective{}, fmt.Errorf("%w: empty terms or market", shared.ErrSynthesisFailed)
	}

	return directive, nil
}
