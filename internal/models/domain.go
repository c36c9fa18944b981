package models

// Principal is the authenticated listener, identified by the Spotify user id.
//
// Re-derived from the catalog profile on each sign-in; never mutated elsewhere.
type Principal struct {
	ExternalID  string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// SearchDirective is the structured output of the query synthesizer.
//
// Ephemeral: produced fresh per request, never persisted.
type SearchDirective struct {
	Terms   string `json:"terms"`   // catalog search expression, may use field filters and percent encoding
	Market  string `json:"market"`  // ISO 3166-1 alpha-2 country code
	Summary string `json:"summary"` // optional human-readable summary of the interpretation
}

// Image is an image resource attached to albums and profiles.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Album is the subset of catalog album data carried on a track.
type Album struct {
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

// Track is a read-only catalog track as returned to clients.
//
// Tracks are never mutated locally; Rating is a transient client-side
// attribute and is not persisted.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []string `json:"artists"`
	Album      Album    `json:"album"`
	PreviewURL string   `json:"preview_url,omitempty"`
	DurationMS int      `json:"duration_ms"`
	Rating     int      `json:"rating,omitempty"`
}
