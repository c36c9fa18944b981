package models

import (
	"fmt"
	"regexp"
	"time"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Profile is the persistent taste-profile aggregate for one listener.
//
// The aggregate (genres, artists, liked tracks) lives outside the
// token/query pipeline and is only touched by the profile endpoints.
type Profile struct {
	id          string
	sequence    int
	spotifyID   string
	email       string
	displayName string
	avatarURL   string
	genres      []string
	artists     []string
	likedTracks []string
	createdAt   time.Time
	updatedAt   time.Time
	deletedAt   *time.Time
}

// NewProfile creates a Profile for the given listener identity.
func NewProfile(sequence int, spotifyID, email, displayName string) *Profile {
	now := time.Now()
	return &Profile{
		sequence:    sequence,
		spotifyID:   spotifyID,
		email:       email,
		displayName: displayName,
		createdAt:   now,
		updatedAt:   now,
	}
}

var _ Model = (*Profile)(nil)

func (p *Profile) ID() string            { return p.id }
func (p *Profile) Sequence() int         { return p.sequence }
func (p *Profile) SpotifyID() string     { return p.spotifyID }
func (p *Profile) Email() string         { return p.email }
func (p *Profile) DisplayName() string   { return p.displayName }
func (p *Profile) AvatarURL() string     { return p.avatarURL }
func (p *Profile) Genres() []string      { return p.genres }
func (p *Profile) Artists() []string     { return p.artists }
func (p *Profile) LikedTracks() []string { return p.likedTracks }
func (p *Profile) CreatedAt() time.Time  { return p.createdAt }
func (p *Profile) UpdatedAt() time.Time  { return p.updatedAt }
func (p *Profile) DeletedAt() *time.Time { return p.deletedAt }

func (p *Profile) SetID(id string)              { p.id = id }
func (p *Profile) SetAvatarURL(url string)      { p.avatarURL = url }
func (p *Profile) SetGenres(g []string)         { p.genres = g }
func (p *Profile) SetArtists(a []string)        { p.artists = a }
func (p *Profile) SetLikedTracks(t []string)    { p.likedTracks = t }
func (p *Profile) SetCreatedAt(t time.Time)     { p.createdAt = t }
func (p *Profile) SetUpdatedAt(t time.Time)     { p.updatedAt = t }
func (p *Profile) SetDeletedAt(t *time.Time)    { p.deletedAt = t }
func (p *Profile) SetDisplayName(name string)   { p.displayName = name }

// Validate checks the profile's required fields.
func (p *Profile) Validate() error {
	if p.spotifyID == "" {
		return fmt.Errorf("spotify id is required")
	}
	if p.email == "" {
		return fmt.Errorf("email is required")
	}
	if !emailPattern.MatchString(p.email) {
		return fmt.Errorf("invalid email: %s", p.email)
	}
	return nil
}
