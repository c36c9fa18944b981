package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"moodify/internal/models"
	"moodify/internal/shared"
)

// ProfileRepository implements [models.Repository] for taste [models.Profile] persistence.
//
// Genres, artists and liked tracks live in child tables and are loaded with
// the profile; writes replace the child rows wholesale inside a transaction.
type ProfileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a new [ProfileRepository] with the given database connection
func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create inserts a new profile into the database with generated ID and sequence
func (r *ProfileRepository) Create(profile *models.Profile) error {
	sequence, err := NextSequence(r.db, "profiles")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	profile.SetID(shared.GenerateID())

	if err := profile.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO profiles (id, sequence, spotify_id, email, display_name, avatar_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.Exec(query, profile.ID(), sequence, profile.SpotifyID(), profile.Email(),
		profile.DisplayName(), profile.AvatarURL(), profile.CreatedAt(), profile.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}

	if err := replaceChildren(tx, profile); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit profile: %w", err)
	}

	return nil
}

// Get retrieves a profile by ID, excluding soft-deleted profiles
func (r *ProfileRepository) Get(id string) (*models.Profile, error) {
	return r.getBy("id", id)
}

// GetBySpotifyID retrieves a profile by its Spotify account id.
func (r *ProfileRepository) GetBySpotifyID(ctx context.Context, spotifyID string) (*models.Profile, error) {
	return r.getBy("spotify_id", spotifyID)
}

func (r *ProfileRepository) getBy(column, value string) (*models.Profile, error) {
	query := fmt.Sprintf(`
		SELECT id, sequence, spotify_id, email, display_name, avatar_url, created_at, updated_at, deleted_at
		FROM profiles
		WHERE %s = ? AND deleted_at IS NULL
	`, column)

	var (
		id        string
		sequence  int
		spotifyID string
		email     string
		name      sql.NullString
		avatarURL sql.NullString
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := r.db.QueryRow(query, value).Scan(&id, &sequence, &spotifyID, &email, &name, &avatarURL, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrProfileNotFound, value)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}

	profile := models.NewProfile(sequence, spotifyID, email, name.String)
	profile.SetID(id)
	profile.SetAvatarURL(avatarURL.String)
	profile.SetCreatedAt(createdAt)
	profile.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		profile.SetDeletedAt(&deletedAt.Time)
	}

	if err := r.loadChildren(profile); err != nil {
		return nil, err
	}

	return profile, nil
}

// Update modifies an existing profile, replacing its taste rows
func (r *ProfileRepository) Update(profile *models.Profile) error {
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	profile.SetUpdatedAt(now)

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE profiles
		SET email = ?, display_name = ?, avatar_url = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := tx.Exec(query, profile.Email(), profile.DisplayName(), profile.AvatarURL(), now, profile.ID())
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrProfileNotFound, profile.ID())
	}

	if err := replaceChildren(tx, profile); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit profile: %w", err)
	}

	return nil
}

// Upsert creates the profile when its Spotify id is unknown, otherwise updates it.
func (r *ProfileRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	existing, err := r.GetBySpotifyID(ctx, profile.SpotifyID())
	if err != nil {
		return r.Create(profile)
	}

	if profile.ID() == "" {
		profile.SetID(existing.ID())
	}
	return r.Update(profile)
}

// Delete soft-deletes a profile by ID
func (r *ProfileRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE profiles
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrProfileNotFound, id)
	}

	return nil
}

// List retrieves all profiles matching the given criteria, excluding soft-deleted profiles
func (r *ProfileRepository) List(criteria map[string]any) ([]*models.Profile, error) {
	query := `
		SELECT id FROM profiles WHERE deleted_at IS NULL
	`
	args := []any{}

	if email, ok := criteria["email"]; ok {
		query += " AND email = ?"
		args = append(args, email)
	}
	query += " ORDER BY sequence"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}

	profiles := make([]*models.Profile, 0, len(ids))
	for _, id := range ids {
		profile, err := r.Get(id)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}

	return profiles, nil
}

var _ models.Repository[*models.Profile] = (*ProfileRepository)(nil)

func (r *ProfileRepository) loadChildren(profile *models.Profile) error {
	genres, err := r.childValues("SELECT genre FROM profile_genres WHERE profile_id = ? ORDER BY genre", profile.ID())
	if err != nil {
		return fmt.Errorf("failed to load genres: %w", err)
	}
	profile.SetGenres(genres)

	artists, err := r.childValues("SELECT artist_id FROM profile_artists WHERE profile_id = ? ORDER BY artist_id", profile.ID())
	if err != nil {
		return fmt.Errorf("failed to load artists: %w", err)
	}
	profile.SetArtists(artists)

	tracks, err := r.childValues("SELECT track_id FROM profile_liked_tracks WHERE profile_id = ? ORDER BY liked_at", profile.ID())
	if err != nil {
		return fmt.Errorf("failed to load liked tracks: %w", err)
	}
	profile.SetLikedTracks(tracks)

	return nil
}

func (r *ProfileRepository) childValues(query, profileID string) ([]string, error) {
	rows, err := r.db.Query(query, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func replaceChildren(tx *sql.Tx, profile *models.Profile) error {
	for _, table := range []string{"profile_genres", "profile_artists", "profile_liked_tracks"} {
		if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE profile_id = ?", table), profile.ID()); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, genre := range profile.Genres() {
		if _, err := tx.Exec("INSERT INTO profile_genres (profile_id, genre) VALUES (?, ?)", profile.ID(), genre); err != nil {
			return fmt.Errorf("failed to insert genre: %w", err)
		}
	}
	for _, artist := range profile.Artists() {
		if _, err := tx.Exec("INSERT INTO profile_artists (profile_id, artist_id) VALUES (?, ?)", profile.ID(), artist); err != nil {
			return fmt.Errorf("failed to insert artist: %w", err)
		}
	}
	now := time.Now()
	for _, track := range profile.LikedTracks() {
		if _, err := tx.Exec("INSERT INTO profile_liked_tracks (profile_id, track_id, liked_at) VALUES (?, ?, ?)", profile.ID(), track, now); err != nil {
			return fmt.Errorf("failed to insert liked track: %w", err)
		}
	}

	return nil
}
