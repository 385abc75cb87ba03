package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/ratebot/internal/models"
	"github.com/desertthunder/ratebot/internal/shared"
)

// ArtistRepository reads artists. Artists are written through [TrackRepository].
type ArtistRepository struct {
	db *sql.DB
}

// NewArtistRepository creates a new ArtistRepository with the given database connection
func NewArtistRepository(db *sql.DB) *ArtistRepository {
	return &ArtistRepository{db: db}
}

// GetByName retrieves an artist by name, ignoring case.
func (r *ArtistRepository) GetByName(name string) (*models.Artist, error) {
	var artist models.Artist

	err := r.db.QueryRow("SELECT id, name FROM artists WHERE name = ? COLLATE NOCASE LIMIT 1", name).
		Scan(&artist.ID, &artist.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrArtistNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan artist: %w", err)
	}

	return &artist, nil
}

// ListForTrack returns a track's artists in credit order.
func (r *ArtistRepository) ListForTrack(trackID string) ([]models.Artist, error) {
	artists, err := loadArtists(r.db, []string{trackID})
	if err != nil {
		return nil, err
	}
	return artists[trackID], nil
}

// upsertArtist inserts artist unless its name or id is already known and returns the stored id.
func upsertArtist(tx *sql.Tx, artist models.Artist) (string, error) {
	if _, err := tx.Exec("INSERT OR IGNORE INTO artists (id, name) VALUES (?, ?)", artist.ID, artist.Name); err != nil {
		return "", fmt.Errorf("failed to insert artist %s: %w", artist.Name, err)
	}

	var id string
	err := tx.QueryRow("SELECT id FROM artists WHERE name = ?", artist.Name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		// Same catalog id stored under an older name.
		err = tx.QueryRow("SELECT id FROM artists WHERE id = ?", artist.ID).Scan(&id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve artist %s: %w", artist.Name, err)
	}

	return id, nil
}
