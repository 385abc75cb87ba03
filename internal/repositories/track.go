package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ratebot/internal/models"
	"github.com/desertthunder/ratebot/internal/shared"
)

// TrackRepository persists posted tracks and their artist credits.
//
// A track's message_link is written at most once: [TrackRepository.SetMessageLink] only fills an empty link.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Create inserts a track, its artists and the join rows in one transaction.
func (r *TrackRepository) Create(track *models.Track) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if track.CreatedAt.IsZero() {
		track.CreatedAt = time.Now().UTC()
	}

	return withTx(r.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO songs (id, title, album, user, message_link, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`

		_, err := tx.Exec(query,
			track.ID,
			track.Title,
			track.Album,
			track.User,
			nullString(track.MessageLink),
			track.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert track: %w", err)
		}

		return attachArtists(tx, track.ID, track.Artists)
	})
}

// Get retrieves a track by ID along with its artists
func (r *TrackRepository) Get(id string) (*models.Track, error) {
	query := `
		SELECT id, title, album, user, message_link, created_at
		FROM songs
		WHERE id = ?
	`

	track, err := r.scanOne(r.db.QueryRow(query, id))
	if err != nil {
		return nil, err
	}

	artists, err := loadArtists(r.db, []string{track.ID})
	if err != nil {
		return nil, err
	}
	track.Artists = artists[track.ID]

	return track, nil
}

// SearchByTitle returns tracks whose title contains query, ignoring case.
func (r *TrackRepository) SearchByTitle(query string, limit int) ([]*models.Track, error) {
	return r.List(map[string]any{"title": query, "limit": limit})
}

// SetMessageLink records link as the canonical message when none is set.
//
// Returns false without error when the track already has a link.
func (r *TrackRepository) SetMessageLink(id, link string) (bool, error) {
	if link == "" {
		return false, fmt.Errorf("%w: empty message link", shared.ErrInvalidArgument)
	}

	query := `
		UPDATE songs
		SET message_link = ?
		WHERE id = ? AND message_link IS NULL
	`

	result, err := r.db.Exec(query, link, id)
	if err != nil {
		return false, fmt.Errorf("failed to update message link: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows == 1, nil
}

// UpdateMetadata refreshes title, album and artist credits from catalog details.
//
// Existing credits are kept; new artists are appended.
func (r *TrackRepository) UpdateMetadata(details models.TrackDetails) error {
	return withTx(r.db, func(tx *sql.Tx) error {
		query := `
			UPDATE songs
			SET title = ?, album = ?
			WHERE id = ?
		`

		result, err := tx.Exec(query, details.Name, details.Album, details.ID)
		if err != nil {
			return fmt.Errorf("failed to update track: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, details.ID)
		}

		return attachArtists(tx, details.ID, details.Artists)
	})
}

// Delete removes a track. Join rows and reactions cascade.
func (r *TrackRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM songs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}

	return nil
}

// List retrieves tracks matching the given criteria in submission order.
//
// Recognised criteria: "user" (string), "title" (substring, string),
// "missing_link" (bool), "without_artists" (bool) and "limit" (int).
func (r *TrackRepository) List(criteria map[string]any) ([]*models.Track, error) {
	query := `
		SELECT s.id, s.title, s.album, s.user, s.message_link, s.created_at
		FROM songs s
		WHERE 1 = 1
	`

	args := []any{}

	if user, ok := criteria["user"].(string); ok && user != "" {
		query += " AND s.user = ?"
		args = append(args, user)
	}

	if title, ok := criteria["title"].(string); ok && title != "" {
		query += " AND s.title LIKE ? ESCAPE '\\'"
		args = append(args, "%"+escapeLike(title)+"%")
	}

	if missing, ok := criteria["missing_link"].(bool); ok && missing {
		query += " AND s.message_link IS NULL"
	}

	if without, ok := criteria["without_artists"].(bool); ok && without {
		query += " AND NOT EXISTS (SELECT 1 FROM song_artists sa WHERE sa.song_id = s.id)"
	}

	query += " ORDER BY s.rowid ASC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.Track
	var ids []string
	for rows.Next() {
		track, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
		ids = append(ids, track.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	artists, err := loadArtists(r.db, ids)
	if err != nil {
		return nil, err
	}
	for _, track := range tracks {
		track.Artists = artists[track.ID]
	}

	return tracks, nil
}

// scanOne scans a single [sql.Row] into a [models.Track]
func (r *TrackRepository) scanOne(row *sql.Row) (*models.Track, error) {
	var (
		track       models.Track
		messageLink sql.NullString
	)

	err := row.Scan(&track.ID, &track.Title, &track.Album, &track.User, &messageLink, &track.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}

	track.MessageLink = messageLink.String
	return &track, nil
}

// scanRow scans a row from [sql.Rows] into a [models.Track]
func (r *TrackRepository) scanRow(rows *sql.Rows) (*models.Track, error) {
	var (
		track       models.Track
		messageLink sql.NullString
	)

	if err := rows.Scan(&track.ID, &track.Title, &track.Album, &track.User, &messageLink, &track.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}

	track.MessageLink = messageLink.String
	return &track, nil
}

// attachArtists upserts each artist and links it to the track, keeping credit order.
func attachArtists(tx *sql.Tx, trackID string, artists []models.Artist) error {
	for _, artist := range artists {
		artistID, err := upsertArtist(tx, artist)
		if err != nil {
			return err
		}

		_, err = tx.Exec("INSERT OR IGNORE INTO song_artists (song_id, artist_id) VALUES (?, ?)", trackID, artistID)
		if err != nil {
			return fmt.Errorf("failed to link artist %s: %w", artist.Name, err)
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, c := range s {
		if c == '%' || c == '_' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return string(out)
}
