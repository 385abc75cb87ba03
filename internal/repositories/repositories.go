// package repositories provides the SQLite rating store.
//
// Each repository wraps one table group; [Store] composes them and is the
// single handle the engines, the dispatcher and the CLI receive.
package repositories

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/desertthunder/ratebot/internal/models"
)

// Store is the rating store.
type Store struct {
	db        *sql.DB
	Tracks    *TrackRepository
	Artists   *ArtistRepository
	Reactions *ReactionRepository
	Stats     *StatsRepository
}

// NewStore creates a Store over db. Migrations must already have been applied.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:        db,
		Tracks:    NewTrackRepository(db),
		Artists:   NewArtistRepository(db),
		Reactions: NewReactionRepository(db),
		Stats:     NewStatsRepository(db),
	}
}

// DB returns the underlying connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// GetTrack retrieves a track and its artists.
func (s *Store) GetTrack(id string) (*models.Track, error) {
	return s.Tracks.Get(id)
}

// CreateTrack inserts a track with its artists.
func (s *Store) CreateTrack(track *models.Track) error {
	return s.Tracks.Create(track)
}

// SetMessageLink records the canonical link when none is set yet.
func (s *Store) SetMessageLink(id, link string) (bool, error) {
	return s.Tracks.SetMessageLink(id, link)
}

// AddReaction records a rating when the user has none for the track.
func (s *Store) AddReaction(reaction *models.Reaction) error {
	return s.Reactions.Add(reaction)
}

// RemoveReaction deletes the user's rating when it has the given value.
func (s *Store) RemoveReaction(trackID, user string, value int) error {
	return s.Reactions.Remove(trackID, user, value)
}

// ListTracks lists tracks matching criteria, see [TrackRepository.List].
func (s *Store) ListTracks(criteria map[string]any) ([]*models.Track, error) {
	return s.Tracks.List(criteria)
}

// UpdateMetadata refreshes a track from catalog details.
func (s *Store) UpdateMetadata(details models.TrackDetails) error {
	return s.Tracks.UpdateMetadata(details)
}

// SearchTracks returns tracks whose title contains query.
func (s *Store) SearchTracks(query string, limit int) ([]*models.Track, error) {
	return s.Tracks.SearchByTitle(query, limit)
}

// TopTracks returns the leaderboard.
func (s *Store) TopTracks(limit int) ([]models.LeaderboardEntry, error) {
	return s.Stats.TopTracks(limit)
}

// Unrated returns the tracks user still has to rate.
func (s *Store) Unrated(user string) ([]models.UnratedTrack, error) {
	return s.Stats.Unrated(user)
}

// UserStats returns user's counts and means.
func (s *Store) UserStats(user string) (*models.UserStats, error) {
	return s.Stats.UserStats(user)
}

// UserTopTracks returns user's best rated submissions.
func (s *Store) UserTopTracks(user string, limit int) ([]models.TopTrack, error) {
	return s.Stats.UserTopTracks(user, limit)
}

// UserTopArtists returns the best rated artists among user's submissions.
func (s *Store) UserTopArtists(user string, limit int) ([]models.TopArtist, error) {
	return s.Stats.UserTopArtists(user, limit)
}

// TrackStats returns a track's ratings.
func (s *Store) TrackStats(id string) (*models.TrackStats, error) {
	return s.Stats.TrackStats(id)
}

// ArtistStats returns an artist's ratings.
func (s *Store) ArtistStats(name string, limit int) (*models.ArtistStats, error) {
	return s.Stats.ArtistStats(name, limit)
}

// withTx runs fn inside a transaction, committing when fn returns nil.
//
// Code inside fn must only use tx: the pool may hold a single connection.
func withTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// queryer is satisfied by both [sql.DB] and [sql.Tx].
type queryer interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

// loadArtists loads the artists of the given track ids in credit order.
func loadArtists(q queryer, ids []string) (map[string][]models.Artist, error) {
	artists := make(map[string][]models.Artist, len(ids))
	if len(ids) == 0 {
		return artists, nil
	}

	query := `
		SELECT sa.song_id, a.id, a.name
		FROM song_artists sa
		JOIN artists a ON a.id = sa.artist_id
		WHERE sa.song_id IN (` + placeholders(len(ids)) + `)
		ORDER BY sa.rowid ASC
	`

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var songID string
		var a models.Artist
		if err := rows.Scan(&songID, &a.ID, &a.Name); err != nil {
			return nil, fmt.Errorf("failed to scan artist: %w", err)
		}
		artists[songID] = append(artists[songID], a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return artists, nil
}

// loadArtistNames is [loadArtists] reduced to names.
func loadArtistNames(q queryer, ids []string) (map[string][]string, error) {
	artists, err := loadArtists(q, ids)
	if err != nil {
		return nil, err
	}

	names := make(map[string][]string, len(artists))
	for id, list := range artists {
		for _, a := range list {
			names[id] = append(names[id], a.Name)
		}
	}
	return names, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
