package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/ratebot/internal/models"
)

// StatsRepository runs the read-only aggregation queries.
//
// Every ranking orders by mean rating descending, then rating count
// descending, then submission order.
type StatsRepository struct {
	db *sql.DB
}

// NewStatsRepository creates a new StatsRepository with the given database connection
func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// TopTracks returns up to limit tracks credited to at least one artist.
// Tracks without reactions have a mean of 0 and still qualify.
func (r *StatsRepository) TopTracks(limit int) ([]models.LeaderboardEntry, error) {
	query := `
		SELECT s.id, s.title, s.album, s.message_link,
			COALESCE(AVG(r.reaction), 0) AS mean,
			COUNT(r.id) AS count
		FROM songs s
		LEFT JOIN reactions r ON r.song_id = s.id
		WHERE EXISTS (SELECT 1 FROM song_artists sa WHERE sa.song_id = s.id)
		GROUP BY s.id
		ORDER BY mean DESC, count DESC, MIN(s.rowid) ASC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top tracks: %w", err)
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	var ids []string
	for rows.Next() {
		var (
			e    models.LeaderboardEntry
			link sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Title, &e.Album, &link, &e.Mean, &e.Count); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		e.MessageLink = link.String
		entries = append(entries, e)
		ids = append(ids, e.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	names, err := loadArtistNames(r.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Artists = names[entries[i].ID]
	}

	return entries, nil
}

// Unrated returns tracks user has not rated, excluding the user's own submissions.
func (r *StatsRepository) Unrated(user string) ([]models.UnratedTrack, error) {
	query := `
		SELECT s.id, s.title, s.message_link
		FROM songs s
		WHERE s.user != ?
			AND NOT EXISTS (SELECT 1 FROM reactions r WHERE r.song_id = s.id AND r.user = ?)
		ORDER BY s.rowid ASC
	`

	rows, err := r.db.Query(query, user, user)
	if err != nil {
		return nil, fmt.Errorf("failed to query unrated tracks: %w", err)
	}
	defer rows.Close()

	var tracks []models.UnratedTrack
	var ids []string
	for rows.Next() {
		var (
			t    models.UnratedTrack
			link sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Title, &link); err != nil {
			return nil, fmt.Errorf("failed to scan unrated track: %w", err)
		}
		t.MessageLink = link.String
		tracks = append(tracks, t)
		ids = append(ids, t.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	names, err := loadArtistNames(r.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range tracks {
		tracks[i].Artists = names[tracks[i].ID]
	}

	return tracks, nil
}

// UserStats returns the raw counts and means for user. PercentRated is left for the caller.
func (r *StatsRepository) UserStats(user string) (*models.UserStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM songs WHERE user = ?),
			(SELECT COUNT(*) FROM reactions WHERE user = ?),
			(SELECT COALESCE(AVG(reaction), 0) FROM reactions WHERE user = ?),
			(SELECT COUNT(*) FROM reactions r JOIN songs s ON s.id = r.song_id WHERE s.user = ?),
			(SELECT COALESCE(AVG(r.reaction), 0) FROM reactions r JOIN songs s ON s.id = r.song_id WHERE s.user = ?),
			(SELECT COUNT(DISTINCT r.song_id) FROM reactions r JOIN songs s ON s.id = r.song_id WHERE r.user = ? AND s.user != ?),
			(SELECT COUNT(*) FROM songs WHERE user != ?)
	`

	stats := models.UserStats{User: user}
	err := r.db.QueryRow(query, user, user, user, user, user, user, user, user).Scan(
		&stats.Submitted,
		&stats.RatingsGiven,
		&stats.AvgGiven,
		&stats.RatingsReceived,
		&stats.AvgReceived,
		&stats.Rated,
		&stats.Rateable,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query user stats: %w", err)
	}

	return &stats, nil
}

// UserTopTracks returns up to limit of user's submissions that have at least one reaction.
func (r *StatsRepository) UserTopTracks(user string, limit int) ([]models.TopTrack, error) {
	query := `
		SELECT s.id, s.title, AVG(r.reaction) AS mean, COUNT(r.id) AS count
		FROM songs s
		JOIN reactions r ON r.song_id = s.id
		WHERE s.user = ?
		GROUP BY s.id
		ORDER BY mean DESC, count DESC, MIN(s.rowid) ASC
		LIMIT ?
	`

	return r.topTracks(query, user, limit)
}

// UserTopArtists returns up to limit artists credited on user's rated submissions.
func (r *StatsRepository) UserTopArtists(user string, limit int) ([]models.TopArtist, error) {
	query := `
		SELECT a.name, AVG(r.reaction) AS mean, COUNT(r.id) AS count, COUNT(DISTINCT s.id) AS tracks
		FROM artists a
		JOIN song_artists sa ON sa.artist_id = a.id
		JOIN songs s ON s.id = sa.song_id
		JOIN reactions r ON r.song_id = s.id
		WHERE s.user = ?
		GROUP BY a.id
		ORDER BY mean DESC, count DESC, MIN(sa.rowid) ASC
		LIMIT ?
	`

	rows, err := r.db.Query(query, user, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top artists: %w", err)
	}
	defer rows.Close()

	var artists []models.TopArtist
	for rows.Next() {
		var a models.TopArtist
		if err := rows.Scan(&a.Name, &a.Mean, &a.Count, &a.Tracks); err != nil {
			return nil, fmt.Errorf("failed to scan top artist: %w", err)
		}
		artists = append(artists, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return artists, nil
}

// TrackStats returns a track with its mean, count and individual ratings.
func (r *StatsRepository) TrackStats(id string) (*models.TrackStats, error) {
	track, err := NewTrackRepository(r.db).Get(id)
	if err != nil {
		return nil, err
	}

	reactions, err := NewReactionRepository(r.db).ListForTrack(id)
	if err != nil {
		return nil, err
	}

	stats := &models.TrackStats{Track: *track, Count: len(reactions)}
	total := 0
	for _, reaction := range reactions {
		total += reaction.Value
		stats.Ratings = append(stats.Ratings, models.UserRating{User: reaction.User, Value: reaction.Value})
	}
	if stats.Count > 0 {
		stats.Mean = float64(total) / float64(stats.Count)
	}

	return stats, nil
}

// ArtistStats returns an artist's totals and up to limit of its rated tracks.
func (r *StatsRepository) ArtistStats(name string, limit int) (*models.ArtistStats, error) {
	artist, err := NewArtistRepository(r.db).GetByName(name)
	if err != nil {
		return nil, err
	}

	stats := &models.ArtistStats{Artist: *artist}

	query := `
		SELECT COUNT(DISTINCT sa.song_id), COUNT(r.id), COALESCE(AVG(r.reaction), 0)
		FROM song_artists sa
		LEFT JOIN reactions r ON r.song_id = sa.song_id
		WHERE sa.artist_id = ?
	`

	if err := r.db.QueryRow(query, artist.ID).Scan(&stats.Tracks, &stats.Count, &stats.Mean); err != nil {
		return nil, fmt.Errorf("failed to query artist stats: %w", err)
	}

	topQuery := `
		SELECT s.id, s.title, AVG(r.reaction) AS mean, COUNT(r.id) AS count
		FROM songs s
		JOIN song_artists sa ON sa.song_id = s.id
		JOIN reactions r ON r.song_id = s.id
		WHERE sa.artist_id = ?
		GROUP BY s.id
		ORDER BY mean DESC, count DESC, MIN(s.rowid) ASC
		LIMIT ?
	`

	stats.TopTracks, err = r.topTracks(topQuery, artist.ID, limit)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// Totals returns the number of tracks, artists and reactions stored.
func (r *StatsRepository) Totals() (tracks, artists, reactions int, err error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM songs),
			(SELECT COUNT(*) FROM artists),
			(SELECT COUNT(*) FROM reactions)
	`

	if err = r.db.QueryRow(query).Scan(&tracks, &artists, &reactions); err != nil {
		err = fmt.Errorf("failed to query totals: %w", err)
	}
	return
}

// topTracks runs a query selecting (id, title, mean, count) and fills in artist names.
func (r *StatsRepository) topTracks(query string, args ...any) ([]models.TopTrack, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query top tracks: %w", err)
	}
	defer rows.Close()

	var tracks []models.TopTrack
	var ids []string
	for rows.Next() {
		var t models.TopTrack
		if err := rows.Scan(&t.ID, &t.Title, &t.Mean, &t.Count); err != nil {
			return nil, fmt.Errorf("failed to scan top track: %w", err)
		}
		tracks = append(tracks, t)
		ids = append(ids, t.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	names, err := loadArtistNames(r.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range tracks {
		tracks[i].Artists = names[tracks[i].ID]
	}

	return tracks, nil
}
