package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/ratebot/internal/models"
	"github.com/desertthunder/ratebot/internal/shared"
)

// StatsStore is the read side of the rating store used by the [Aggregator].
type StatsStore interface {
	GetTrack(id string) (*models.Track, error)
	SearchTracks(query string, limit int) ([]*models.Track, error)
	TopTracks(limit int) ([]models.LeaderboardEntry, error)
	Unrated(user string) ([]models.UnratedTrack, error)
	UserStats(user string) (*models.UserStats, error)
	UserTopTracks(user string, limit int) ([]models.TopTrack, error)
	UserTopArtists(user string, limit int) ([]models.TopArtist, error)
	TrackStats(id string) (*models.TrackStats, error)
	ArtistStats(name string, limit int) (*models.ArtistStats, error)
}

// AggregatorOpts sets default result sizes. Zero values use the package defaults.
type AggregatorOpts struct {
	LeaderboardSize int
	TopCount        int
}

// Aggregator computes leaderboards and per-user, per-track and per-artist summaries.
//
// Rankings order by mean rating descending, then rating count descending, then submission order.
type Aggregator struct {
	store           StatsStore
	leaderboardSize int
	topCount        int
}

// NewAggregator creates an Aggregator reading from store.
func NewAggregator(store StatsStore, opts AggregatorOpts) *Aggregator {
	a := &Aggregator{store: store, leaderboardSize: opts.LeaderboardSize, topCount: opts.TopCount}
	if a.leaderboardSize <= 0 {
		a.leaderboardSize = DefaultLeaderboardSize
	}
	if a.topCount <= 0 {
		a.topCount = DefaultTopCount
	}
	return a
}

// TopTracks returns up to limit tracks credited to at least one artist. limit <= 0 uses the default size.
func (a *Aggregator) TopTracks(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = a.leaderboardSize
	}

	entries, err := a.store.TopTracks(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to compute leaderboard: %w", err)
	}
	return entries, nil
}

// Unrated returns tracks user has not rated, never including the user's own submissions.
func (a *Aggregator) Unrated(ctx context.Context, user string) ([]models.UnratedTrack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if user == "" {
		return nil, fmt.Errorf("%w: user", shared.ErrMissingArgument)
	}

	tracks, err := a.store.Unrated(user)
	if err != nil {
		return nil, fmt.Errorf("failed to list unrated tracks: %w", err)
	}
	return tracks, nil
}

// UserStatistics returns user's counts, means and the share of other users' tracks they have rated.
//
// Means and the percentage are 0 when there is nothing to average.
func (a *Aggregator) UserStatistics(ctx context.Context, user string) (*models.UserStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if user == "" {
		return nil, fmt.Errorf("%w: user", shared.ErrMissingArgument)
	}

	stats, err := a.store.UserStats(user)
	if err != nil {
		return nil, fmt.Errorf("failed to compute user stats: %w", err)
	}

	stats.PercentRated = 0
	if stats.Rateable > 0 {
		stats.PercentRated = float64(stats.Rated) / float64(stats.Rateable) * 100
	}
	return stats, nil
}

// UserTopTracks returns user's best rated submissions. Only rated tracks qualify.
func (a *Aggregator) UserTopTracks(ctx context.Context, user string, limit int) ([]models.TopTrack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = a.topCount
	}

	tracks, err := a.store.UserTopTracks(user, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to compute top tracks: %w", err)
	}
	return tracks, nil
}

// UserTopArtists returns the best rated artists across user's rated submissions.
func (a *Aggregator) UserTopArtists(ctx context.Context, user string, limit int) ([]models.TopArtist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = a.topCount
	}

	artists, err := a.store.UserTopArtists(user, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to compute top artists: %w", err)
	}
	return artists, nil
}

// UserReport gathers everything the user stats reply shows.
func (a *Aggregator) UserReport(ctx context.Context, user, name string) (*models.UserReport, error) {
	stats, err := a.UserStatistics(ctx, user)
	if err != nil {
		return nil, err
	}

	tracks, err := a.UserTopTracks(ctx, user, 0)
	if err != nil {
		return nil, err
	}

	artists, err := a.UserTopArtists(ctx, user, 0)
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = user
	}

	return &models.UserReport{Name: name, Stats: *stats, TopTracks: tracks, TopArtists: artists}, nil
}

// TrackStatistics returns a track with its mean, count and individual ratings.
func (a *Aggregator) TrackStatistics(ctx context.Context, id string) (*models.TrackStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats, err := a.store.TrackStats(id)
	if err != nil {
		return nil, fmt.Errorf("failed to compute track stats: %w", err)
	}
	return stats, nil
}

// ArtistStatistics returns an artist's totals and best rated tracks.
func (a *Aggregator) ArtistStatistics(ctx context.Context, name string) (*models.ArtistStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: artist", shared.ErrMissingArgument)
	}

	stats, err := a.store.ArtistStats(name, a.topCount)
	if err != nil {
		return nil, fmt.Errorf("failed to compute artist stats: %w", err)
	}
	return stats, nil
}

// FindTracks resolves query to tracks.
//
// A track link or a bare catalog id is looked up directly; anything else is a
// case-insensitive title substring. A bare id that is not stored falls back to
// the title search, a link does not. No match yields [shared.ErrTrackNotFound].
func (a *Aggregator) FindTracks(ctx context.Context, query string) ([]*models.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: song", shared.ErrMissingArgument)
	}

	if id, ok := shared.ExtractOrValidateTrackID(query); ok {
		track, err := a.store.GetTrack(id)
		if err == nil {
			return []*models.Track{track}, nil
		}
		if !errors.Is(err, shared.ErrTrackNotFound) {
			return nil, fmt.Errorf("failed to look up track: %w", err)
		}
		if _, isLink := shared.ExtractTrackID(query); isLink {
			return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
		}
	}

	tracks, err := a.store.SearchTracks(query, DefaultSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search tracks: %w", err)
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: %q", shared.ErrTrackNotFound, query)
	}
	return tracks, nil
}
