package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidModel = errors.New("invalid model")

// TrackDetails is catalog metadata for a single track.
type TrackDetails struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Album       string   `json:"album"`
	ReleaseDate string   `json:"release_date"`
	Artists     []Artist `json:"artists"`
}

// Track builds the persistent record for details submitted by user.
func (d TrackDetails) Track(user, messageLink string) *Track {
	return &Track{
		ID:          d.ID,
		Title:       d.Name,
		Album:       d.Album,
		User:        user,
		MessageLink: messageLink,
		Artists:     append([]Artist(nil), d.Artists...),
	}
}

// Artist is a contributing artist. Names are unique.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Track is a posted track. MessageLink is the permalink of the canonical message
// and is empty until it has been recorded.
type Track struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Album       string    `json:"album"`
	User        string    `json:"user"`
	MessageLink string    `json:"message_link,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Artists     []Artist  `json:"artists"`
}

// HasCanonicalMessage reports whether the canonical message link has been recorded.
func (t *Track) HasCanonicalMessage() bool {
	return t.MessageLink != ""
}

// ArtistNames returns artist names in credit order.
func (t *Track) ArtistNames() []string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return names
}

// Validate checks required fields.
func (t *Track) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: track id is required", ErrInvalidModel)
	}
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: track title is required", ErrInvalidModel)
	}
	if t.User == "" {
		return fmt.Errorf("%w: submitting user is required", ErrInvalidModel)
	}
	for _, a := range t.Artists {
		if a.ID == "" || a.Name == "" {
			return fmt.Errorf("%w: artist id and name are required", ErrInvalidModel)
		}
	}
	return nil
}

// Reaction is one user's rating of a track.
type Reaction struct {
	ID        string    `json:"id"`
	TrackID   string    `json:"track_id"`
	User      string    `json:"user"`
	Value     int       `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the rating bounds and references.
func (r *Reaction) Validate() error {
	if r.TrackID == "" || r.User == "" {
		return fmt.Errorf("%w: reaction requires a track and a user", ErrInvalidModel)
	}
	if r.Value < 1 || r.Value > 10 {
		return fmt.Errorf("%w: rating %d out of range", ErrInvalidModel, r.Value)
	}
	return nil
}

// LeaderboardEntry is a ranked track.
type LeaderboardEntry struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Album       string   `json:"album"`
	Artists     []string `json:"artists"`
	MessageLink string   `json:"message_link,omitempty"`
	Mean        float64  `json:"mean"`
	Count       int      `json:"count"`
}

// UnratedTrack is a track the requesting user has not rated.
type UnratedTrack struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Artists     []string `json:"artists"`
	MessageLink string   `json:"message_link,omitempty"`
}

// UserStats summarises a user's submissions and ratings.
//
// Rated counts other users' tracks the user has rated, Rateable counts all other users' tracks.
type UserStats struct {
	User            string  `json:"user"`
	Submitted       int     `json:"submitted"`
	RatingsGiven    int     `json:"ratings_given"`
	RatingsReceived int     `json:"ratings_received"`
	AvgGiven        float64 `json:"avg_given"`
	AvgReceived     float64 `json:"avg_received"`
	Rated           int     `json:"rated"`
	Rateable        int     `json:"rateable"`
	PercentRated    float64 `json:"percent_rated"`
}

// TopTrack is a rated track in a user or artist summary.
type TopTrack struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Artists []string `json:"artists"`
	Mean    float64  `json:"mean"`
	Count   int      `json:"count"`
}

// TopArtist is an artist ranked by the ratings of a user's submissions.
type TopArtist struct {
	Name   string  `json:"name"`
	Mean   float64 `json:"mean"`
	Count  int     `json:"count"`
	Tracks int     `json:"tracks"`
}

// UserRating is a single user's rating as shown in track stats.
type UserRating struct {
	User  string `json:"user"`
	Value int    `json:"value"`
}

// TrackStats summarises the ratings of one track.
type TrackStats struct {
	Track   Track        `json:"track"`
	Mean    float64      `json:"mean"`
	Count   int          `json:"count"`
	Ratings []UserRating `json:"ratings"`
}

// ArtistStats summarises the ratings of all tracks credited to an artist.
type ArtistStats struct {
	Artist    Artist     `json:"artist"`
	Tracks    int        `json:"tracks"`
	Count     int        `json:"count"`
	Mean      float64    `json:"mean"`
	TopTracks []TopTrack `json:"top_tracks"`
}

// UserReport bundles everything the user stats reply renders.
type UserReport struct {
	Name       string      `json:"name"`
	Stats      UserStats   `json:"stats"`
	TopTracks  []TopTrack  `json:"top_tracks"`
	TopArtists []TopArtist `json:"top_artists"`
}
