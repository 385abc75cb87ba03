// Spotify Web API implementation of [TrackProvider]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/desertthunder/ratebot/internal/models"
	"github.com/desertthunder/ratebot/internal/shared"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	defaultSpotifyRate = 5.0
)

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	Explicit   bool            `json:"explicit"`
	Popularity int             `json:"popularity"`
	URI        string          `json:"uri"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
	TotalTracks int    `json:"total_tracks"`
	URI         string `json:"uri"`
}

// Details converts the API track into the catalog metadata stored by the bot.
func (t *SpotifyTrack) Details() *models.TrackDetails {
	details := &models.TrackDetails{
		ID:          t.ID,
		Name:        t.Name,
		Album:       t.Album.Name,
		ReleaseDate: t.Album.ReleaseDate,
		Artists:     make([]models.Artist, 0, len(t.Artists)),
	}
	for _, a := range t.Artists {
		details.Artists = append(details.Artists, models.Artist{ID: a.ID, Name: a.Name})
	}
	return details
}

// SpotifyService implements [TrackProvider] against the Spotify Web API.
// Uses the [clientcredentials] flow, so only catalog endpoints are reachable.
type SpotifyService struct {
	config     *clientcredentials.Config
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// NewSpotifyService creates a Spotify service from credentials.
//
// Required keys are "client_id" and "client_secret". Optional "token_url" and "base_url" override the
// Spotify endpoints. requestsPerSecond <= 0 uses the default pace.
func NewSpotifyService(credentials map[string]string, requestsPerSecond float64) (*SpotifyService, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	tokenURL := credentials["token_url"]
	if tokenURL == "" {
		tokenURL = spotifyTokenURL
	}

	baseURL := strings.TrimSuffix(credentials["base_url"], "/")
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}

	if requestsPerSecond <= 0 {
		requestsPerSecond = defaultSpotifyRate
	}

	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	return &SpotifyService{
		config:     config,
		httpClient: config.Client(context.Background()),
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Authenticate fetches an app token to verify the credentials.
func (s *SpotifyService) Authenticate(ctx context.Context) error {
	if _, err := s.config.Token(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	return nil
}

// doRequest performs an authenticated, rate-limited GET against the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return doJSON(s.httpClient, "spotify", req, shared.ErrTrackNotFound, result)
}

// Track retrieves a single track by ID.
func (s *SpotifyService) Track(ctx context.Context, trackID string) (*SpotifyTrack, error) {
	if !shared.IsValidID(trackID) {
		return nil, fmt.Errorf("%w: invalid track id %q", shared.ErrInvalidInput, trackID)
	}

	var track SpotifyTrack
	endpoint := "/tracks/" + url.PathEscape(trackID)
	if err := s.doRequest(ctx, endpoint, &track); err != nil {
		return nil, err
	}
	return &track, nil
}

// TrackDetails retrieves a track and converts it to [models.TrackDetails].
func (s *SpotifyService) TrackDetails(ctx context.Context, id string) (*models.TrackDetails, error) {
	track, err := s.Track(ctx, id)
	if err != nil {
		return nil, err
	}
	if track.ID == "" {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}
	return track.Details(), nil
}
