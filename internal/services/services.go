package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/desertthunder/ratebot/internal/models"
	"github.com/desertthunder/ratebot/internal/shared"
	"github.com/desertthunder/ratebot/internal/telemetry"
)

// TrackProvider fetches catalog metadata for a single track.
type TrackProvider interface {
	// TrackDetails returns the title, album, release date and credited artists of id.
	TrackDetails(ctx context.Context, id string) (*models.TrackDetails, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// statusError maps an unsuccessful HTTP status to a shared sentinel. A 404 maps to notFound.
func statusError(service string, code int, notFound error) error {
	switch {
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %s returned %d", notFound, service, code)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: %s returned %d", shared.ErrAuthFailed, service, code)
	case code == http.StatusTooManyRequests || code >= 500:
		return fmt.Errorf("%w: %s returned %d", shared.ErrServiceUnavailable, service, code)
	default:
		return fmt.Errorf("%w: %s returned %d", shared.ErrAPIRequest, service, code)
	}
}

// doJSON sends req with client and decodes a 2xx JSON body into result.
func doJSON(client *http.Client, service string, req *http.Request, notFound error, result any) error {
	resp, err := client.Do(req)
	if err != nil {
		telemetry.RecordExternal(service, "error")
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return fmt.Errorf("%w: %v", shared.ErrAuthFailed, re)
		}
		return fmt.Errorf("%w: request failed: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		telemetry.RecordExternal(service, "error")
		io.Copy(io.Discard, resp.Body)
		return statusError(service, resp.StatusCode, notFound)
	}

	telemetry.RecordExternal(service, "ok")
	if result == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
