package tasks

import (
	"fmt"

	"github.com/desertthunder/ratebot/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ListTracks Phase = iota
	FetchMetadata
	UpdateTracks
)

func (p Phase) String() string {
	switch p {
	case ListTracks:
		return "list_tracks"
	case FetchMetadata:
		return "fetch_metadata"
	case UpdateTracks:
		return "update_tracks"
	default:
		return ""
	}
}

func listTracksUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ListTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d tracks to refresh", total),
	}
}

func fetchMetadataUpdate(step, total int, tr *models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchMetadata,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching %s...", step, total, tr.Title),
	}
}

func trackUpdatedUpdate(step, total int, details *models.TrackDetails) ProgressUpdate {
	return ProgressUpdate{
		Phase:   UpdateTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d artists)", step, total, details.Name, len(details.Artists)),
		Data:    details,
	}
}

func trackFailedUpdate(step, total int, id string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   UpdateTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, id, err),
	}
}
