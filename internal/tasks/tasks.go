package tasks

import (
	"errors"
	"io"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ratebot/internal/shared"
)

// Reconciliation failures. Callers translate each into an advisory reply.
var (
	ErrUnknownTrack       = errors.New("track is not in the database")
	ErrNoCanonicalMessage = errors.New("track has no canonical message")
	ErrWrongMessage       = errors.New("reaction is not on the canonical message")
	ErrNotARating         = errors.New("reaction is not a rating")
	ErrDuplicateRating    = errors.New("user already rated this track")
	ErrReactionMismatch   = errors.New("removed reaction does not match the stored rating")
	ErrNoRating           = errors.New("user has not rated this track")
)

// Default result sizes.
const (
	DefaultLeaderboardSize = 10
	DefaultTopCount        = 3
	DefaultSearchLimit     = 10
)

func orDiscard(l *log.Logger) *log.Logger {
	if l != nil {
		return l
	}
	return shared.NewLogger(io.Discard)
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
