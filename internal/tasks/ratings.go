package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ratebot/internal/models"
	"github.com/desertthunder/ratebot/internal/shared"
)

// RatingStore is the subset of the rating store the [RatingEngine] needs.
//
// AddReaction and RemoveReaction must check and mutate atomically and report
// [shared.ErrReactionExists], [shared.ErrReactionNotFound] and [shared.ErrReactionMismatch].
type RatingStore interface {
	GetTrack(id string) (*models.Track, error)
	CreateTrack(track *models.Track) error
	SetMessageLink(id, link string) (bool, error)
	AddReaction(reaction *models.Reaction) error
	RemoveReaction(trackID, user string, value int) error
}

// Direction distinguishes reaction_added from reaction_removed.
type Direction int

const (
	Add Direction = iota
	Remove
)

func (d Direction) String() string {
	switch d {
	case Add:
		return "add"
	case Remove:
		return "remove"
	default:
		return ""
	}
}

// RegisterResult describes what [RatingEngine.RegisterTrack] did.
type RegisterResult struct {
	Track          *models.Track
	Created        bool   // track was unknown and has been stored
	LinkBackfilled bool   // known track received its first canonical link
	CanonicalLink  string // link of the original post, empty when still unknown
}

// Existing reports whether the track was already known before the call.
func (r *RegisterResult) Existing() bool {
	return !r.Created
}

// ReactionRequest is an incoming reaction event resolved to a track.
type ReactionRequest struct {
	TrackID   string
	User      string
	Symbol    string // reaction name, e.g. "seven"
	EventTS   string // timestamp of the message the reaction is on
	Direction Direction
}

// ReactionResult is returned for an applied reaction.
type ReactionResult struct {
	Track *models.Track
	Value int
}

// RatingEngine binds reactions to each track's canonical message and enforces one rating per user per track.
type RatingEngine struct {
	store  RatingStore
	logger *log.Logger
}

// NewRatingEngine creates a RatingEngine. A nil logger discards output.
func NewRatingEngine(store RatingStore, logger *log.Logger) *RatingEngine {
	return &RatingEngine{store: store, logger: orDiscard(logger).With("component", "ratings")}
}

// RegisterTrack records a posted track.
//
// Unknown tracks are stored with candidateLink as their canonical link (which may be empty).
// Known tracks without a link get candidateLink once; a recorded link is never replaced.
// A known track is otherwise left untouched.
func (e *RatingEngine) RegisterTrack(ctx context.Context, details models.TrackDetails, submitter, candidateLink string) (*RegisterResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	existing, err := e.store.GetTrack(details.ID)
	switch {
	case errors.Is(err, shared.ErrTrackNotFound):
		track := details.Track(submitter, candidateLink)
		if err := e.store.CreateTrack(track); err != nil {
			return nil, fmt.Errorf("failed to save track %s: %w", details.ID, err)
		}

		if candidateLink == "" {
			e.logger.Warn("track saved without a canonical message", "track_id", track.ID)
		}
		e.logger.Info("track saved", "track_id", track.ID, "user", submitter)
		return &RegisterResult{Track: track, Created: true, CanonicalLink: track.MessageLink}, nil
	case err != nil:
		return nil, fmt.Errorf("failed to look up track %s: %w", details.ID, err)
	}

	result := &RegisterResult{Track: existing, CanonicalLink: existing.MessageLink}
	if existing.HasCanonicalMessage() || candidateLink == "" {
		return result, nil
	}

	updated, err := e.store.SetMessageLink(existing.ID, candidateLink)
	if err != nil {
		return nil, fmt.Errorf("failed to backfill message link for %s: %w", existing.ID, err)
	}

	if !updated {
		// Another writer recorded a link first.
		current, err := e.store.GetTrack(existing.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload track %s: %w", existing.ID, err)
		}
		result.Track = current
		result.CanonicalLink = current.MessageLink
		return result, nil
	}

	existing.MessageLink = candidateLink
	result.LinkBackfilled = true
	result.CanonicalLink = candidateLink
	e.logger.Info("canonical message backfilled", "track_id", existing.ID)
	return result, nil
}

// ApplyReaction validates a reaction event and records or deletes the rating.
//
// Checks run in order and stop at the first failure: the track exists, it has a
// canonical message, the event is on that message, the symbol is a rating, and
// finally the duplicate (add) or match (remove) rule. Failed checks never mutate the store.
func (e *RatingEngine) ApplyReaction(ctx context.Context, req ReactionRequest) (*ReactionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := e.logger.With("track_id", req.TrackID, "user", req.User, "direction", req.Direction)

	track, err := e.store.GetTrack(req.TrackID)
	if errors.Is(err, shared.ErrTrackNotFound) {
		return nil, ErrUnknownTrack
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up track %s: %w", req.TrackID, err)
	}

	if !track.HasCanonicalMessage() {
		logger.Error("track has no canonical message")
		return nil, ErrNoCanonicalMessage
	}

	canonical, err := LinkTimestamp(track.MessageLink)
	if err != nil {
		logger.Error("canonical message link is unreadable", "link", track.MessageLink, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrNoCanonicalMessage, err)
	}

	event, err := NormalizeEventTS(req.EventTS)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWrongMessage, err)
	}

	if event != canonical {
		logger.Debug("reaction on a non-canonical message", "event_ts", req.EventTS)
		return nil, ErrWrongMessage
	}

	value := shared.SymbolToRating(req.Symbol)
	if value == 0 {
		return nil, ErrNotARating
	}

	result := &ReactionResult{Track: track, Value: value}

	switch req.Direction {
	case Add:
		err := e.store.AddReaction(&models.Reaction{TrackID: track.ID, User: req.User, Value: value})
		if errors.Is(err, shared.ErrReactionExists) {
			return nil, ErrDuplicateRating
		}
		if err != nil {
			return nil, fmt.Errorf("failed to save rating: %w", err)
		}
		logger.Info("rating added", "value", value)
	case Remove:
		err := e.store.RemoveReaction(track.ID, req.User, value)
		if errors.Is(err, shared.ErrReactionNotFound) {
			return nil, ErrNoRating
		}
		if errors.Is(err, shared.ErrReactionMismatch) {
			return nil, ErrReactionMismatch
		}
		if err != nil {
			return nil, fmt.Errorf("failed to remove rating: %w", err)
		}
		logger.Info("rating removed", "value", value)
	default:
		return nil, fmt.Errorf("%w: unknown direction %d", shared.ErrInvalidArgument, req.Direction)
	}

	return result, nil
}
