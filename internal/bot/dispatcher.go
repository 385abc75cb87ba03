package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ratebot/internal/shared"
	"github.com/desertthunder/ratebot/internal/tasks"
	"github.com/desertthunder/ratebot/internal/telemetry"
)

const trackLinkPrefix = "https://open.spotify.com/track/"

// Replies sent for posted tracks and reactions.
const (
	msgNoTrackID       = "No valid Spotify track ID found in the message."
	msgFetchFailed     = "Could not fetch track details. Please try again later."
	msgSaveFailed      = "Could not save the track. Please try again later."
	msgTrackExists     = "Track already exists in the database! 🎵\n"
	msgUnknownTrack    = "This song is not in the database. Please add it first."
	msgNoCanonical     = "No original message link found for this song. Please add the song first."
	msgDuplicateRating = "You have already reacted to this song. Please remove your previous reaction first."
	msgNoRating        = "You have not reacted to this song yet."
)

// Dispatcher routes Slack events and slash commands to the rating and aggregation engines.
type Dispatcher struct {
	chat     Chat
	provider tasks.TrackProvider
	ratings  *tasks.RatingEngine
	stats    *tasks.Aggregator
	logger   *log.Logger

	// serializes reactions of one user on one track
	locks keyedMutex
}

// NewDispatcher creates a Dispatcher. A nil logger discards output.
func NewDispatcher(chat Chat, provider tasks.TrackProvider, ratings *tasks.RatingEngine, stats *tasks.Aggregator, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Dispatcher{
		chat:     chat,
		provider: provider,
		ratings:  ratings,
		stats:    stats,
		logger:   shared.WithLogger(logger, "component", "dispatcher"),
	}
}

// HandleEvent dispatches an Events API event by type.
func (d *Dispatcher) HandleEvent(ctx context.Context, ev Event) error {
	switch ev.Type {
	case EventMessage:
		return d.HandleMessage(ctx, ev)
	case EventReactionAdded:
		return d.HandleReaction(ctx, ev, tasks.Add)
	case EventReactionRemoved:
		return d.HandleReaction(ctx, ev, tasks.Remove)
	default:
		d.logger.Debug("ignoring event", "type", ev.Type)
		return nil
	}
}

// HandleMessage registers the track linked in a posted message and tells the poster what happened.
//
// Messages from bots, edits and other subtypes are ignored, as are messages without a track link.
func (d *Dispatcher) HandleMessage(ctx context.Context, ev Event) error {
	if ev.Subtype != "" || ev.BotID != "" || ev.User == "" {
		return nil
	}
	if !strings.Contains(ev.Text, trackLinkPrefix) {
		return nil
	}

	logger := d.logger.With("channel", ev.Channel, "user", ev.User)

	id, ok := shared.ExtractTrackID(ev.Text)
	if !ok {
		logger.Warn("no track id in message")
		telemetry.RecordTrack("invalid")
		return d.chat.PostEphemeral(ctx, ev.Channel, ev.User, msgNoTrackID)
	}
	logger = logger.With("track_id", id)

	if d.provider == nil {
		logger.Error("no track provider configured")
		telemetry.RecordTrack("fetch_failed")
		return d.chat.PostEphemeral(ctx, ev.Channel, ev.User, msgFetchFailed)
	}

	details, err := d.provider.TrackDetails(ctx, id)
	if err != nil {
		logger.Error("failed to fetch track details", "err", err)
		telemetry.RecordTrack("fetch_failed")
		return d.chat.PostEphemeral(ctx, ev.Channel, ev.User, msgFetchFailed)
	}

	link, err := d.chat.Permalink(ctx, ev.Channel, ev.TS)
	if err != nil {
		logger.Error("failed to generate permalink", "err", err)
		link = ""
	}

	result, err := d.ratings.RegisterTrack(ctx, *details, ev.User, link)
	if err != nil {
		logger.Error("failed to register track", "err", err)
		telemetry.RecordTrack("error")
		return d.chat.PostEphemeral(ctx, ev.Channel, ev.User, msgSaveFailed)
	}

	if result.Existing() {
		telemetry.RecordTrack("existing")
		text := msgTrackExists
		if result.CanonicalLink != "" {
			text += fmt.Sprintf("<%s|View/rate the original message!>", result.CanonicalLink)
		}
		return d.chat.PostEphemeral(ctx, ev.Channel, ev.User, text)
	}

	telemetry.RecordTrack("created")
	return d.chat.PostEphemeral(ctx, ev.Channel, ev.User, savedMessage(details.Name, details.Album, details.ReleaseDate, result.Track.ArtistNames()))
}

func savedMessage(title, album, released string, artists []string) string {
	return "Track details saved successfully! 🎶\n" +
		fmt.Sprintf("*Title:* %s\n", title) +
		fmt.Sprintf("*Album:* %s\n", album) +
		fmt.Sprintf("*Artists:* %s\n", strings.Join(artists, ", ")) +
		fmt.Sprintf("*Release Date:* %s\n", released)
}

// HandleReaction applies a rating reaction to the track linked in the reacted message.
//
// Non-rating reactions are dropped before any API call. Rule violations are explained to the
// reacting user with an ephemeral message; mismatched removals are dropped silently.
func (d *Dispatcher) HandleReaction(ctx context.Context, ev Event, dir tasks.Direction) error {
	if !shared.IsRatingSymbol(ev.Reaction) {
		return nil
	}

	channel, ts := ev.Item.Channel, ev.Item.TS
	if channel == "" || ts == "" || (ev.Item.Type != "" && ev.Item.Type != "message") {
		d.logger.Warn("invalid item in reaction event", "item", ev.Item)
		return nil
	}

	logger := d.logger.With("channel", channel, "user", ev.User, "direction", dir)

	text, err := d.chat.MessageText(ctx, channel, ts)
	if err != nil {
		telemetry.RecordReaction(dir.String(), "error")
		return fmt.Errorf("failed to fetch reacted message: %w", err)
	}

	id, ok := shared.ExtractTrackID(text)
	if !ok {
		logger.Debug("reaction on a message without a track link")
		return nil
	}
	logger = logger.With("track_id", id)

	unlock := d.locks.Lock(id + "|" + ev.User)
	defer unlock()

	_, err = d.ratings.ApplyReaction(ctx, tasks.ReactionRequest{
		TrackID:   id,
		User:      ev.User,
		Symbol:    ev.Reaction,
		EventTS:   ts,
		Direction: dir,
	})

	var reply string
	outcome := "applied"

	switch {
	case err == nil:
	case errors.Is(err, tasks.ErrUnknownTrack):
		outcome, reply = "unknown_track", msgUnknownTrack
	case errors.Is(err, tasks.ErrNoCanonicalMessage):
		outcome, reply = "no_canonical", msgNoCanonical
	case errors.Is(err, tasks.ErrWrongMessage):
		outcome, reply = "wrong_message", d.wrongMessageReply(ctx, id, dir)
	case errors.Is(err, tasks.ErrDuplicateRating):
		outcome, reply = "duplicate", msgDuplicateRating
	case errors.Is(err, tasks.ErrNoRating):
		outcome, reply = "no_rating", msgNoRating
	case errors.Is(err, tasks.ErrReactionMismatch):
		outcome = "mismatch"
		logger.Warn("removed reaction does not match the stored rating", "reaction", ev.Reaction)
	case errors.Is(err, tasks.ErrNotARating):
		outcome = "not_rating"
	default:
		telemetry.RecordReaction(dir.String(), "error")
		return fmt.Errorf("failed to apply reaction: %w", err)
	}

	telemetry.RecordReaction(dir.String(), outcome)
	if reply == "" {
		return nil
	}
	return d.chat.PostEphemeral(ctx, channel, ev.User, reply)
}

// wrongMessageReply points the user at the canonical message of track id.
func (d *Dispatcher) wrongMessageReply(ctx context.Context, id string, dir tasks.Direction) string {
	link := "#"
	if tracks, err := d.stats.FindTracks(ctx, id); err == nil && len(tracks) > 0 && tracks[0].HasCanonicalMessage() {
		link = tracks[0].MessageLink
	} else if err != nil {
		d.logger.Error("failed to look up canonical message", "track_id", id, "err", err)
	}

	if dir == tasks.Remove {
		return "Reactions can only be removed from the original song message." +
			fmt.Sprintf(" Please remove your reaction from the original message here: <%s|View original message>.", link)
	}
	return "Reactions can only be added to the original song message." +
		fmt.Sprintf(" Please react to the original message here: <%s|View original message>.", link)
}
