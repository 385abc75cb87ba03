package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/ratebot/internal/formatter"
	"github.com/desertthunder/ratebot/internal/models"
	"github.com/desertthunder/ratebot/internal/shared"
	"github.com/desertthunder/ratebot/internal/tasks"
	"github.com/desertthunder/ratebot/internal/telemetry"
)

const (
	msgInvalidCount       = "Invalid count specified. Please provide a positive integer."
	msgNoSongs            = "No songs found in the database."
	msgLeaderboardFailed  = "An error occurred while fetching the leaderboard. Please try again later."
	msgInvalidMention     = "Invalid user mention format. Please use @username format."
	msgUnknownUserInfo    = "Could not find user information. Please try again later."
	msgUnratedFailed      = "An error occurred while fetching your unrated songs. Please try again later."
	msgStatsTarget        = "Please specify exactly one of the following: --user, --song, or --artist."
	msgMissingSong        = "Please specify a song using the --song argument."
	msgMissingArtist      = "Please specify an artist using the --artist argument."
	msgStatsFailed        = "An error occurred while fetching statistics. Please try again later."
	msgUnknownCommandTmpl = "Unknown command `%s`."
)

// commandError is a failed command: the reply shown to the user and the outcome recorded for it.
type commandError struct {
	outcome string
	reply   string
}

func (e *commandError) Error() string { return e.reply }

func invalid(reply string) *commandError { return &commandError{outcome: "invalid", reply: reply} }

func failed(reply string) *commandError { return &commandError{outcome: "error", reply: reply} }

// HandleCommand runs a slash command and returns the reply to send back.
//
// Failures always reply privately, whatever --public says.
func (d *Dispatcher) HandleCommand(ctx context.Context, cmd Command) Reply {
	name := strings.TrimPrefix(strings.TrimSpace(cmd.Name), "/")
	logger := d.logger.With("command", name, "user", cmd.UserID)
	logger.Info("command received")

	var (
		reply Reply
		err   error
	)

	switch name {
	case "ping":
		reply = Reply{Text: "Pong!"}
	case "leaderboard":
		reply, err = d.leaderboard(ctx, cmd)
	case "unrated":
		reply, err = d.unrated(ctx, cmd)
	case "stats":
		reply, err = d.statistics(ctx, cmd)
	default:
		telemetry.RecordCommand("unknown", "invalid")
		return Reply{Text: fmt.Sprintf(msgUnknownCommandTmpl, "/"+name)}
	}

	if err != nil {
		var ce *commandError
		if !errors.As(err, &ce) {
			ce = failed(msgStatsFailed)
		}
		if ce.outcome == "error" {
			logger.Error("command failed", "err", err)
		}
		telemetry.RecordCommand(name, ce.outcome)
		return Reply{Text: ce.reply}
	}

	telemetry.RecordCommand(name, "ok")
	logger.Debug("command replied", "visibility", shared.VisibilityString(reply.Public))
	return reply
}

func (d *Dispatcher) leaderboard(ctx context.Context, cmd Command) (Reply, error) {
	opts, err := ParseArgs(cmd.Text)
	if err != nil {
		return Reply{}, invalid(msgInvalidCount)
	}

	entries, err := d.stats.TopTracks(ctx, opts.Count)
	if err != nil {
		d.logger.Error("failed to fetch leaderboard", "err", err)
		return Reply{}, failed(msgLeaderboardFailed)
	}
	if len(entries) == 0 {
		return Reply{}, &commandError{outcome: "empty", reply: msgNoSongs}
	}

	return Reply{Text: formatter.LeaderboardTable(entries, formatter.DefaultLeaderboardTitle), Public: opts.Public}, nil
}

// PostLeaderboard publishes the top count tracks to channel.
func (d *Dispatcher) PostLeaderboard(ctx context.Context, channel string, count int) error {
	entries, err := d.stats.TopTracks(ctx, count)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return d.chat.PostMessage(ctx, channel, msgNoSongs)
	}
	return d.chat.PostMessage(ctx, channel, formatter.LeaderboardTable(entries, formatter.DefaultLeaderboardTitle))
}

// resolveUser picks the --user mention when given, the invoking user otherwise.
func (d *Dispatcher) resolveUser(ctx context.Context, opts Options, invoker string) (string, error) {
	if !opts.Has("user") {
		return invoker, nil
	}

	mention, ok := shared.ParseUserMention(opts.User)
	if !ok {
		return "", invalid(msgInvalidMention)
	}

	exists, err := d.chat.UserExists(ctx, mention.ID)
	if err != nil {
		d.logger.Error("failed to verify user", "user", mention.ID, "err", err)
	}
	if err != nil || !exists {
		return "", invalid(fmt.Sprintf("User `%s` does not exist or is not accessible.", mention.ID))
	}
	return mention.ID, nil
}

func (d *Dispatcher) unrated(ctx context.Context, cmd Command) (Reply, error) {
	opts, err := ParseArgs(cmd.Text)
	if err != nil {
		return Reply{}, invalid(msgInvalidCount)
	}

	user, err := d.resolveUser(ctx, opts, cmd.UserID)
	if err != nil {
		return Reply{}, err
	}

	name, err := d.chat.UserName(ctx, user)
	if err != nil {
		d.logger.Error("failed to fetch user name", "user", user, "err", err)
		return Reply{}, failed(msgUnknownUserInfo)
	}

	tracks, err := d.stats.Unrated(ctx, user)
	if err != nil {
		d.logger.Error("failed to fetch unrated songs", "user", user, "err", err)
		return Reply{}, failed(msgUnratedFailed)
	}
	if len(tracks) == 0 {
		return Reply{Text: fmt.Sprintf("No unrated songs found for %s.", name), Public: opts.Public}, nil
	}

	return Reply{Text: formatter.UnratedTable(tracks, name), Public: opts.Public}, nil
}

func (d *Dispatcher) statistics(ctx context.Context, cmd Command) (Reply, error) {
	opts, err := ParseArgs(cmd.Text)
	if err != nil {
		return Reply{}, invalid(msgInvalidCount)
	}

	targets := 0
	for _, flag := range []string{"user", "song", "artist"} {
		if opts.Has(flag) {
			targets++
		}
	}
	if targets != 1 {
		return Reply{}, invalid(msgStatsTarget)
	}

	var text string
	switch {
	case opts.Has("user"):
		text, err = d.userStats(ctx, opts)
	case opts.Has("song"):
		text, err = d.songStats(ctx, opts.Song)
	default:
		text, err = d.artistStats(ctx, opts.Artist)
	}
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: text, Public: opts.Public}, nil
}

func (d *Dispatcher) userStats(ctx context.Context, opts Options) (string, error) {
	user, err := d.resolveUser(ctx, opts, "")
	if err != nil {
		return "", err
	}

	report, err := d.stats.UserReport(ctx, user, d.displayName(ctx, user))
	if err != nil {
		return "", fmt.Errorf("failed to build user report: %w", err)
	}
	return formatter.UserStats(*report), nil
}

func (d *Dispatcher) songStats(ctx context.Context, song string) (string, error) {
	if song == "" {
		return "", invalid(msgMissingSong)
	}

	tracks, err := d.stats.FindTracks(ctx, song)
	if errors.Is(err, shared.ErrTrackNotFound) {
		if id, isLink := shared.ExtractTrackID(song); isLink {
			return "", invalid(fmt.Sprintf("No song found with the ID '%s'.", id))
		}
		return "", invalid(fmt.Sprintf("No songs found with the name '%s'.", song))
	}
	if err != nil {
		return "", fmt.Errorf("failed to find song: %w", err)
	}

	if len(tracks) > 1 {
		return "", invalid(multipleMatches(song, tracks))
	}

	stats, err := d.stats.TrackStatistics(ctx, tracks[0].ID)
	if errors.Is(err, shared.ErrTrackNotFound) {
		return "", invalid(fmt.Sprintf("No song found with the ID '%s'.", tracks[0].ID))
	}
	if err != nil {
		return "", err
	}

	view := formatter.TrackView{
		Stats:     *stats,
		Submitter: d.displayName(ctx, stats.Track.User),
		Names:     make(map[string]string, len(stats.Ratings)),
	}
	if posted, err := tasks.MessageTime(stats.Track.MessageLink); err == nil {
		view.Posted = posted
	}
	for _, r := range stats.Ratings {
		view.Names[r.User] = d.displayName(ctx, r.User)
	}

	return formatter.TrackStats(view), nil
}

func multipleMatches(query string, tracks []*models.Track) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Multiple songs found matching '%s'. Please refine your query or use one of the track IDs below:\n", query)
	for i, t := range tracks {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "*%s* (Album: %s, ID: `%s`)", t.Title, t.Album, t.ID)
	}
	return b.String()
}

func (d *Dispatcher) artistStats(ctx context.Context, artist string) (string, error) {
	if artist == "" {
		return "", invalid(msgMissingArtist)
	}

	stats, err := d.stats.ArtistStatistics(ctx, artist)
	if errors.Is(err, shared.ErrArtistNotFound) {
		return "", invalid(fmt.Sprintf("No artist found with the name '%s'.", artist))
	}
	if err != nil {
		return "", err
	}
	return formatter.ArtistStats(*stats), nil
}

// displayName looks up user's name, falling back to the raw id.
func (d *Dispatcher) displayName(ctx context.Context, user string) string {
	if user == "" {
		return ""
	}
	name, err := d.chat.UserName(ctx, user)
	if err != nil {
		d.logger.Debug("failed to fetch user name", "user", user, "err", err)
		return user
	}
	return name
}
