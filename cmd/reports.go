package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ratebot/internal/formatter"
	"github.com/desertthunder/ratebot/internal/shared"
	"github.com/desertthunder/ratebot/internal/tasks"
)

// Leaderboard prints the top rated tracks as a table, CSV or JSON, or posts them to a channel.
func (r *Runner) Leaderboard(ctx context.Context, cmd *cli.Command) error {
	count := int(cmd.Int("count"))
	if count < 0 {
		return fmt.Errorf("%w: count must be positive", shared.ErrInvalidFlag)
	}

	store, err := r.open()
	if err != nil {
		return err
	}

	if channel := cmd.String("post"); channel != "" {
		dispatcher, err := r.dispatcher(store)
		if err != nil {
			return err
		}
		if err := dispatcher.PostLeaderboard(ctx, channel, count); err != nil {
			return fmt.Errorf("failed to post leaderboard: %w", err)
		}
		r.logger.Info("leaderboard posted", "channel", channel)
		return r.writePlain("✓ Leaderboard posted to %s\n", channel)
	}

	entries, err := r.aggregator(store).TopTracks(ctx, count)
	if err != nil {
		return fmt.Errorf("failed to fetch leaderboard: %w", err)
	}

	switch format := strings.ToLower(cmd.String("format")); format {
	case "json":
		data, err := formatter.LeaderboardJSON(entries)
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return r.writePlain("%s\n", data)
	case "csv":
		data, err := formatter.LeaderboardCSV(entries)
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	case "table", "":
		if len(entries) == 0 {
			return r.writePlain("No rated songs yet.\n")
		}
		r.writePlainHeader(formatter.DefaultLeaderboardTitle)
		for i, e := range entries {
			r.writePlain("%-4s %5.1f  (%d)  %s - %s\n",
				formatter.RankLabel(i+1), e.Mean, e.Count, e.Title, strings.Join(e.Artists, ", "))
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown format %q (want table, csv or json)", shared.ErrInvalidFlag, format)
	}
}

// Unrated lists the tracks a user has yet to rate.
func (r *Runner) Unrated(ctx context.Context, cmd *cli.Command) error {
	user := userID(cmd.String("user"))

	store, err := r.open()
	if err != nil {
		return err
	}

	tracks, err := r.aggregator(store).Unrated(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to fetch unrated tracks: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}

	name := r.displayName(ctx, user)
	if len(tracks) == 0 {
		return r.writePlain("No unrated songs found for %s.\n", name)
	}

	r.writePlainHeader(fmt.Sprintf("Unrated songs for %s (%d)", name, len(tracks)))
	for _, t := range tracks {
		r.writePlain("%s  %s - %s\n", t.ID, t.Title, strings.Join(t.Artists, ", "))
	}

	lowest, _ := shared.RatingSymbolName(shared.MinRating)
	highest, _ := shared.RatingSymbolName(shared.MaxRating)
	return r.writePlain("\nRate them in Slack by reacting with :%s: through :%s:\n", lowest, highest)
}

// Stats prints the statistics of exactly one user, song or artist.
func (r *Runner) Stats(ctx context.Context, cmd *cli.Command) error {
	targets := 0
	for _, flag := range []string{"user", "song", "artist"} {
		if cmd.IsSet(flag) {
			targets++
		}
	}
	if targets != 1 {
		return fmt.Errorf("%w: specify exactly one of --user, --song or --artist", shared.ErrMissingArgument)
	}

	store, err := r.open()
	if err != nil {
		return err
	}
	agg := r.aggregator(store)
	asJSON := cmd.Bool("json")

	switch {
	case cmd.IsSet("user"):
		user := userID(cmd.String("user"))
		report, err := agg.UserReport(ctx, user, r.displayName(ctx, user))
		if err != nil {
			return fmt.Errorf("failed to build user report: %w", err)
		}
		if asJSON {
			return r.writeJSON(report, true)
		}
		return r.writePlain("%s\n", strings.TrimSpace(formatter.UserStats(*report)))

	case cmd.IsSet("song"):
		song := cmd.String("song")
		tracks, err := agg.FindTracks(ctx, song)
		if err != nil {
			return fmt.Errorf("failed to find song: %w", err)
		}
		if len(tracks) > 1 {
			r.writePlain("Multiple songs found matching '%s'. Use one of the track IDs below:\n", song)
			for _, t := range tracks {
				r.writePlain("  %s  %s (%s)\n", t.ID, t.Title, t.Album)
			}
			return nil
		}

		stats, err := agg.TrackStatistics(ctx, tracks[0].ID)
		if err != nil {
			return err
		}
		if asJSON {
			return r.writeJSON(stats, true)
		}

		view := formatter.TrackView{
			Stats:     *stats,
			Submitter: r.displayName(ctx, stats.Track.User),
			Names:     make(map[string]string, len(stats.Ratings)),
		}
		if posted, err := tasks.MessageTime(stats.Track.MessageLink); err == nil {
			view.Posted = posted
		}
		for _, rating := range stats.Ratings {
			view.Names[rating.User] = r.displayName(ctx, rating.User)
		}
		return r.writePlain("%s\n", strings.TrimSpace(formatter.TrackStats(view)))

	default:
		stats, err := agg.ArtistStatistics(ctx, cmd.String("artist"))
		if errors.Is(err, shared.ErrArtistNotFound) {
			return fmt.Errorf("no artist found with the name %q: %w", cmd.String("artist"), err)
		}
		if err != nil {
			return err
		}
		if asJSON {
			return r.writeJSON(stats, true)
		}
		return r.writePlain("%s\n", strings.TrimSpace(formatter.ArtistStats(*stats)))
	}
}

// userID accepts a raw user id or a <@U…> mention.
func userID(s string) string {
	s = strings.TrimSpace(s)
	if m, ok := shared.ParseUserMention(s); ok {
		return m.ID
	}
	return s
}
