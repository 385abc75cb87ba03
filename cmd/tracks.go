package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ratebot/internal/shared"
	"github.com/desertthunder/ratebot/internal/tasks"
)

// TracksAdd registers a track as if userID had posted it.
//
// Without --link the track has no canonical message until it is next posted in Slack.
func (r *Runner) TracksAdd(ctx context.Context, cmd *cli.Command) error {
	input := cmd.StringArg("track")
	if input == "" {
		return fmt.Errorf("%w: track link or id", shared.ErrMissingArgument)
	}

	id, ok := shared.ExtractOrValidateTrackID(input)
	if !ok {
		return fmt.Errorf("%w: %q is not a track link or id", shared.ErrInvalidArgument, input)
	}

	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}

	store, err := r.open()
	if err != nil {
		return err
	}

	details, err := r.spotify.TrackDetails(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch track details: %w", err)
	}

	user := userID(cmd.String("user"))
	result, err := tasks.NewRatingEngine(store, r.logger).RegisterTrack(ctx, *details, user, cmd.String("link"))
	if err != nil {
		return fmt.Errorf("failed to register track: %w", err)
	}

	switch {
	case result.Created:
		r.writePlain("✓ Added %s - %s (%s)\n", details.Name, strings.Join(result.Track.ArtistNames(), ", "), id)
	case result.LinkBackfilled:
		r.writePlain("✓ Track already stored, canonical message set to %s\n", result.CanonicalLink)
	default:
		r.writePlain("Track already exists in the database: %s\n", id)
	}
	return nil
}

// TracksDelete removes a track. Its ratings and artist credits go with it.
func (r *Runner) TracksDelete(ctx context.Context, cmd *cli.Command) error {
	input := cmd.StringArg("id")
	id, ok := shared.ExtractOrValidateTrackID(input)
	if !ok {
		return fmt.Errorf("%w: %q is not a track link or id", shared.ErrInvalidArgument, input)
	}

	store, err := r.open()
	if err != nil {
		return err
	}

	if err := store.Tracks.Delete(id); err != nil {
		return err
	}

	r.logger.Info("track deleted", "track_id", id)
	return r.writePlain("✓ Deleted %s\n", id)
}

// TracksSearch resolves a link, id or title fragment to stored tracks.
func (r *Runner) TracksSearch(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")

	store, err := r.open()
	if err != nil {
		return err
	}

	tracks, err := r.aggregator(store).FindTracks(ctx, query)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}

	for _, t := range tracks {
		r.writePlain("%s  %s - %s  [%s]\n", t.ID, t.Title, strings.Join(t.ArtistNames(), ", "), t.Album)
	}
	return nil
}

// TracksOpen opens the canonical message of a stored track, falling back to its public track page.
func (r *Runner) TracksOpen(ctx context.Context, cmd *cli.Command) error {
	input := cmd.StringArg("track")
	id, ok := shared.ExtractOrValidateTrackID(input)
	if !ok {
		return fmt.Errorf("%w: %q is not a track link or id", shared.ErrInvalidArgument, input)
	}

	store, err := r.open()
	if err != nil {
		return err
	}

	track, err := store.GetTrack(id)
	if err != nil {
		return err
	}

	url := track.MessageLink
	if url == "" {
		r.logger.Warn("track has no canonical message", "track_id", id)
		url = shared.TrackURL(id)
	}

	if err := r.openURL(url); err != nil {
		return err
	}
	return r.writePlain("Opened %s\n", url)
}

// TracksBackfill refreshes stored metadata from Spotify, printing progress as it goes.
func (r *Runner) TracksBackfill(ctx context.Context, cmd *cli.Command) error {
	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}

	store, err := r.open()
	if err != nil {
		return err
	}

	opts := tasks.BackfillOpts{
		All:        cmd.Bool("all"),
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  cmd.Float("rate"),
	}
	r.logger.Info("starting backfill", "all", opts.All, "workers", opts.NumWorkers, "rate", opts.RateLimit)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for update := range progressCh {
			switch update.Phase {
			case tasks.ListTracks:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.UpdateTracks:
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()

	result, err := tasks.NewBackfiller(r.spotify, store, r.logger).Run(ctx, progressCh, opts)
	close(progressCh)
	<-printed

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Backfill Complete!")
	r.writePlain("Updated: %d/%d\n", result.Updated, result.Total)

	if result.Failed > 0 {
		r.writePlain("\nFailed to refresh %d tracks:\n", result.Failed)
		for _, res := range result.Results {
			if res.Error != nil {
				r.writePlain("  - %s: %v\n", res.TrackID, res.Error)
			}
		}
	}
	return nil
}
