package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/ratebot/internal/models"
	"github.com/desertthunder/ratebot/internal/shared"
)

// TrackProvider fetches catalog metadata for a track id.
type TrackProvider interface {
	TrackDetails(ctx context.Context, id string) (*models.TrackDetails, error)
}

// MetadataStore lists stored tracks and rewrites their metadata.
type MetadataStore interface {
	ListTracks(criteria map[string]any) ([]*models.Track, error)
	UpdateMetadata(details models.TrackDetails) error
}

// BackfillOpts contains configuration for a metadata backfill.
type BackfillOpts struct {
	All        bool    // Refresh every track instead of only tracks without artists
	NumWorkers int     // Concurrent writers (default: 2)
	RateLimit  float64 // Catalog requests per second (default: 5)
}

// BackfillTrackResult is the outcome for one track.
type BackfillTrackResult struct {
	TrackID string
	Details *models.TrackDetails
	Success bool
	Error   error
}

// BackfillResult summarises a backfill run.
type BackfillResult struct {
	Total   int
	Updated int
	Failed  int
	Results []BackfillTrackResult
}

// Backfiller refreshes stored track metadata (title, album, artist credits) from the catalog.
type Backfiller struct {
	provider TrackProvider
	store    MetadataStore
	logger   *log.Logger
}

// NewBackfiller creates a Backfiller. A nil logger discards output.
func NewBackfiller(provider TrackProvider, store MetadataStore, logger *log.Logger) *Backfiller {
	return &Backfiller{provider: provider, store: store, logger: orDiscard(logger).With("component", "backfill")}
}

// Run fetches metadata for the selected tracks with rate limiting and writes it through a worker pool.
//
// Per-track failures are collected in the result; only setup failures and cancellation return an error.
func (b *Backfiller) Run(ctx context.Context, prog chan<- ProgressUpdate, opts BackfillOpts) (*BackfillResult, error) {
	if b.provider == nil {
		return nil, fmt.Errorf("%w: track provider not initialized", shared.ErrServiceUnavailable)
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 2
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	tracks, err := b.store.ListTracks(map[string]any{"without_artists": !opts.All})
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}

	total := len(tracks)
	result := &BackfillResult{Total: total, Results: make([]BackfillTrackResult, 0, total)}
	sendProgress(prog, listTracksUpdate(total))

	if total == 0 {
		return result, nil
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan *models.TrackDetails, total)
	results := make(chan BackfillTrackResult, total)

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go b.worker(ctx, &wg, jobs, results)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(jobs)
		for i, track := range tracks {
			if err := limiter.Wait(ctx); err != nil {
				return
			}

			sendProgress(prog, fetchMetadataUpdate(i+1, total, track))

			details, err := b.provider.TrackDetails(ctx, track.ID)
			if err != nil {
				results <- BackfillTrackResult{
					TrackID: track.ID,
					Error:   fmt.Errorf("failed to fetch metadata: %w", err),
				}
				continue
			}

			jobs <- details
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.Updated++
			sendProgress(prog, trackUpdatedUpdate(completed, total, res.Details))
		} else {
			result.Failed++
			b.logger.Warn("track not refreshed", "track_id", res.TrackID, "err", res.Error)
			sendProgress(prog, trackFailedUpdate(completed, total, res.TrackID, res.Error))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	b.logger.Info("backfill finished", "updated", result.Updated, "failed", result.Failed)
	return result, nil
}

// worker writes fetched metadata from the jobs channel.
func (b *Backfiller) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan *models.TrackDetails,
	results chan<- BackfillTrackResult,
) {
	defer wg.Done()

	for details := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res := BackfillTrackResult{TrackID: details.ID, Details: details}
		if err := b.store.UpdateMetadata(*details); err != nil {
			res.Error = fmt.Errorf("failed to update track: %w", err)
		} else {
			res.Success = true
		}
		results <- res
	}
}
