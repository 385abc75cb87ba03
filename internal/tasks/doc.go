// Package tasks holds the engines behind the bot: rating reconciliation, aggregation and metadata backfill.
//
// # Rating Reconciliation
//
// [RatingEngine.RegisterTrack] stores a newly shared track or reports the canonical
// message of one already stored, backfilling the message link when it was never recorded.
//
// [RatingEngine.ApplyReaction] turns an emoji reaction into a rating change. Checks run in
// a fixed order and the first failure wins:
//
//  1. the track must be stored ([ErrUnknownTrack])
//  2. it must have a canonical message ([ErrNoCanonicalMessage])
//  3. the reaction must be on that message ([ErrWrongMessage])
//  4. the emoji must be a rating symbol ([ErrNotARating])
//  5. adds require no existing rating ([ErrDuplicateRating]); removes require a matching one
//     ([ErrNoRating], [ErrReactionMismatch])
//
// Message identity is compared on a canonical integer microsecond form, see [NormalizeEventTS]
// and [LinkTimestamp].
//
// # Aggregation
//
// [Aggregator] ranks tracks and users. Rankings order by mean descending, count descending,
// then submission order.
//
// # Backfill
//
// [Backfiller] refreshes stored titles and artist credits from the catalog through a
// rate-limited producer and a small worker pool.
//
// # Progress Reporting
//
// Long-running operations emit [ProgressUpdate] values on an optional channel. Sends never block.
package tasks
