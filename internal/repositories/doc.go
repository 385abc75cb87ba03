// Package repositories implements SQLite persistence for tracks, artists and ratings.
//
// Key Implementations:
//   - [TrackRepository] : Tracks with their artist credits and the write-once canonical message link
//   - [ArtistRepository] : Case-insensitive artist lookups
//   - [ReactionRepository] : Ratings, with transactional check-and-insert / check-and-delete
//   - [StatsRepository] : Leaderboard, unrated and per-user/track/artist aggregation queries
//
// [Store] composes the repositories and satisfies the store interfaces of the rating and aggregation engines.
// Missing rows are reported with the sentinels in the shared package ([shared.ErrTrackNotFound], [shared.ErrReactionNotFound], ...).
package repositories
