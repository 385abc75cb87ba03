// Package models defines the domain records shared by the rating store, the engines and the formatters.
//
// The package contains two categories of types:
//
// 1. Persistent Entities: rows owned by the rating store
//   - [Track] : A posted Spotify track and its canonical message link
//   - [Artist] : A contributing artist, unique by name
//   - [Reaction] : One user's 1-10 rating of a track
//
// 2. Query Records: typed results of the aggregation queries
//   - [LeaderboardEntry] : A ranked track with its mean rating and count
//   - [UnratedTrack] : A track a user has not rated yet
//   - [UserStats], [TopTrack], [TopArtist] : Per-user summaries
//   - [TrackStats], [ArtistStats] : Per-track and per-artist summaries
//
// [TrackDetails] is the metadata returned by the Spotify client.
package models
