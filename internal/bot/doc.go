// Package bot turns Slack events and slash commands into rating engine calls and replies.
//
// # Events
//
// A posted message containing a Spotify track link registers the track, with the message's permalink
// as its canonical message. Reposts of a known track get a pointer back to the original.
//
// Rating reactions (one through keycap_ten) on a track message are applied through [tasks.RatingEngine].
// Other reactions are dropped before any API call. Reactions of one user on one track are serialized.
//
// # Commands
//
//   - /ping
//   - /leaderboard [--count N] [--public]
//   - /unrated [--user @user] [--public]
//   - /stats (--user @user | --song link|id|title | --artist name) [--public]
//
// Replies are private unless --public is given; errors are always private.
package bot
