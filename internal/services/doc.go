// Package services implements the HTTP clients the bot talks to: the Spotify catalog and the Slack Web API.
//
// # Spotify
//
// [SpotifyService] authenticates with the OAuth2 client-credentials flow. The token source from
// [clientcredentials.Config] fetches and refreshes app tokens on demand, so no user login is involved.
// Requests are paced by a [rate.Limiter] shared by every caller of the service.
//
// # Slack
//
// [SlackService] wraps a [slack.Client] authenticated with the bot token. Slack reports failures in
// the body ("ok": false); those come back as [SlackError], which matches [shared.ErrAPIRequest].
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrTrackNotFound] : catalog id does not exist
//   - [shared.ErrAuthFailed] : credentials rejected
//   - [shared.ErrServiceUnavailable] : transport failure, rate limiting or 5xx
//   - [shared.ErrAPIRequest] : any other unsuccessful response
package services
