// Package services wraps the remote music services tracks are mirrored into.
//
// # Clients
//
// Each service implements [Client], a raw capability set: search by title, look up a known id, walk a
// playlist lazily as an [iter.Seq2], insert into a playlist, and re-authenticate.
//
//   - [SpotifyService] : zmb3/spotify Web API client over an OAuth2 token source
//   - [YouTubeService] : YouTube Data API v3 with Google OAuth client secrets
//   - [PlayMusicService] : JSON proxy in front of Google Play Music, via [APIService]
//
// Tokens come from a [TokenStore] (the sqlite token repository in production). Refreshed tokens are
// written back so a restart picks up the latest session.
//
// # Adapter
//
// [Adapter] is what tracks talk to. It owns the retry discipline: a step that fails with
// [shared.ErrSessionExpired] is retried from its beginning after the client re-authenticates. Playlist
// listings are restarted from the first page. The number of attempts is unbounded unless
// [AdapterOpts.MaxAttempts] is set.
//
// # Error Handling
//
// Service-native failures never leave this package:
//   - 401 responses and failed token refreshes : [shared.ErrSessionExpired]
//   - 404 responses : [shared.ErrPlaylistNotFound]
//   - other non-2xx responses and transport failures : [shared.ErrAPIRequest]
//   - missing stored token : [shared.ErrNotAuthenticated]
package services
