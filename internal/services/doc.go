// Package services defines the provider interfaces used by the export pipeline and implements them for Spotify.
//
// # Provider Interfaces
//
// [PlaylistProvider] lists playlist items and metadata, [MetadataProvider] answers one bulk lookup per
// call and [Library] lists the user's playlists. [Service] combines them.
//
// # Spotify Implementation
//
// [SpotifyService] authorizes requests in one of two ways:
//   - user token via [SpotifyService.OAuthenticate], refreshed automatically by the [oauth2] client
//   - app token via [SpotifyService.AuthenticateApp] (client credentials), enough for public playlists
//
// Refreshed user tokens are reported through [SpotifyService.SetTokenRefreshCallback] so the CLI
// can persist them.
//
// # Bulk Lookups
//
// The bulk endpoints answer in request order and use null for ids they do not know. Null entries
// are dropped, so a returned map may be missing requested ids. Batching and backfilling is the
// caller's job (see package lookup).
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : no token source installed
//   - [shared.ErrTokenExpired] : HTTP 401, reauthorization needed
//   - [shared.ErrPlaylistNotFound] : HTTP 404
//   - [shared.ErrAPIRequest] : transport failure or any other non-2xx status
package services
