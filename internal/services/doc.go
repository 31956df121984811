// Package services wraps the two external APIs the recall pipeline depends on.
//
// # Result Envelope
//
// Every operation returns a [Result]: Data, a human-readable Message, and Err.
// Nothing panics or returns a bare error across this boundary, so callers can
// decide per call whether a failure is fatal.
//
// # Spotify
//
// [SpotifyService] is the account facade. It authenticates with OAuth2 (authorization
// code or a saved token) and wraps [spotify.Client]. Each method maps to one Web API
// endpoint; pagination parameters are passed through untouched and nothing is retried.
// Refreshed tokens are reported through [SpotifyService.SetTokenRefreshCallback] so the
// CLI can save them back to config.toml.
//
// # TiVo Catalog
//
// [CatalogService] performs the three lookups used to expand artists into candidate
// tracks: artist search, discography, and album tracks. Each lookup takes a list of keys,
// issues one request per key through a [shared.Pool], and returns results in key order.
// Keys with no hits are silently dropped. Transport or decoding failures are joined into
// Err (wrapping [shared.ErrCatalogRequest]) alongside the data that did succeed.
//
// # Error Handling
//
// Failures wrap sentinels from the shared package:
//   - [shared.ErrNotAuthenticated] : no token has been set
//   - [shared.ErrTokenExpired] : Spotify answered 401 or the refresh failed
//   - [shared.ErrAPIRequest] : any other Spotify failure
//   - [shared.ErrCatalogRequest] : one or more catalog lookups failed
package services
