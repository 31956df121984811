// Package server runs the short-lived local HTTP server that completes Spotify sign-in.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [RequestLogger] is the only middleware in use.
//
// [CallbackRouter] registers routes as GET patterns on an [http.ServeMux] and runs middleware around the
// whole mux, so requests for unknown paths get a 404 page and still show up in the request log.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback flow.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens
// through an [Exchanger], and sends the result through a channel.
// It only processes one callback to prevent replay attacks.
//
// # Usage
//
// "discover spotify auth" binds [Listen] on the configured host and port, opens the authorization URL in a
// browser, waits on [OAuthHandler.Result], and stops the [Server] once a token arrives.
package server
