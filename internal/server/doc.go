// Package server runs the local HTTP endpoint that completes Spotify's authorization code flow.
//
// # Router
//
// [BasicRouter] implements [Router] on top of [http.ServeMux]. [Middleware] added first runs outermost.
// Handlers that implement [Handler] register all of their own routes.
//
// # Callback flow
//
// [OAuthHandler] validates the state parameter, exchanges the code through a [CodeExchanger] and publishes
// exactly one [OAuthResult]. Later callbacks are rejected.
//
// [CallbackServer] binds the configured host and port, serves the handler behind [RequestLogger] and shuts
// itself down once a result arrives, the wait times out or the context is cancelled.
package server
