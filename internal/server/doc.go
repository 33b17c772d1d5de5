// Package server provides HTTP routing, middleware, and the Google sign-in callback for the CLI.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [Logging] and [Recover] are the stock middleware.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback for Google sign-in.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// extracts the OpenID Connect id_token and sends the result through a channel.
// The id_token is the credential tvx exchanges for a backend session at POST /auth/login.
//
// It only processes one callback to prevent replay attacks.
//
// # Usage
//
// `tvx auth login` starts a temporary server with [Listen] on the configured host and port, opens the consent
// page in a browser, waits on [OAuthHandler.Wait] and shuts the server down once the token arrives.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
