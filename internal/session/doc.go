// Package session holds the signed-in identity shared by every other component.
//
// [Manager] keeps the bearer token and user snapshot in memory, persists them through a [Store]
// and serves the token to the REST client as an [oauth2.TokenSource]. Because the client asks for
// the token on every request, a login or logout takes effect immediately for the whole process.
//
// Signing in or out also resets the session-scoped caches: the notification inbox is seeded from
// the user payload and the followed-series cache is dropped.
package session
