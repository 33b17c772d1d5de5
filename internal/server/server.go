package server

import "net/http"

// Middleware decorates a handler. The callback server stacks [Recover] and [Logging].
type Middleware func(http.Handler) http.Handler

// Handler is an [http.Handler] that knows which paths it answers, so the router can mount it without
// the caller repeating them.
type Handler interface {
	http.Handler
	Routes() []string
}

// Router is the surface `tvx auth login` needs from the callback server.
type Router interface {
	http.Handler
	Use(middleware ...Middleware)
	Handle(method, path string, handler http.Handler)
	Handler(handler Handler)
	Routes() []string
}

var _ Router = (*BasicRouter)(nil)
