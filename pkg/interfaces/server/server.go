// Package server defines the interface the HTTP and websocket layers use to
// reach the relay's services without importing the concrete implementation.
package server

import (
	"net/http"

	"dyad.dev/pkg/app/config"
	"dyad.dev/pkg/interfaces/notifier"
	"dyad.dev/pkg/interfaces/store"
	"dyad.dev/pkg/protocol/handoff"
	"dyad.dev/pkg/utils/context"
)

// I is implemented by app/relay.Server and passed down to the request
// handlers so they stay decoupled from the wiring in main.
type I interface {
	// UserAuth verifies the per-request signature headers on r against body
	// and resolves the signing key to a registered user. Errors satisfying
	// httpauth.IsAuthFailure must surface to the client as a uniform 401;
	// anything else is an internal failure.
	UserAuth(c context.T, r *http.Request, body []byte) (u *store.User, err error)

	// Context returns the server's root context, cancelled on shutdown.
	Context() context.T

	// Config returns the running configuration.
	Config() *config.C

	// Storage returns the persistent store.
	Storage() store.I

	// Notifier returns the push emitter used to poke a partner after an
	// entry upload.
	Notifier() notifier.I

	// Handoff returns the pairing watch/collect directory.
	Handoff() *handoff.H

	// Shutdown stops the listener and releases the store.
	Shutdown()
}
