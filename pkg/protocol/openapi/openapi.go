// Package openapi implements the relay's HTTP API as huma operations:
// pairing, entry store-and-forward, push subscription management, account
// erasure and health.
package openapi

import (
	"github.com/danielgtaylor/huma/v2"

	"dyad.dev/pkg/interfaces/server"
	"dyad.dev/pkg/protocol/servemux"
)

// Operations holds the API implementation: the server surface plus the path
// prefix the operations register under.
type Operations struct {
	server.I
	path string
}

// New creates a new openapi.Operations and registers its methods on sm.
func New(
	s server.I, name, version, description string, path string,
	sm *servemux.S,
) {
	a := NewHuma(sm, name, version, description)
	huma.AutoRegister(a, &Operations{I: s, path: path})
}
