package socketapi

import (
	"dyad.dev/pkg/protocol/handoff"
	"dyad.dev/pkg/protocol/ws"
	"dyad.dev/pkg/utils/log"
)

// HandleBundle processes a bundle frame from an authenticated watcher.
//
// # Parameters
//
// - f (*handoff.Frame): The frame carrying the opaque history payload.
//
// # Expected behaviour
//
// Hands the payload to the handoff directory, which delivers it to a waiting
// collector or parks it with a TTL, and closes this channel either way. A
// bundle on anything other than a watch channel is a protocol violation.
func (a *A) HandleBundle(f *handoff.Frame) {
	if a.Listener.Role() != ws.RoleWatcher {
		a.closeWithError("bundle frames require a watch channel")
		return
	}
	delivered := a.I.Handoff().Bundle(a.Listener.PairId(), f.Payload)
	log.D.F(
		"bundle from %s for pair %s delivered=%v",
		a.Listener.RealRemote(), a.Listener.PairId(), delivered,
	)
}
