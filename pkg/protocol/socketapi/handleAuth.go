package socketapi

import (
	"dyad.dev/pkg/protocol/handoff"
	"dyad.dev/pkg/protocol/ws"
	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/log"
)

// HandleWatch processes a watch auth frame, the first frame of an initiator's
// handoff channel.
//
// # Parameters
//
// - f (*handoff.Frame): The auth frame carrying publicKey, timestamp and
// signature.
//
// # Expected behaviour
//
// Verifies the channel credential with the watch prefix, registers the
// connection as its pair's watcher and acknowledges with a ready frame. The
// channel then stays open: a paired frame is pushed when the partner joins,
// and the client may follow up with a bundle frame. Auth failures close the
// channel with a uniform error so the caller cannot tell which check failed.
func (a *A) HandleWatch(f *handoff.Frame) {
	if a.Listener.IsAuthed() {
		a.closeWithError("channel already authenticated")
		return
	}
	u, err := a.I.Handoff().Watch(
		a.Ctx, f.PublicKey, f.Timestamp, f.Signature, a.Listener,
	)
	if err != nil {
		log.D.F(
			"watch auth failed from %s: %v", a.Listener.RealRemote(), err,
		)
		a.closeWithError("unauthorized")
		return
	}
	a.Listener.SetChannel(ws.RoleWatcher, u.PairId, u.PublicKey)
	if err = a.Listener.Send(
		&handoff.Frame{Type: handoff.TypeReady},
	); chk.E(err) {
		return
	}
	log.D.F("%s watching pair %s", a.Listener.RealRemote(), u.PairId)
}

// HandleCollect processes a collect auth frame, the first frame of a
// follower's handoff channel.
//
// # Parameters
//
// - f (*handoff.Frame): The auth frame carrying publicKey, timestamp and
// signature.
//
// # Expected behaviour
//
// Verifies the channel credential with the collect prefix. If a parked bundle
// is already waiting for the pair it has been delivered by the directory and
// the channel is closed; otherwise the connection is registered as the pair's
// collector and acknowledged with a ready frame.
func (a *A) HandleCollect(f *handoff.Frame) {
	if a.Listener.IsAuthed() {
		a.closeWithError("channel already authenticated")
		return
	}
	u, served, err := a.I.Handoff().Collect(
		a.Ctx, f.PublicKey, f.Timestamp, f.Signature, a.Listener,
	)
	if err != nil {
		log.D.F(
			"collect auth failed from %s: %v", a.Listener.RealRemote(), err,
		)
		a.closeWithError("unauthorized")
		return
	}
	a.Listener.SetChannel(ws.RoleCollector, u.PairId, u.PublicKey)
	if served {
		log.D.F(
			"%s collected parked bundle for pair %s",
			a.Listener.RealRemote(), u.PairId,
		)
		chk.D(a.Listener.Close())
		return
	}
	if err = a.Listener.Send(
		&handoff.Frame{Type: handoff.TypeReady},
	); chk.E(err) {
		return
	}
	log.D.F("%s collecting for pair %s", a.Listener.RealRemote(), u.PairId)
}
