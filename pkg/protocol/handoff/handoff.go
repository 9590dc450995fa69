// Package handoff relays one encrypted history bundle from a pair's
// initiator to its follower right after pairing. It owns three process-local
// directories keyed by pair: watchers waiting for their partner to join,
// collectors waiting for a bundle, and bundles parked for a collector that
// has not connected yet. None of it is replicated; a restart voids any
// in-flight transfer and the clients drive the flow again.
package handoff

import (
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"dyad.dev/pkg/interfaces/store"
	"dyad.dev/pkg/protocol/httpauth"
	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/context"
	"dyad.dev/pkg/utils/log"
)

const (
	// BundleTTL is how long a parked bundle waits for its collector.
	BundleTTL = 5 * time.Minute
	// SweepFrequency is how often parked bundles are checked for expiry.
	SweepFrequency = 2 * time.Minute
)

// Sender is the transport half the directories hold: ordered frame delivery
// and closure. The websocket layer implements it; tests substitute pipes.
type Sender interface {
	Send(f *Frame) (err error)
	Close() (err error)
}

type pendingBundle struct {
	payload   string
	expiresAt time.Time
}

// H is the handoff service.
type H struct {
	verifier   *httpauth.V
	waiters    *xsync.MapOf[string, Sender]
	collectors *xsync.MapOf[string, Sender]
	pending    *xsync.MapOf[string, *pendingBundle]
}

// New creates a handoff service authenticating channels with v.
func New(v *httpauth.V) (h *H) {
	return &H{
		verifier:   v,
		waiters:    xsync.NewMapOf[string, Sender](),
		collectors: xsync.NewMapOf[string, Sender](),
		pending:    xsync.NewMapOf[string, *pendingBundle](),
	}
}

// Watch authenticates a channel as the watcher for its user's pair and
// registers it. A second watcher for the same pair displaces the first,
// which is closed.
func (h *H) Watch(
	c context.T, publicKey, timestamp, signature string, ch Sender,
) (u *store.User, err error) {
	if u, err = h.verifier.Channel(
		c, httpauth.WatchPrefix, publicKey, timestamp, signature,
	); err != nil {
		return
	}
	if prev, ok := h.waiters.LoadAndDelete(u.PairId); ok && prev != ch {
		_ = prev.Close()
	}
	h.waiters.Store(u.PairId, ch)
	log.D.F("watcher registered for pair %s", u.PairId)
	return
}

// Collect authenticates a channel as the collector for its user's pair. If a
// live bundle is already parked for the pair it is delivered immediately and
// served reports true: the channel is done and the caller closes it.
// Otherwise the channel is registered to wait.
func (h *H) Collect(
	c context.T, publicKey, timestamp, signature string, ch Sender,
) (u *store.User, served bool, err error) {
	if u, err = h.verifier.Channel(
		c, httpauth.CollectPrefix, publicKey, timestamp, signature,
	); err != nil {
		return
	}
	if pb, ok := h.pending.LoadAndDelete(u.PairId); ok {
		if time.Now().Before(pb.expiresAt) {
			if err = ch.Send(
				&Frame{Type: TypeBundle, Payload: pb.payload},
			); chk.E(err) {
				return
			}
			served = true
			log.D.F("parked bundle delivered for pair %s", u.PairId)
			return
		}
		// Expired between sweeps; fall through to waiting.
	}
	if prev, ok := h.collectors.LoadAndDelete(u.PairId); ok && prev != ch {
		_ = prev.Close()
	}
	h.collectors.Store(u.PairId, ch)
	log.D.F("collector registered for pair %s", u.PairId)
	return
}

// Paired pushes the join notification to the pair's watcher, if one is
// connected. The watcher stays open; a bundle may follow.
func (h *H) Paired(pairId, partnerPublicKey string) {
	w, ok := h.waiters.Load(pairId)
	if !ok {
		return
	}
	if err := w.Send(
		&Frame{Type: TypePaired, PartnerPublicKey: partnerPublicKey},
	); chk.E(err) {
		return
	}
	log.D.F("paired frame pushed for pair %s", pairId)
}

// Bundle routes the watcher's history bundle: straight to a waiting
// collector when one is connected, into the parking directory otherwise.
// Either way the pair's watcher entry is spent, and delivered reports
// whether a collector already has the bytes.
func (h *H) Bundle(pairId, payload string) (delivered bool) {
	if col, ok := h.collectors.LoadAndDelete(pairId); ok {
		err := col.Send(&Frame{Type: TypeBundle, Payload: payload})
		if !chk.E(err) {
			delivered = true
		}
		_ = col.Close()
	} else {
		h.pending.Store(
			pairId, &pendingBundle{
				payload:   payload,
				expiresAt: time.Now().Add(BundleTTL),
			},
		)
		log.D.F("bundle parked for pair %s", pairId)
	}
	if w, ok := h.waiters.LoadAndDelete(pairId); ok {
		_ = w.Close()
	}
	return
}

// dropIfCurrent removes ch from a directory only while it is still the
// registered channel, so a stale channel disconnecting cannot evict its
// replacement. Deleting an absent key is a no-op.
func dropIfCurrent(m *xsync.MapOf[string, Sender], pairId string, ch Sender) {
	m.Compute(
		pairId, func(cur Sender, loaded bool) (Sender, bool) {
			if loaded && cur != ch {
				return cur, false
			}
			return nil, true
		},
	)
}

// DropWatcher removes ch from the watcher directory if it is still the
// registered channel.
func (h *H) DropWatcher(pairId string, ch Sender) {
	dropIfCurrent(h.waiters, pairId, ch)
}

// DropCollector removes ch from the collector directory if it is still the
// registered channel.
func (h *H) DropCollector(pairId string, ch Sender) {
	dropIfCurrent(h.collectors, pairId, ch)
}

// Sweep discards parked bundles whose wait expired before now, and reports
// how many went away.
func (h *H) Sweep(now time.Time) (removed int) {
	h.pending.Range(
		func(pairId string, pb *pendingBundle) bool {
			if !now.Before(pb.expiresAt) {
				h.pending.Delete(pairId)
				removed++
			}
			return true
		},
	)
	return
}

// Run sweeps parked bundles on a ticker until the context ends.
func (h *H) Run(c context.T) {
	ticker := time.NewTicker(SweepFrequency)
	defer ticker.Stop()
	for {
		select {
		case <-c.Done():
			return
		case <-ticker.C:
			if n := h.Sweep(time.Now()); n > 0 {
				log.D.F("discarded %d expired pending bundles", n)
			}
		}
	}
}
