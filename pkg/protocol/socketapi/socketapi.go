// Package socketapi serves the pairing handoff channel: a websocket endpoint
// whose first frame authenticates the connection as its pair's watcher or
// collector, after which the handoff directory pushes paired and bundle
// frames at it.
package socketapi

import (
	"net/http"
	"strings"
	"time"

	"dyad.dev/pkg/app/relay/helpers"
	"dyad.dev/pkg/interfaces/server"
	"dyad.dev/pkg/protocol/ws"
	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/context"
	"dyad.dev/pkg/utils/log"
	"dyad.dev/pkg/utils/units"

	"github.com/fasthttp/websocket"
)

const (
	DefaultWriteWait      = 10 * time.Second
	DefaultPongWait       = 60 * time.Second
	DefaultPingWait       = DefaultPongWait / 2
	DefaultMaxMessageSize = 1 * units.Mb
)

// A is a composite type that integrates a context, a websocket Listener, and
// a server interface to manage one handoff channel. It handles frame
// processing, channel authentication, and deregistration on disconnect.
type A struct {
	Ctx context.T
	*ws.Listener
	server.I
}

// Serve handles an incoming websocket request by upgrading the HTTP request,
// managing the connection, and processing received frames.
//
// # Parameters
//
//   - w: The HTTP response writer used to manage the connection upgrade.
//
//   - r: The HTTP request object that is being upgraded to a websocket
//     connection.
//
//   - s: The server context object that manages request lifecycle and state.
//
// Expected behavior:
//
// The method upgrades the HTTP connection to a websocket connection, sets up
// read limits and deadlines, keeps the connection alive with pings, and
// processes incoming frames in arrival order. Frames are handled inline, not
// concurrently, because the handoff protocol depends on their order within a
// channel. On termination the connection is deregistered from the handoff
// directory and closed.
func (a *A) Serve(w http.ResponseWriter, r *http.Request, s server.I) {
	var err error
	ticker := time.NewTicker(DefaultPingWait)
	var cancel context.F
	a.Ctx, cancel = context.Cancel(s.Context())
	var conn *websocket.Conn
	conn, err = Upgrader.Upgrade(w, r, nil)
	if chk.E(err) {
		log.E.F("failed to upgrade websocket: %v", err)
		return
	}
	a.Listener = ws.NewListener(conn, r)
	defer func() {
		cancel()
		ticker.Stop()
		a.dropChannel()
		chk.E(a.Listener.Conn.Close())
	}()
	conn.SetReadLimit(DefaultMaxMessageSize)
	chk.E(conn.SetReadDeadline(time.Now().Add(DefaultPongWait)))
	conn.SetPongHandler(
		func(string) error {
			chk.E(conn.SetReadDeadline(time.Now().Add(DefaultPongWait)))
			return nil
		},
	)
	go a.Pinger(a.Ctx, ticker, cancel)
	var message []byte
	var typ int
	for {
		select {
		case <-a.Ctx.Done():
			a.Listener.Close()
			return
		case <-s.Context().Done():
			a.Listener.Close()
			return
		default:
		}
		if typ, message, err = conn.ReadMessage(); err != nil {
			if strings.Contains(
				err.Error(), "use of closed network connection",
			) {
				return
			}
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
				websocket.CloseAbnormalClosure,
			) {
				log.W.F(
					"unexpected close error from %s: %v",
					helpers.GetRemoteFromReq(r), err,
				)
			}
			return
		}
		if typ == websocket.PingMessage {
			if err = a.Listener.WriteMessage(
				websocket.PongMessage, nil,
			); chk.E(err) {
			}
			continue
		}
		a.HandleMessage(message)
	}
}

// dropChannel removes the connection from whichever side of the handoff
// directory it occupies, if it still does.
func (a *A) dropChannel() {
	switch a.Listener.Role() {
	case ws.RoleWatcher:
		a.I.Handoff().DropWatcher(a.Listener.PairId(), a.Listener)
	case ws.RoleCollector:
		a.I.Handoff().DropCollector(a.Listener.PairId(), a.Listener)
	}
}
