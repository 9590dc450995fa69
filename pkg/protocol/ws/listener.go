// Package ws wraps server-side websocket connections with the handoff channel
// state the socket API layers on top of them.
package ws

import (
	"net/http"
	"strings"
	"sync"

	"dyad.dev/pkg/app/relay/helpers"
	"dyad.dev/pkg/protocol/handoff"

	"github.com/fasthttp/websocket"
	"go.uber.org/atomic"
)

// Channel roles, recorded once the first frame on a connection has been
// verified.
const (
	RoleWatcher   = "watcher"
	RoleCollector = "collector"
)

// Listener is a websocket implementation for a relay handoff channel.
type Listener struct {
	mutex     sync.Mutex
	Conn      *websocket.Conn
	Request   *http.Request
	remote    atomic.String
	role      atomic.String
	pairId    atomic.String
	publicKey atomic.String
}

// NewListener creates a new Listener for an inbound handoff connection. The
// connection starts out unauthenticated; SetChannel records its role once the
// first frame has been verified.
func NewListener(conn *websocket.Conn, req *http.Request) (ws *Listener) {
	ws = &Listener{Conn: conn, Request: req}
	ws.setRemoteFromReq(req)
	return
}

func (ws *Listener) setRemoteFromReq(r *http.Request) {
	rr := helpers.GetRemoteFromReq(r)
	if rr == "" {
		// if that fails, fall back to the remote (probably the proxy, unless
		// the relay is actually directly listening)
		rr = ws.Conn.NetConn().RemoteAddr().String()
	}
	ws.remote.Store(rr)
}

// Write a message to send to a client.
func (ws *Listener) Write(p []byte) (n int, err error) {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()
	err = ws.Conn.WriteMessage(websocket.TextMessage, p)
	if err != nil {
		n = len(p)
		if strings.Contains(err.Error(), "close sent") {
			ws.Close()
			err = nil
			return
		}
	}
	return
}

// WriteJSON encodes whatever into JSON and sends it to the client.
func (ws *Listener) WriteJSON(any interface{}) error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()
	return ws.Conn.WriteJSON(any)
}

// WriteMessage is a wrapper around the websocket WriteMessage, which includes
// a websocket message type identifier.
func (ws *Listener) WriteMessage(t int, b []byte) error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()
	return ws.Conn.WriteMessage(t, b)
}

// Send delivers a handoff frame to the client, satisfying handoff.Sender so
// the directory can push frames at the connection directly.
func (ws *Listener) Send(f *handoff.Frame) (err error) {
	return ws.WriteJSON(f)
}

// RealRemote returns the stored remote address of the client.
func (ws *Listener) RealRemote() string { return ws.remote.Load() }

// Req returns the http.Request associated with the client connection to the
// Listener.
func (ws *Listener) Req() *http.Request { return ws.Request }

// Close the Listener connection from the Listener side.
func (ws *Listener) Close() (err error) { return ws.Conn.Close() }

// Role returns the channel's role, or an empty string before its first frame
// has been accepted.
func (ws *Listener) Role() string { return ws.role.Load() }

// PairId returns the pair the channel was authenticated for.
func (ws *Listener) PairId() string { return ws.pairId.Load() }

// PublicKey returns the authenticated client key.
func (ws *Listener) PublicKey() string { return ws.publicKey.Load() }

// IsAuthed reports whether the channel's first frame has been accepted.
func (ws *Listener) IsAuthed() bool { return ws.role.Load() != "" }

// SetChannel records the verified role of the connection.
func (ws *Listener) SetChannel(role, pairId, publicKey string) {
	ws.role.Store(role)
	ws.pairId.Store(pairId)
	ws.publicKey.Store(publicKey)
}
