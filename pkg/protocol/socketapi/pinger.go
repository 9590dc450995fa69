package socketapi

import (
	"time"

	"dyad.dev/pkg/utils/context"
	"dyad.dev/pkg/utils/log"

	"github.com/fasthttp/websocket"
)

// Pinger sends periodic websocket ping messages to ensure the connection is
// alive and responsive. It terminates the connection if pings fail or the
// context is canceled.
//
// # Parameters
//
//   - ctx: A context object used to monitor cancellation signals and
//     manage termination of the method execution.
//
//   - ticker: A time.Ticker object that triggers periodic pings based on
//     its configured interval.
//
//   - cancel: A context.CancelFunc called to gracefully terminate operations
//     associated with the connection.
//
// Expected behavior:
//
// The method writes ping messages to the websocket connection at intervals
// dictated by the ticker. If the ping write fails or the context is canceled,
// it stops the ticker, invokes the cancel function, and closes the connection.
func (a *A) Pinger(ctx context.T, ticker *time.Ticker, cancel context.F) {
	defer func() {
		cancel()
		ticker.Stop()
		_ = a.Listener.Conn.Close()
	}()
	var err error
	for {
		select {
		case <-ticker.C:
			err = a.Listener.Conn.WriteControl(
				websocket.PingMessage, nil,
				time.Now().Add(DefaultPingWait),
			)
			if err != nil {
				log.E.F("error writing ping: %v; closing websocket", err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
