package socketapi

import (
	"encoding/json"
	"fmt"

	"dyad.dev/pkg/protocol/handoff"
	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/log"
)

// HandleMessage processes an incoming frame by identifying its type and
// routing it to the appropriate handler method.
//
// # Parameters
//
// - msg ([]byte): The incoming frame data to be processed.
//
// # Expected behaviour
//
// Decodes the frame, requires the first frame on a channel to be one of the
// two auth types, and routes subsequent frames according to the role the auth
// established. Protocol violations are answered with an error frame and the
// channel is closed.
func (a *A) HandleMessage(msg []byte) {
	remote := a.Listener.RealRemote()
	log.T.C(
		func() string {
			return fmt.Sprintf(
				"%s received frame:\n%s", remote, string(msg),
			)
		},
	)
	var err error
	f := &handoff.Frame{}
	if err = json.Unmarshal(msg, f); err != nil {
		a.closeWithError("malformed frame")
		return
	}
	switch f.Type {
	case handoff.TypeAuth:
		a.HandleWatch(f)
	case handoff.TypeCollectAuth:
		a.HandleCollect(f)
	case handoff.TypeBundle:
		a.HandleBundle(f)
	default:
		a.closeWithError(fmt.Sprintf("unknown frame type '%s'", f.Type))
	}
}

// closeWithError reports why the channel is being closed and closes it. The
// error frame is best-effort; the close is not.
func (a *A) closeWithError(message string) {
	log.D.F(
		"closing channel from %s: %s", a.Listener.RealRemote(), message,
	)
	if err := a.Listener.Send(
		&handoff.Frame{Type: handoff.TypeError, Message: message},
	); chk.D(err) {
	}
	chk.D(a.Listener.Close())
}
