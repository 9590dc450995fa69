package ws

import (
	"crypto/ed25519"
	"time"

	"dyad.dev/pkg/protocol/handoff"
	"dyad.dev/pkg/protocol/httpauth"
	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/context"
	"dyad.dev/pkg/utils/errorf"
	"dyad.dev/pkg/utils/units"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Client is the device side of a handoff channel. It dials the relay's
// upgrade endpoint, authenticates under a role prefix, and reads the frames
// the directory pushes.
type Client struct {
	conn *websocket.Conn
	// first holds a frame consumed during the handshake, when a collect auth
	// is answered with a parked bundle straight away.
	first *handoff.Frame
}

// DialWatch opens a channel authenticated as the key's pair watcher. The
// returned client receives a paired frame when the partner joins and may then
// send a bundle.
func DialWatch(
	c context.T, u string, sk ed25519.PrivateKey,
) (cl *Client, err error) {
	return dial(c, u, sk, httpauth.WatchPrefix, handoff.TypeAuth)
}

// DialCollect opens a channel authenticated as the key's pair collector. The
// first frame read from the client is the bundle, whether it was parked
// before the dial or arrives while the channel waits.
func DialCollect(
	c context.T, u string, sk ed25519.PrivateKey,
) (cl *Client, err error) {
	return dial(c, u, sk, httpauth.CollectPrefix, handoff.TypeCollectAuth)
}

func dial(
	c context.T, u string, sk ed25519.PrivateKey, prefix, typ string,
) (cl *Client, err error) {
	var conn *websocket.Conn
	if conn, _, err = websocket.Dial(c, u, nil); chk.E(err) {
		return
	}
	conn.SetReadLimit(units.Mb)
	publicKey, timestamp, signature := httpauth.SignChannel(
		sk, prefix, time.Now(),
	)
	if err = wsjson.Write(
		c, conn, &handoff.Frame{
			Type:      typ,
			PublicKey: publicKey,
			Timestamp: timestamp,
			Signature: signature,
		},
	); chk.E(err) {
		_ = conn.CloseNow()
		return
	}
	f := &handoff.Frame{}
	if err = wsjson.Read(c, conn, f); chk.E(err) {
		_ = conn.CloseNow()
		return
	}
	switch f.Type {
	case handoff.TypeReady:
		cl = &Client{conn: conn}
	case handoff.TypeBundle:
		cl = &Client{conn: conn, first: f}
	case handoff.TypeError:
		_ = conn.CloseNow()
		err = errorf.E("channel rejected: %s", f.Message)
	default:
		_ = conn.CloseNow()
		err = errorf.E("unexpected frame type '%s' in handshake", f.Type)
	}
	return
}

// Next reads the next frame pushed by the relay. A bundle delivered during
// the handshake is returned first. An error frame is surfaced as an error.
func (cl *Client) Next(c context.T) (f *handoff.Frame, err error) {
	if cl.first != nil {
		f, cl.first = cl.first, nil
		return
	}
	f = &handoff.Frame{}
	if err = wsjson.Read(c, cl.conn, f); err != nil {
		return nil, err
	}
	if f.Type == handoff.TypeError {
		return nil, errorf.E("channel closed by relay: %s", f.Message)
	}
	return
}

// SendBundle hands the opaque history payload to the relay, which delivers
// or parks it and then closes the channel.
func (cl *Client) SendBundle(c context.T, payload string) (err error) {
	return wsjson.Write(
		c, cl.conn, &handoff.Frame{Type: handoff.TypeBundle, Payload: payload},
	)
}

// Close closes the channel from the device side.
func (cl *Client) Close() (err error) {
	return cl.conn.Close(websocket.StatusNormalClosure, "")
}
