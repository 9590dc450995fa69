// Package webpush delivers the partner-entry poke over the Web Push
// protocol: VAPID-authenticated POSTs carrying an aes128gcm encrypted
// payload (RFC 8291/8188), with permanently-gone endpoints pruned from the
// user table.
package webpush

import (
	"bytes"
	"crypto/ecdsa"
	"io"
	"net/http"
	"strconv"
	"time"

	"dyad.dev/pkg/interfaces/notifier"
	"dyad.dev/pkg/interfaces/store"
	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/context"
	"dyad.dev/pkg/utils/errorf"
	"dyad.dev/pkg/utils/log"
)

const (
	// Payload is the fixed poke body. It names no content: the partner
	// fetches over the authenticated channel, the push service never sees
	// more than the fact that something arrived.
	Payload = `{"type":"partner-entry"}`
	// DefaultTTL is how long the push service holds an undelivered poke,
	// in seconds.
	DefaultTTL = 3600
	// DefaultTimeout bounds one delivery attempt.
	DefaultTimeout = 10 * time.Second
)

// E emits pokes to the push endpoints users registered. It satisfies
// notifier.I; delivery is best-effort and failures never propagate to the
// upload that triggered them.
type E struct {
	users   store.Userer
	key     *ecdsa.PrivateKey
	public  string
	subject string
	client  *http.Client
}

// New creates an emitter signing with the given VAPID key pair.
//
// # Parameters
//
//   - users: The user table subscriptions are read from and pruned in.
//
//   - publicKey: The configured base64url point; when non-empty it must
//     match the point derived from the secret key.
//
//   - secretKey: base64url 32-byte P-256 scalar.
//
//   - subject: mailto: or https: operator contact carried in the VAPID
//     claims.
//
// # Return Values
//
//   - e: The emitter.
//
//   - err: Non-nil when the secret key does not decode or the configured
//     public key belongs to a different key pair.
func New(users store.Userer, publicKey, secretKey, subject string) (
	e *E, err error,
) {
	var key *ecdsa.PrivateKey
	if key, err = DecodeSecretKey(secretKey); chk.E(err) {
		return
	}
	var derived string
	if derived, err = EncodePublicKey(&key.PublicKey); chk.E(err) {
		return
	}
	if publicKey != "" && publicKey != derived {
		err = errorf.E(
			"configured VAPID public key does not match the secret key",
		)
		return
	}
	e = &E{
		users:   users,
		key:     key,
		public:  derived,
		subject: subject,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	return
}

// Notify pokes the recipient's registered push endpoint. Users without a
// subscription are skipped silently; delivery failures are logged and
// dropped, except a 410 from the push service, which clears the stored
// subscription so the dead endpoint is never contacted again.
func (e *E) Notify(c context.T, recipientKey, pairId string) {
	var err error
	var u *store.User
	if u, err = e.users.GetUser(c, recipientKey); err != nil {
		log.D.F("push: no user for recipient of pair %s: %v", pairId, err)
		return
	}
	if u.Subscription == nil {
		return
	}
	if err = e.send(c, u); err != nil {
		log.W.F("push for pair %s failed: %v", pairId, err)
	}
}

func (e *E) send(c context.T, u *store.User) (err error) {
	sub := u.Subscription
	var body []byte
	if body, err = Encrypt(
		[]byte(Payload), sub.P256dh, sub.Auth,
	); chk.E(err) {
		return
	}
	var auth string
	if auth, err = e.vapidAuth(sub.Endpoint); chk.E(err) {
		return
	}
	var req *http.Request
	if req, err = http.NewRequestWithContext(
		c, http.MethodPost, sub.Endpoint, bytes.NewReader(body),
	); chk.E(err) {
		return
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Content-Encoding", "aes128gcm")
	req.Header.Set("TTL", strconv.Itoa(DefaultTTL))
	req.Header.Set("Authorization", auth)
	var resp *http.Response
	if resp, err = e.client.Do(req); err != nil {
		return
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode == http.StatusGone {
		log.I.F(
			"push endpoint gone, clearing subscription for %s", u.PublicKey,
		)
		chk.E(e.users.ClearSubscription(c, u.PublicKey))
		return
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err = errorf.E("push service returned %d", resp.StatusCode)
	}
	return
}

var _ notifier.I = &E{}
