// Package httpauth verifies per-request signatures. Every authenticated call
// carries three headers: the signature, the signer's public key and a
// timestamp. The signed bytes bind the method, the path with its query
// string, the timestamp and a digest of the body, so a captured request
// cannot be replayed elsewhere, and a freshness window bounds replay in time.
//
// The same arithmetic authenticates handoff channels, with a role prefix in
// place of the request line so a watch credential cannot stand in for a
// collect credential.
package httpauth

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"dyad.dev/pkg/crypto/sha256"
	"dyad.dev/pkg/encoders/hex"
	"dyad.dev/pkg/interfaces/store"
	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/context"
	"dyad.dev/pkg/utils/log"
)

const (
	// Scheme is the Authorization scheme carrying the request signature.
	Scheme = "Signature"
	// HeaderPublicKey carries the signer's public key.
	HeaderPublicKey = "X-Public-Key"
	// HeaderTimestamp carries the moment the client signed the request.
	HeaderTimestamp = "X-Timestamp"
	// MaxSkew bounds the distance between the signed timestamp and the
	// server clock, in either direction.
	MaxSkew = 5 * time.Minute
	// WatchPrefix heads the signed payload that authenticates a watcher
	// channel.
	WatchPrefix = "WATCH"
	// CollectPrefix heads the signed payload that authenticates a collector
	// channel.
	CollectPrefix = "COLLECT"
)

var (
	// ErrMissingHeaders reports a request without the full header triple.
	ErrMissingHeaders = errors.New("missing authentication headers")
	// ErrBadHeader reports a header that does not decode.
	ErrBadHeader = errors.New("malformed authentication header")
	// ErrClockSkew reports a timestamp outside the freshness window.
	ErrClockSkew = errors.New("timestamp outside freshness window")
	// ErrBadSignature reports signature bytes that do not verify.
	ErrBadSignature = errors.New("signature verification failed")
	// ErrUnknownUser reports a verified signature over a key that is not
	// enrolled.
	ErrUnknownUser = errors.New("public key not enrolled")
)

// IsAuthFailure reports whether err is a verification failure rather than an
// infrastructure error, so the edge can map the former uniformly to 401
// without leaking which check failed.
func IsAuthFailure(err error) bool {
	for _, e := range []error{
		ErrMissingHeaders, ErrBadHeader, ErrClockSkew, ErrBadSignature,
		ErrUnknownUser,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// DecodePublicKey parses the wire form of a public key: standard base64 of
// exactly one ed25519 public key. The string form is the account identity;
// the decoded bytes only ever feed signature verification.
func DecodePublicKey(s string) (pk ed25519.PublicKey, err error) {
	var b []byte
	if b, err = base64.StdEncoding.DecodeString(s); err != nil {
		err = ErrBadHeader
		return
	}
	if len(b) != ed25519.PublicKeySize {
		err = ErrBadHeader
		return
	}
	pk = ed25519.PublicKey(b)
	return
}

// DecodeSignature parses a raw base64 signature field.
func DecodeSignature(s string) (sig []byte, err error) {
	if sig, err = base64.StdEncoding.DecodeString(s); err != nil {
		err = ErrBadHeader
		return
	}
	if len(sig) != ed25519.SignatureSize {
		err = ErrBadHeader
		return
	}
	return
}

// DecodeAuthorization parses the Authorization header form
// "Signature <base64>".
func DecodeAuthorization(header string) (sig []byte, err error) {
	scheme, rest, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, Scheme) {
		err = ErrBadHeader
		return
	}
	return DecodeSignature(strings.TrimSpace(rest))
}

// ParseTimestamp parses an ISO-8601 instant and enforces the freshness
// window against the given server time.
func ParseTimestamp(ts string, now time.Time) (t time.Time, err error) {
	if t, err = time.Parse(time.RFC3339, ts); err != nil {
		err = ErrBadHeader
		return
	}
	skew := now.Sub(t)
	if skew < 0 {
		skew = -skew
	}
	if skew > MaxSkew {
		err = ErrClockSkew
		return
	}
	return
}

// CanonicalRequest assembles the byte sequence a client signs for an HTTP
// request: method, path with query string, timestamp and the lowercase hex
// sha256 of the body, newline separated. A bodyless request contributes an
// empty string in place of the digest.
func CanonicalRequest(
	method, pathWithQuery, timestamp string, body []byte,
) (b []byte) {
	var bodyHash string
	if len(body) > 0 {
		sum := sha256.Sum256(body)
		bodyHash = hex.Enc(sum[:])
	}
	b = make(
		[]byte,
		0, len(method)+len(pathWithQuery)+len(timestamp)+len(bodyHash)+3,
	)
	b = append(b, method...)
	b = append(b, '\n')
	b = append(b, pathWithQuery...)
	b = append(b, '\n')
	b = append(b, timestamp...)
	b = append(b, '\n')
	b = append(b, bodyHash...)
	return
}

// CanonicalChannel assembles the byte sequence a client signs to
// authenticate a handoff channel under a role prefix.
func CanonicalChannel(prefix, publicKey, timestamp string) (b []byte) {
	b = make([]byte, 0, len(prefix)+len(publicKey)+len(timestamp)+2)
	b = append(b, prefix...)
	b = append(b, '\n')
	b = append(b, publicKey...)
	b = append(b, '\n')
	b = append(b, timestamp...)
	return
}

// V binds the signature arithmetic to the user table, resolving verified
// requests to enrolled users.
type V struct {
	users store.Userer
}

// New creates a verifier over the given user table.
func New(users store.Userer) (v *V) {
	return &V{users: users}
}

// Request authenticates an HTTP request against its header triple and body
// bytes.
//
// # Expected Behaviour
//
// Rejects requests missing any header, with undecodable headers, with a
// timestamp outside the freshness window, or whose signature does not verify
// over the canonical bytes the server reconstructs. A cryptographically valid
// signature over a key with no user row is still rejected, so that possession
// of a key pair alone grants nothing.
func (v *V) Request(c context.T, r *http.Request, body []byte) (
	u *store.User, err error,
) {
	auth := r.Header.Get("Authorization")
	publicKey := r.Header.Get(HeaderPublicKey)
	timestamp := r.Header.Get(HeaderTimestamp)
	if auth == "" || publicKey == "" || timestamp == "" {
		err = ErrMissingHeaders
		return
	}
	var pk ed25519.PublicKey
	if pk, err = DecodePublicKey(publicKey); err != nil {
		return
	}
	if _, err = ParseTimestamp(timestamp, time.Now()); err != nil {
		return
	}
	var sig []byte
	if sig, err = DecodeAuthorization(auth); err != nil {
		return
	}
	canonical := CanonicalRequest(
		r.Method, r.URL.RequestURI(), timestamp, body,
	)
	if !ed25519.Verify(pk, canonical, sig) {
		log.D.F(
			"bad signature from %s over %s %s", publicKey, r.Method,
			r.URL.RequestURI(),
		)
		err = ErrBadSignature
		return
	}
	if u, err = v.users.GetUser(c, publicKey); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			err = ErrUnknownUser
		}
		return
	}
	return
}

// Channel authenticates a handoff channel auth message: the signature must
// verify over the role prefix, public key and timestamp, and the key must be
// enrolled. The resolved user carries the pair the channel will serve.
func (v *V) Channel(
	c context.T, prefix, publicKey, timestamp, signature string,
) (u *store.User, err error) {
	if publicKey == "" || timestamp == "" || signature == "" {
		err = ErrMissingHeaders
		return
	}
	var pk ed25519.PublicKey
	if pk, err = DecodePublicKey(publicKey); err != nil {
		return
	}
	if _, err = ParseTimestamp(timestamp, time.Now()); err != nil {
		return
	}
	var sig []byte
	if sig, err = DecodeSignature(signature); err != nil {
		return
	}
	if !ed25519.Verify(
		pk, CanonicalChannel(prefix, publicKey, timestamp), sig,
	) {
		err = ErrBadSignature
		return
	}
	if u, err = v.users.GetUser(c, publicKey); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			err = ErrUnknownUser
		}
		chk.D(err)
		return
	}
	return
}
