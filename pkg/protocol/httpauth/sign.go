package httpauth

import (
	"crypto/ed25519"
	"encoding/base64"
	"net/http"
	"time"
)

// EncodePublicKey renders a public key in its wire form, the form under
// which the user is enrolled.
func EncodePublicKey(pk ed25519.PublicKey) (s string) {
	return base64.StdEncoding.EncodeToString(pk)
}

// SignRequest produces the header triple authenticating one HTTP request at
// the given moment.
func SignRequest(
	sk ed25519.PrivateKey, method, pathWithQuery string, body []byte,
	at time.Time,
) (authorization, publicKey, timestamp string) {
	publicKey = EncodePublicKey(sk.Public().(ed25519.PublicKey))
	timestamp = at.UTC().Format(time.RFC3339)
	sig := ed25519.Sign(
		sk, CanonicalRequest(method, pathWithQuery, timestamp, body),
	)
	authorization = Scheme + " " + base64.StdEncoding.EncodeToString(sig)
	return
}

// SetHeaders signs r's method, request target and body and applies the
// resulting header triple to it.
func SetHeaders(
	r *http.Request, sk ed25519.PrivateKey, body []byte, at time.Time,
) {
	authorization, publicKey, timestamp := SignRequest(
		sk, r.Method, r.URL.RequestURI(), body, at,
	)
	r.Header.Set("Authorization", authorization)
	r.Header.Set(HeaderPublicKey, publicKey)
	r.Header.Set(HeaderTimestamp, timestamp)
}

// SignChannel produces the field triple authenticating a handoff channel
// under a role prefix.
func SignChannel(
	sk ed25519.PrivateKey, prefix string, at time.Time,
) (publicKey, timestamp, signature string) {
	publicKey = EncodePublicKey(sk.Public().(ed25519.PublicKey))
	timestamp = at.UTC().Format(time.RFC3339)
	sig := ed25519.Sign(sk, CanonicalChannel(prefix, publicKey, timestamp))
	signature = base64.StdEncoding.EncodeToString(sig)
	return
}
