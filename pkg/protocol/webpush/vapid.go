package webpush

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/url"
	"time"

	"dyad.dev/pkg/crypto/sha256"
	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/errorf"
)

// vapidExpiry is the lifetime of a VAPID token. RFC 8292 caps it at 24
// hours; half that is the customary value.
const vapidExpiry = 12 * time.Hour

// DecodeSecretKey turns the configured base64url 32-byte scalar into a
// P-256 signing key. The scalar is validated through the ecdh package, which
// rejects zero and out-of-order values.
func DecodeSecretKey(s string) (key *ecdsa.PrivateKey, err error) {
	var raw []byte
	if raw, err = decodeKey(s); chk.E(err) {
		return
	}
	if len(raw) != 32 {
		err = errorf.E(
			"VAPID secret key must be 32 bytes, got %d", len(raw),
		)
		return
	}
	var ek *ecdh.PrivateKey
	if ek, err = ecdh.P256().NewPrivateKey(raw); chk.E(err) {
		return
	}
	point := ek.PublicKey().Bytes()
	key = &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(point[1:33]),
			Y:     new(big.Int).SetBytes(point[33:65]),
		},
		D: new(big.Int).SetBytes(raw),
	}
	return
}

// EncodePublicKey renders the key's public point in the uncompressed
// base64url form push services expect in the k parameter.
func EncodePublicKey(pub *ecdsa.PublicKey) (s string, err error) {
	var ek *ecdh.PublicKey
	if ek, err = pub.ECDH(); chk.E(err) {
		return
	}
	s = base64.RawURLEncoding.EncodeToString(ek.Bytes())
	return
}

type vapidClaims struct {
	Aud string `json:"aud"`
	Exp int64  `json:"exp"`
	Sub string `json:"sub,omitempty"`
}

// vapidAuth builds the Authorization header for a push to endpoint: an
// ES256 JWT over the endpoint's origin, carried in the vapid scheme with the
// emitter's public key.
func (e *E) vapidAuth(endpoint string) (header string, err error) {
	var u *url.URL
	if u, err = url.Parse(endpoint); chk.E(err) {
		return
	}
	var claims []byte
	if claims, err = json.Marshal(
		vapidClaims{
			Aud: fmt.Sprintf("%s://%s", u.Scheme, u.Host),
			Exp: time.Now().Add(vapidExpiry).Unix(),
			Sub: e.subject,
		},
	); chk.E(err) {
		return
	}
	signingInput := base64.RawURLEncoding.EncodeToString(
		[]byte(`{"typ":"JWT","alg":"ES256"}`),
	) + "." + base64.RawURLEncoding.EncodeToString(claims)
	digest := sha256.Sum256([]byte(signingInput))
	var r, s *big.Int
	if r, s, err = ecdsa.Sign(rand.Reader, e.key, digest[:]); chk.E(err) {
		return
	}
	sig := make([]byte, 64)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:])
	header = fmt.Sprintf(
		"vapid t=%s.%s,k=%s",
		signingInput, base64.RawURLEncoding.EncodeToString(sig), e.public,
	)
	return
}
