// Package ident mints and validates the opaque identifiers the relay hands
// out: pair and entry identifiers as 32-character lowercase hex, and relay
// tokens as unpadded url-safe base64 of 32 random bytes.
package ident

import (
	"crypto/rand"
	"encoding/base64"

	"dyad.dev/pkg/encoders/hex"
)

// Size is the number of random bytes behind a pair or entry identifier.
const Size = 16

// TokenSize is the number of random bytes behind a relay token.
const TokenSize = 32

// New mints a fresh 32-character lowercase hex identifier.
func New() (id string) {
	b := make([]byte, Size)
	_, _ = rand.Read(b)
	return hex.Enc(b)
}

// NewToken mints a fresh relay token. Tokens are url-safe so they survive
// copy/paste and QR transport without escaping.
func NewToken() (token string) {
	b := make([]byte, TokenSize)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// Valid reports whether s has the shape of an identifier minted by New. It
// says nothing about whether the identifier exists.
func Valid(s string) (ok bool) {
	if len(s) != Size*2 {
		return
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return
		}
	}
	return true
}
