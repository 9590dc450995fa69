// Package hex encodes and decodes lowercase hexadecimal, using a SIMD
// implementation on the encode path where it pays off.
package hex

import (
	"encoding/hex"

	"github.com/templexxx/xhex"
)

// Enc returns the lowercase hex encoding of b.
func Enc(b []byte) (s string) {
	dst := make([]byte, len(b)*2)
	xhex.Encode(dst, b)
	return string(dst)
}

// EncAppend appends the lowercase hex encoding of src to dst and returns the
// extended slice.
func EncAppend(dst, src []byte) (b []byte) {
	l := len(dst)
	b = append(dst, make([]byte, len(src)*2)...)
	xhex.Encode(b[l:], src)
	return
}

// Dec decodes a hex string, rejecting odd lengths and non-hex characters.
func Dec(s string) (b []byte, err error) {
	return hex.DecodeString(s)
}
