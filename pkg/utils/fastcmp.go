// Package utils holds small helpers with no better home.
package utils

// FastEqual reports whether two byte slices have identical contents. It
// short-circuits on length and on the first differing byte, which is fine for
// identifiers and keys that are not secret material.
func FastEqual(a, b []byte) (same bool) {
	if len(a) != len(b) {
		return
	}
	for i, v := range a {
		if v != b[i] {
			return
		}
	}
	return true
}
