// Package sha256 re-exports the SIMD-accelerated sha256 so the rest of the
// codebase hashes through one import.
package sha256

import (
	sha256simd "github.com/minio/sha256-simd"
)

const (
	// Size is the length of a sha256 digest.
	Size = sha256simd.Size
	// BlockSize is the underlying block size of sha256.
	BlockSize = sha256simd.BlockSize
)

// New returns a new running sha256 hash.
var New = sha256simd.New

// Sum256 returns the sha256 digest of b.
func Sum256(b []byte) [Size]byte {
	return sha256simd.Sum256(b)
}
