//go:build tools

// Pins the analysis binaries the build runs so go mod tidy keeps their
// versions.
package main

import (
	_ "golang.org/x/lint/golint"
	_ "honnef.co/go/tools/cmd/staticcheck"
)
