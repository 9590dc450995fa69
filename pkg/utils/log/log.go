// Package log re-exports the level printers of the shared lol logger under
// short names so call sites read as log.I.F, log.E.Err and so on.
package log

import "dyad.dev/pkg/utils/lol"

var (
	// F prints at fatal level.
	F = lol.Main.F
	// E prints at error level.
	E = lol.Main.E
	// W prints at warn level.
	W = lol.Main.W
	// I prints at info level.
	I = lol.Main.I
	// D prints at debug level.
	D = lol.Main.D
	// T prints at trace level.
	T = lol.Main.T
)
