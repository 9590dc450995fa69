// Package chk provides one-letter error check helpers that log a non-nil
// error with its code location at a given level and report whether the error
// was present, enabling the `if chk.E(err) { return }` form.
package chk

import "dyad.dev/pkg/utils/lol"

var (
	// F logs the error at fatal level and reports err != nil.
	F = lol.Main.F.Chk
	// E logs the error at error level and reports err != nil.
	E = lol.Main.E.Chk
	// W logs the error at warn level and reports err != nil.
	W = lol.Main.W.Chk
	// D logs the error at debug level and reports err != nil.
	D = lol.Main.D.Chk
	// T logs the error at trace level and reports err != nil.
	T = lol.Main.T.Chk
)
