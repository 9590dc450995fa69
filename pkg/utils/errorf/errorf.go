// Package errorf constructs errors that are simultaneously logged with their
// code location, so a returned error always has a trace of where it arose.
package errorf

import "dyad.dev/pkg/utils/lol"

var (
	// F formats an error, logs it at fatal level, and returns it.
	F = lol.Main.F.Err
	// E formats an error, logs it at error level, and returns it.
	E = lol.Main.E.Err
	// W formats an error, logs it at warn level, and returns it.
	W = lol.Main.W.Err
	// D formats an error, logs it at debug level, and returns it.
	D = lol.Main.D.Err
	// T formats an error, logs it at trace level, and returns it.
	T = lol.Main.T.Err
)
