// Package units provides the common binary byte size multiples.
package units

const (
	// Kb is one kibibyte.
	Kb = 1 << 10
	// Mb is one mebibyte.
	Mb = Kb << 10
	// Gb is one gibibyte.
	Gb = Mb << 10
)
