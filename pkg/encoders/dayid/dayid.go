// Package dayid validates and formats day identifiers, the YYYY-MM-DD shaped
// strings clients use to label entries. Validation is purely structural: the
// relay never interprets the digits as a calendar date, so clients on odd
// calendars or odd clocks are not second-guessed.
package dayid

import (
	"time"
)

// Valid reports whether s matches the day identifier grammar: four digits,
// dash, two digits, dash, two digits. No range checking is applied to the
// digit groups.
func Valid(s string) (ok bool) {
	if len(s) != 10 {
		return
	}
	for i := 0; i < len(s); i++ {
		if i == 4 || i == 7 {
			if s[i] != '-' {
				return
			}
			continue
		}
		if s[i] < '0' || s[i] > '9' {
			return
		}
	}
	return true
}

// Format renders the day identifier of a moment in UTC.
func Format(t time.Time) (s string) {
	return t.UTC().Format("2006-01-02")
}
