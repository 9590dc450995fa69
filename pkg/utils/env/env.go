// Package env reads KEY=value environment files into a lookup table that
// satisfies the Source option of go-simpler.org/env, so a .env file can be
// overlaid on the process environment.
package env

import (
	"bufio"
	"os"
	"strings"

	"dyad.dev/pkg/utils/chk"
)

// Env is a set of KEY=value pairs loaded from an environment file.
type Env map[string]string

// LookupEnv retrieves the value of a key, reporting whether it was present.
// This implements the env.Source interface of go-simpler.org/env.
func (e Env) LookupEnv(key string) (value string, ok bool) {
	value, ok = e[key]
	return
}

// GetEnv reads an environment file at the given path into an Env table.
//
// # Expected Behaviour
//
// Lines are split on the first '=' into key and value. Blank lines and lines
// starting with '#' are skipped. Values may be wrapped in single or double
// quotes, which are stripped. Keys are uppercased so lookups are
// case-insensitive with respect to the file contents.
func GetEnv(path string) (e Env, err error) {
	var f *os.File
	if f, err = os.Open(path); chk.E(err) {
		return
	}
	defer func() { _ = f.Close() }()
	e = make(Env)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		k = strings.ToUpper(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if len(v) > 1 {
			if (v[0] == '"' && v[len(v)-1] == '"') ||
				(v[0] == '\'' && v[len(v)-1] == '\'') {
				v = v[1 : len(v)-1]
			}
		}
		e[k] = v
	}
	err = scanner.Err()
	chk.E(err)
	return
}
