// Package throttle provides the per-key fixed-window request limiter the
// relay applies before any API handler runs.
package throttle

import (
	"sync"
	"time"
)

const (
	// Window is the fixed throttle window.
	Window = 60 * time.Second
	// MaxRequests is the cap of requests per key within one window.
	MaxRequests = 60
)

type counter struct {
	count   int
	resetAt time.Time
}

// T tracks request counts per signing key over a fixed window.
type T struct {
	mu   sync.Mutex
	keys map[string]*counter
}

// New creates an empty throttle.
func New() *T {
	return &T{keys: make(map[string]*counter)}
}

// Allow records one request for key at now and reports whether it fits the
// window's cap. The first request after a window lapses starts a new one.
func (t *T) Allow(key string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.keys[key]
	if !ok || now.After(c.resetAt) {
		t.keys[key] = &counter{count: 1, resetAt: now.Add(Window)}
		return true
	}
	c.count++
	return c.count <= MaxRequests
}

// Sweep drops counters whose window lapsed before now, so keys seen once do
// not accumulate forever.
func (t *T) Sweep(now time.Time) (removed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, c := range t.keys {
		if now.After(c.resetAt) {
			delete(t.keys, key)
			removed++
		}
	}
	return
}
