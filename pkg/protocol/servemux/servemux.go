// Package servemux provides the root HTTP multiplexer shared by the API
// registrations, applying the CORS headers and the request-object injection
// the handlers depend on.
package servemux

import (
	"net/http"

	"dyad.dev/pkg/utils/context"
)

// S wraps http.ServeMux so handlers behind it can recover the raw request
// from their context.
type S struct {
	*http.ServeMux
}

// New creates an empty servemux ready for registrations.
func New() (c *S) {
	c = &S{http.NewServeMux()}
	return
}

// ServeHTTP applies the CORS headers, short-circuits preflight requests, and
// stores the request object under the "http-request" context key before
// delegating to the wrapped mux.
func (c *S) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE")
	w.Header().Set(
		"Access-Control-Allow-Headers",
		"Content-Type, Authorization, X-Public-Key, X-Timestamp",
	)
	if r.Method == http.MethodOptions {
		return
	}
	r = r.WithContext(context.Value(r.Context(), "http-request", r))
	c.ServeMux.ServeHTTP(w, r)
}
