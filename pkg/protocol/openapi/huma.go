package openapi

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"dyad.dev/pkg/protocol/servemux"
)

// Envelope is the uniform non-2xx response body: a single human-readable
// error string, never internals.
type Envelope struct {
	status  int
	Message string `json:"error" doc:"human-readable failure description"`
}

// GetStatus returns the HTTP status the envelope travels with.
func (e *Envelope) GetStatus() int { return e.status }

// Error satisfies the error interface.
func (e *Envelope) Error() string { return e.Message }

func init() {
	huma.NewError = func(
		status int, message string, errs ...error,
	) huma.StatusError {
		// huma reports schema violations as 422; this API's contract is 400.
		if status == http.StatusUnprocessableEntity {
			status = http.StatusBadRequest
		}
		return &Envelope{status: status, Message: message}
	}
}

// NewHuma binds a huma API to the relay's servemux and documents the
// service.
func NewHuma(
	sm *servemux.S, name, version, description string,
) (api huma.API) {
	config := huma.DefaultConfig(name, version)
	config.Info.Description = description
	return humago.New(sm, config)
}
