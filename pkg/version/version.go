// Package version carries the release identity reported in startup logs,
// help output and the health endpoint.
package version

var (
	// V is the current release version.
	V = "v0.3.1"
	// URL is the canonical home of the software.
	URL = "https://dyad.dev"
	// Description summarises the service for API documentation and the
	// health endpoint.
	Description = "blind relay for paired end-to-end encrypted messaging"
)
