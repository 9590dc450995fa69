package helpers

import (
	"net/http"
	"strings"
)

// GenerateDescription appends the signed-request header requirements to an
// operation's base description so the generated API documentation spells out
// what an authenticated endpoint expects.
//
// # Parameters
//
//   - text: A string representing the base description.
//
//   - signed: Whether the endpoint requires per-request signature headers.
//
// # Return Values
//
//   - A string combining the base description and, when signed is true, a
//     formatted list of the required headers.
func GenerateDescription(text string, signed bool) string {
	if !signed {
		return text
	}
	headers := []string{"Authorization", "X-Public-Key", "X-Timestamp"}
	result := make([]string, 0)
	for _, value := range headers {
		result = append(result, "`"+value+"`")
	}
	return text + "<br/><br/>**Signed request**<br/>Requires the " +
		strings.Join(result, ", ") + " headers."
}

// GetRemoteFromReq retrieves the originating IP address of the client from an
// HTTP request, considering standard and non-standard proxy headers.
//
// # Parameters
//
//   - r: The HTTP request object containing details of the client and
//     routing information.
//
// # Return Values
//
//   - rr: A string value representing the IP address of the originating
//     remote client.
//
// # Expected behaviour
//
// The standardized Forwarded header (RFC 7239) is consulted first and the
// client IP extracted from its "for" parameter. Failing that, the
// X-Forwarded-For header is used; with one address it returns that, with two
// it returns the second. When neither header is present the request's
// RemoteAddr is returned.
func GetRemoteFromReq(r *http.Request) (rr string) {
	if forwarded := r.Header.Get("Forwarded"); forwarded != "" {
		for _, part := range strings.Split(forwarded, ";") {
			part = strings.TrimSpace(part)
			if !strings.HasPrefix(part, "for=") {
				continue
			}
			forValue := strings.TrimPrefix(part, "for=")
			forValue = strings.Trim(forValue, "\"")
			// IPv6 addresses come enclosed in square brackets.
			return strings.Trim(forValue, "[]")
		}
	}
	rem := r.Header.Get("X-Forwarded-For")
	if rem == "" {
		return r.RemoteAddr
	}
	splitted := strings.Split(rem, " ")
	if len(splitted) == 2 {
		return splitted[1]
	}
	return splitted[0]
}
