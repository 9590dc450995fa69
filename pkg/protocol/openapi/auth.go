package openapi

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"dyad.dev/pkg/app/relay/helpers"
	"dyad.dev/pkg/interfaces/store"
	"dyad.dev/pkg/protocol/httpauth"
	"dyad.dev/pkg/utils/context"
	"dyad.dev/pkg/utils/log"
)

// auth recovers the raw request from ctx, verifies its signature headers
// against body, and resolves the caller to a registered user. All
// verification failures collapse into one 401 so the response does not leak
// which check failed; infrastructure failures become a 500.
func (x *Operations) auth(
	ctx context.T, body []byte,
) (u *store.User, err error) {
	r := ctx.Value("http-request").(*http.Request)
	if u, err = x.I.UserAuth(ctx, r, body); err != nil {
		remote := helpers.GetRemoteFromReq(r)
		if httpauth.IsAuthFailure(err) {
			log.D.F("%s %s unauthorized from %s: %v",
				r.Method, r.URL.Path, remote, err,
			)
			err = huma.Error401Unauthorized("Unauthorized")
			return
		}
		log.E.F("%s %s auth lookup failed from %s: %v",
			r.Method, r.URL.Path, remote, err,
		)
		err = huma.Error500InternalServerError("internal error")
	}
	return
}
