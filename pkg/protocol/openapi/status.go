package openapi

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"dyad.dev/pkg/app/relay/helpers"
	"dyad.dev/pkg/interfaces/store"
	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/context"
)

type StatusInput struct {
	Auth      string `header:"Authorization" doc:"Signature <base64 Ed25519 over the canonical request>" required:"false"`
	PublicKey string `header:"X-Public-Key" doc:"caller's enrollment key" required:"false"`
	Timestamp string `header:"X-Timestamp" doc:"RFC 3339 time the request was signed" required:"false"`
}

type StatusOutput struct {
	Body *StatusResponse
}

type StatusResponse struct {
	Paired           bool   `json:"paired" doc:"whether a partner is registered in the caller's pair"`
	PartnerPublicKey string `json:"partnerPublicKey,omitempty" doc:"the partner's key, present when paired"`
}

// RegisterStatus implements GET /api/pairs/status: partner presence.
func (x *Operations) RegisterStatus(api huma.API) {
	name := "PairStatus"
	description := "Report whether the caller's pair has a partner yet."
	path := x.path + "/pairs/status"
	method := http.MethodGet
	huma.Register(
		api, huma.Operation{
			OperationID: name,
			Summary:     name,
			Path:        path,
			Method:      method,
			Tags:        []string{"pairs"},
			Description: helpers.GenerateDescription(description, true),
		}, func(ctx context.T, input *StatusInput) (
			output *StatusOutput, err error,
		) {
			var u *store.User
			if u, err = x.auth(ctx, nil); err != nil {
				return
			}
			var partner *store.User
			if partner, err = x.Storage().GetPartner(ctx, u); chk.E(err) {
				err = huma.Error500InternalServerError("internal error")
				return
			}
			output = &StatusOutput{Body: &StatusResponse{}}
			if partner != nil {
				output.Body.Paired = true
				output.Body.PartnerPublicKey = partner.PublicKey
			}
			return
		},
	)
}
