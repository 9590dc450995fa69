package openapi

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"dyad.dev/pkg/app/relay/helpers"
	"dyad.dev/pkg/encoders/ident"
	"dyad.dev/pkg/interfaces/store"
	"dyad.dev/pkg/protocol/httpauth"
	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/context"
	"dyad.dev/pkg/utils/log"
)

type InitiateBody struct {
	PublicKey string `json:"publicKey" doc:"enrollment key: standard base64 of the signer's raw public key bytes"`
}

type InitiateInput struct {
	Body *InitiateBody `doc:"initiate parameters"`
}

type InitiateOutput struct {
	Body *InitiateResponse
}

type InitiateResponse struct {
	PairId     string `json:"pairId" doc:"opaque pair identifier"`
	RelayToken string `json:"relayToken" doc:"single-use token the partner redeems with join"`
}

// RegisterInitiate implements POST /api/pairs/initiate: create a pair and
// mint its relay token.
func (x *Operations) RegisterInitiate(api huma.API) {
	name := "InitiatePair"
	description := `Create a new pair and mint its single-use relay token.

A key that already belongs to a pair is re-enrolled into the new one and
forfeits its push subscription.`
	path := x.path + "/pairs/initiate"
	method := http.MethodPost
	huma.Register(
		api, huma.Operation{
			OperationID:   name,
			Summary:       name,
			Path:          path,
			Method:        method,
			Tags:          []string{"pairs"},
			DefaultStatus: http.StatusCreated,
			Description:   helpers.GenerateDescription(description, false),
		}, func(ctx context.T, input *InitiateInput) (
			output *InitiateOutput, err error,
		) {
			if input.Body == nil || input.Body.PublicKey == "" {
				err = huma.Error400BadRequest("publicKey is required")
				return
			}
			if _, err = httpauth.DecodePublicKey(
				input.Body.PublicKey,
			); err != nil {
				err = huma.Error400BadRequest("Invalid public key")
				return
			}
			pairId := ident.New()
			token := ident.NewToken()
			if err = x.Storage().InitiatePair(
				ctx, pairId, input.Body.PublicKey, token,
				time.Now().Add(store.TokenTTL),
			); chk.E(err) {
				err = huma.Error500InternalServerError("internal error")
				return
			}
			log.I.F("pair %s initiated", pairId)
			output = &InitiateOutput{
				Body: &InitiateResponse{
					PairId: pairId, RelayToken: token,
				},
			}
			return
		},
	)
}
