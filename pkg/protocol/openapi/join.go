package openapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"dyad.dev/pkg/app/relay/helpers"
	"dyad.dev/pkg/interfaces/store"
	"dyad.dev/pkg/protocol/httpauth"
	"dyad.dev/pkg/utils"
	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/context"
	"dyad.dev/pkg/utils/log"
)

type JoinBody struct {
	PublicKey  string `json:"publicKey" doc:"enrollment key: standard base64 of the signer's raw public key bytes"`
	RelayToken string `json:"relayToken" doc:"token minted by the initiate call"`
}

type JoinInput struct {
	Body *JoinBody `doc:"join parameters"`
}

type JoinOutput struct {
	Body *JoinResponse
}

type JoinResponse struct {
	PairId           string `json:"pairId" doc:"pair joined"`
	PartnerPublicKey string `json:"partnerPublicKey" doc:"the initiator's public key"`
}

// RegisterJoin implements POST /api/pairs/join: redeem a relay token and
// become the pair's second user.
func (x *Operations) RegisterJoin(api huma.API) {
	name := "JoinPair"
	description := `Redeem a relay token and register as the pair's follower.

The token is single use: of two concurrent joins, exactly one wins. The
pair's watcher, if connected, is notified that the partner arrived.`
	path := x.path + "/pairs/join"
	method := http.MethodPost
	huma.Register(
		api, huma.Operation{
			OperationID: name,
			Summary:     name,
			Path:        path,
			Method:      method,
			Tags:        []string{"pairs"},
			Description: helpers.GenerateDescription(description, false),
		}, func(ctx context.T, input *JoinInput) (
			output *JoinOutput, err error,
		) {
			if input.Body == nil || input.Body.PublicKey == "" {
				err = huma.Error400BadRequest("publicKey is required")
				return
			}
			if input.Body.RelayToken == "" {
				err = huma.Error400BadRequest("relayToken is required")
				return
			}
			if _, err = httpauth.DecodePublicKey(
				input.Body.PublicKey,
			); err != nil {
				err = huma.Error400BadRequest("Invalid public key")
				return
			}
			var tok *store.Token
			if tok, err = x.Storage().GetToken(
				ctx, input.Body.RelayToken,
			); err != nil {
				if errors.Is(err, store.ErrTokenNotFound) {
					err = huma.Error404NotFound("Token not found")
					return
				}
				chk.E(err)
				err = huma.Error500InternalServerError("internal error")
				return
			}
			if utils.FastEqual(
				[]byte(input.Body.PublicKey), []byte(tok.InitiatorKey),
			) {
				err = huma.Error400BadRequest("Cannot join your own pair")
				return
			}
			// Fast-fail checks; the consumed flag is only authoritative
			// inside the join transaction's compare-and-set.
			if tok.Consumed {
				err = huma.Error410Gone("Token already consumed")
				return
			}
			if tok.Expired(time.Now()) {
				err = huma.Error410Gone("Token expired")
				return
			}
			var pairId, initiatorKey string
			if pairId, initiatorKey, err = x.Storage().JoinPair(
				ctx, input.Body.PublicKey, input.Body.RelayToken,
			); err != nil {
				if errors.Is(err, store.ErrTokenConsumed) {
					err = huma.Error410Gone("Token already consumed")
					return
				}
				chk.E(err)
				err = huma.Error500InternalServerError("internal error")
				return
			}
			x.Handoff().Paired(pairId, input.Body.PublicKey)
			log.I.F("pair %s joined", pairId)
			output = &JoinOutput{
				Body: &JoinResponse{
					PairId:           pairId,
					PartnerPublicKey: initiatorKey,
				},
			}
			return
		},
	)
}
