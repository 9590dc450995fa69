package openapi

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"dyad.dev/pkg/app/relay/helpers"
	"dyad.dev/pkg/interfaces/store"
	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/context"
)

type UnsubscribeInput struct {
	Auth      string `header:"Authorization" doc:"Signature <base64 Ed25519 over the canonical request>" required:"false"`
	PublicKey string `header:"X-Public-Key" doc:"caller's enrollment key" required:"false"`
	Timestamp string `header:"X-Timestamp" doc:"RFC 3339 time the request was signed" required:"false"`
}

type UnsubscribeOutput struct {
	Body *UnsubscribeResponse
}

type UnsubscribeResponse struct {
	Status string `json:"status" doc:"always \"unsubscribed\""`
}

// RegisterUnsubscribe implements DELETE /api/push/subscribe: forget the
// caller's push subscription triple. Idempotent; callers without a
// subscription get the same answer.
func (x *Operations) RegisterUnsubscribe(api huma.API) {
	name := "PushUnsubscribe"
	description := "Drop the caller's web push subscription, stopping partner-entry pokes."
	path := x.path + "/push/subscribe"
	method := http.MethodDelete
	huma.Register(
		api, huma.Operation{
			OperationID: name,
			Summary:     name,
			Path:        path,
			Method:      method,
			Tags:        []string{"push"},
			Description: helpers.GenerateDescription(description, true),
		}, func(ctx context.T, input *UnsubscribeInput) (
			output *UnsubscribeOutput, err error,
		) {
			var u *store.User
			if u, err = x.auth(ctx, nil); err != nil {
				return
			}
			if err = x.Storage().ClearSubscription(
				ctx, u.PublicKey,
			); chk.E(err) {
				err = huma.Error500InternalServerError("internal error")
				return
			}
			output = &UnsubscribeOutput{
				Body: &UnsubscribeResponse{Status: "unsubscribed"},
			}
			return
		},
	)
}
