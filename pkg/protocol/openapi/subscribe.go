package openapi

import (
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"dyad.dev/pkg/app/relay/helpers"
	"dyad.dev/pkg/interfaces/store"
	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/context"
)

var SubscribeBody = &huma.RequestBody{
	Description: "a web push subscription triple",
	Content: map[string]*huma.MediaType{
		"application/json": {
			Schema: &huma.Schema{
				Type: huma.TypeObject,
				Properties: map[string]*huma.Schema{
					"endpoint": {
						Type:        huma.TypeString,
						Description: "push service URL the subscription posts to",
					},
					"p256dh": {
						Type:        huma.TypeString,
						Description: "client public key for payload encryption",
					},
					"auth": {
						Type:        huma.TypeString,
						Description: "client auth secret for payload encryption",
					},
				},
			},
		},
	},
}

type SubscribeInput struct {
	Auth      string `header:"Authorization" doc:"Signature <base64 Ed25519 over the canonical request>" required:"false"`
	PublicKey string `header:"X-Public-Key" doc:"caller's enrollment key" required:"false"`
	Timestamp string `header:"X-Timestamp" doc:"RFC 3339 time the request was signed" required:"false"`
	RawBody   []byte `doc:"subscription JSON"`
}

type SubscribeOutput struct {
	Body *SubscribeResponse
}

type SubscribeResponse struct {
	Status string `json:"status" doc:"always \"subscribed\""`
}

// RegisterSubscribe implements POST /api/push/subscribe: upsert the caller's
// push subscription triple.
func (x *Operations) RegisterSubscribe(api huma.API) {
	name := "PushSubscribe"
	description := `Register the web push subscription the relay pokes when the partner stores an entry.

Re-subscribing replaces the previous triple. Re-pairing forfeits it.`
	path := x.path + "/push/subscribe"
	method := http.MethodPost
	huma.Register(
		api, huma.Operation{
			OperationID: name,
			Summary:     name,
			Path:        path,
			Method:      method,
			Tags:        []string{"push"},
			RequestBody: SubscribeBody,
			Description: helpers.GenerateDescription(description, true),
		}, func(ctx context.T, input *SubscribeInput) (
			output *SubscribeOutput, err error,
		) {
			var u *store.User
			if u, err = x.auth(ctx, input.RawBody); err != nil {
				return
			}
			var sub store.Subscription
			if err = json.Unmarshal(input.RawBody, &sub); err != nil {
				err = huma.Error400BadRequest("malformed JSON body")
				return
			}
			if sub.Endpoint == "" || sub.P256dh == "" || sub.Auth == "" {
				err = huma.Error400BadRequest(
					"endpoint, p256dh and auth are required",
				)
				return
			}
			if err = x.Storage().SetSubscription(
				ctx, u.PublicKey, &sub,
			); chk.E(err) {
				err = huma.Error500InternalServerError("internal error")
				return
			}
			output = &SubscribeOutput{
				Body: &SubscribeResponse{Status: "subscribed"},
			}
			return
		},
	)
}
