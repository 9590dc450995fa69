package openapi

import (
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"dyad.dev/pkg/app/relay/helpers"
	"dyad.dev/pkg/interfaces/store"
	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/context"
	"dyad.dev/pkg/utils/log"
)

var AckBody = &huma.RequestBody{
	Description: "entry identifiers to acknowledge",
	Content: map[string]*huma.MediaType{
		"application/json": {
			Schema: &huma.Schema{
				Type: huma.TypeObject,
				Properties: map[string]*huma.Schema{
					"entryIds": {
						Type:        huma.TypeArray,
						Description: "identifiers returned by fetch",
						Items: &huma.Schema{
							Type: huma.TypeString,
						},
					},
				},
			},
		},
	},
}

type AckRequest struct {
	EntryIds []string `json:"entryIds"`
}

type AckInput struct {
	Auth      string `header:"Authorization" doc:"Signature <base64 Ed25519 over the canonical request>" required:"false"`
	PublicKey string `header:"X-Public-Key" doc:"caller's enrollment key" required:"false"`
	Timestamp string `header:"X-Timestamp" doc:"RFC 3339 time the request was signed" required:"false"`
	RawBody   []byte `doc:"acknowledgement JSON"`
}

type AckOutput struct {
	Body *AckResponse
}

type AckResponse struct {
	Deleted int64 `json:"deleted" doc:"how many entries were erased"`
}

// RegisterAck implements POST /api/entries/ack: erase delivered entries.
func (x *Operations) RegisterAck(api huma.API) {
	name := "AckEntries"
	description := `Acknowledge received entries, erasing them from the relay.

Only entries authored by the caller's partner within the caller's pair are
eligible; identifiers outside that set are ignored and reduce the deleted
count.`
	path := x.path + "/entries/ack"
	method := http.MethodPost
	huma.Register(
		api, huma.Operation{
			OperationID: name,
			Summary:     name,
			Path:        path,
			Method:      method,
			Tags:        []string{"entries"},
			RequestBody: AckBody,
			Description: helpers.GenerateDescription(description, true),
		}, func(ctx context.T, input *AckInput) (
			output *AckOutput, err error,
		) {
			var u *store.User
			if u, err = x.auth(ctx, input.RawBody); err != nil {
				return
			}
			var body AckRequest
			if err = json.Unmarshal(input.RawBody, &body); err != nil {
				err = huma.Error400BadRequest("malformed JSON body")
				return
			}
			if len(body.EntryIds) == 0 {
				err = huma.Error400BadRequest("entryIds is required")
				return
			}
			var partner *store.User
			if partner, err = x.Storage().GetPartner(ctx, u); chk.E(err) {
				err = huma.Error500InternalServerError("internal error")
				return
			}
			if partner == nil {
				err = huma.Error400BadRequest("No partner to acknowledge")
				return
			}
			var deleted int64
			if deleted, err = x.Storage().AckEntries(
				ctx, u.PairId, partner.PublicKey, body.EntryIds,
			); chk.E(err) {
				err = huma.Error500InternalServerError("internal error")
				return
			}
			log.D.F(
				"acked %d of %d entries in pair %s",
				deleted, len(body.EntryIds), u.PairId,
			)
			output = &AckOutput{Body: &AckResponse{Deleted: deleted}}
			return
		},
	)
}
