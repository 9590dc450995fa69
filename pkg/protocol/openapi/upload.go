package openapi

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"dyad.dev/pkg/app/relay/helpers"
	"dyad.dev/pkg/encoders/dayid"
	"dyad.dev/pkg/encoders/ident"
	"dyad.dev/pkg/interfaces/store"
	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/context"
	"dyad.dev/pkg/utils/log"
)

var EntryBody = &huma.RequestBody{
	Description: "an encrypted journal entry",
	Content: map[string]*huma.MediaType{
		"application/json": {
			Schema: &huma.Schema{
				Type: huma.TypeObject,
				Properties: map[string]*huma.Schema{
					"dayId": {
						Type:        huma.TypeString,
						Description: "day the entry belongs to, exactly YYYY-MM-DD",
					},
					"payload": {
						Type:        huma.TypeString,
						Description: "standard base64 of the opaque ciphertext",
					},
				},
			},
		},
	},
}

type UploadBody struct {
	DayId   string `json:"dayId"`
	Payload string `json:"payload"`
}

type UploadInput struct {
	Auth      string `header:"Authorization" doc:"Signature <base64 Ed25519 over the canonical request>" required:"false"`
	PublicKey string `header:"X-Public-Key" doc:"caller's enrollment key" required:"false"`
	Timestamp string `header:"X-Timestamp" doc:"RFC 3339 time the request was signed" required:"false"`
	RawBody   []byte `doc:"entry JSON"`
}

type UploadOutput struct {
	Body *UploadResponse
}

type UploadResponse struct {
	Id     string `json:"id" doc:"identifier to acknowledge the entry with"`
	Status string `json:"status" doc:"always \"stored\""`
}

// RegisterUpload implements POST /api/entries: store one entry for the
// caller's partner to fetch.
func (x *Operations) RegisterUpload(api huma.API) {
	name := "UploadEntry"
	description := `Store an encrypted entry under a day for the caller's partner.

Each user may store at most two entries per day. The partner's device is
poked over web push after the entry is durable; the poke is best-effort and
never delays the response.`
	path := x.path + "/entries"
	method := http.MethodPost
	huma.Register(
		api, huma.Operation{
			OperationID:   name,
			Summary:       name,
			Path:          path,
			Method:        method,
			Tags:          []string{"entries"},
			RequestBody:   EntryBody,
			DefaultStatus: http.StatusCreated,
			Description:   helpers.GenerateDescription(description, true),
		}, func(ctx context.T, input *UploadInput) (
			output *UploadOutput, err error,
		) {
			var u *store.User
			if u, err = x.auth(ctx, input.RawBody); err != nil {
				return
			}
			var body UploadBody
			if err = json.Unmarshal(input.RawBody, &body); err != nil {
				err = huma.Error400BadRequest("malformed JSON body")
				return
			}
			if !dayid.Valid(body.DayId) {
				err = huma.Error400BadRequest("Invalid dayId")
				return
			}
			var count int64
			if count, err = x.Storage().CountEntries(
				ctx, u.PublicKey, body.DayId,
			); chk.E(err) {
				err = huma.Error500InternalServerError("internal error")
				return
			}
			if count >= store.MaxEntriesPerDay {
				err = huma.Error429TooManyRequests("Rate limit exceeded")
				return
			}
			var payload []byte
			if payload, err = base64.StdEncoding.DecodeString(
				body.Payload,
			); err != nil {
				err = huma.Error400BadRequest("Invalid payload encoding")
				return
			}
			e := &store.Entry{
				Id:        ident.New(),
				AuthorKey: u.PublicKey,
				PairId:    u.PairId,
				DayId:     body.DayId,
				Payload:   payload,
			}
			if err = x.Storage().SaveEntry(ctx, e); chk.E(err) {
				err = huma.Error500InternalServerError("internal error")
				return
			}
			// The poke must not couple upload latency to push latency, so it
			// runs detached on the server context.
			go x.notifyPartner(u)
			output = &UploadOutput{
				Body: &UploadResponse{Id: e.Id, Status: "stored"},
			}
			return
		},
	)
}

// notifyPartner resolves the author's partner and pokes their push
// subscription. Failures are logged and dropped: the entry is already
// durable, the poke is advisory.
func (x *Operations) notifyPartner(u *store.User) {
	c := x.Context()
	partner, err := x.Storage().GetPartner(c, u)
	if chk.E(err) {
		return
	}
	if partner == nil {
		log.T.F("no partner to notify in pair %s", u.PairId)
		return
	}
	x.Notifier().Notify(c, partner.PublicKey, u.PairId)
}
