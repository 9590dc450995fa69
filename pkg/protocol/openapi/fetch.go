package openapi

import (
	"encoding/base64"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"dyad.dev/pkg/app/relay/helpers"
	"dyad.dev/pkg/encoders/dayid"
	"dyad.dev/pkg/interfaces/store"
	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/context"
)

// EpochDay is the default lower bound when fetch gets no since parameter.
const EpochDay = "1970-01-01"

type FetchInput struct {
	Auth      string `header:"Authorization" doc:"Signature <base64 Ed25519 over the canonical request>" required:"false"`
	PublicKey string `header:"X-Public-Key" doc:"caller's enrollment key" required:"false"`
	Timestamp string `header:"X-Timestamp" doc:"RFC 3339 time the request was signed" required:"false"`
	Since     string `query:"since" doc:"only entries with dayId at or after this day, YYYY-MM-DD" required:"false"`
}

type FetchOutput struct {
	Body *FetchResponse
}

type FetchResponse struct {
	Entries []*EntryView `json:"entries" doc:"the partner's unacknowledged entries, oldest day first"`
}

type EntryView struct {
	Id      string `json:"id" doc:"identifier to acknowledge the entry with"`
	DayId   string `json:"dayId" doc:"day the entry belongs to"`
	Payload string `json:"payload" doc:"standard base64 of the opaque ciphertext"`
}

// RegisterFetch implements GET /api/entries: read the partner's undelivered
// entries.
func (x *Operations) RegisterFetch(api huma.API) {
	name := "FetchEntries"
	description := `Fetch the partner's entries that the caller has not acknowledged yet.

Entries are returned oldest day first and stay readable until acknowledged.
A caller without a partner gets an empty list.`
	path := x.path + "/entries"
	method := http.MethodGet
	huma.Register(
		api, huma.Operation{
			OperationID: name,
			Summary:     name,
			Path:        path,
			Method:      method,
			Tags:        []string{"entries"},
			Description: helpers.GenerateDescription(description, true),
		}, func(ctx context.T, input *FetchInput) (
			output *FetchOutput, err error,
		) {
			var u *store.User
			if u, err = x.auth(ctx, nil); err != nil {
				return
			}
			since := input.Since
			if since == "" {
				since = EpochDay
			}
			if !dayid.Valid(since) {
				err = huma.Error400BadRequest("Invalid since")
				return
			}
			output = &FetchOutput{
				Body: &FetchResponse{Entries: []*EntryView{}},
			}
			var partner *store.User
			if partner, err = x.Storage().GetPartner(ctx, u); chk.E(err) {
				err = huma.Error500InternalServerError("internal error")
				return
			}
			if partner == nil {
				return
			}
			var entries []*store.Entry
			if entries, err = x.Storage().FetchUndelivered(
				ctx, u.PairId, partner.PublicKey, since,
			); chk.E(err) {
				err = huma.Error500InternalServerError("internal error")
				return
			}
			for _, e := range entries {
				output.Body.Entries = append(
					output.Body.Entries, &EntryView{
						Id:    e.Id,
						DayId: e.DayId,
						Payload: base64.StdEncoding.EncodeToString(
							e.Payload,
						),
					},
				)
			}
			return
		},
	)
}
