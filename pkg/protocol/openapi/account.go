package openapi

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"dyad.dev/pkg/app/relay/helpers"
	"dyad.dev/pkg/interfaces/store"
	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/context"
)

type DeleteAccountInput struct {
	Auth      string `header:"Authorization" doc:"Signature <base64 Ed25519 over the canonical request>" required:"false"`
	PublicKey string `header:"X-Public-Key" doc:"caller's enrollment key" required:"false"`
	Timestamp string `header:"X-Timestamp" doc:"RFC 3339 time the request was signed" required:"false"`
}

type DeleteAccountOutput struct {
	Status int
}

// RegisterDeleteAccount implements DELETE /api/account: erase the caller's
// entries and user row. The partner's account survives; their pair simply
// has one member again.
func (x *Operations) RegisterDeleteAccount(api huma.API) {
	name := "DeleteAccount"
	description := `Erase the caller: stored entries first, then the user row itself.

The partner keeps their account and sees an unpaired status afterwards.`
	path := x.path + "/account"
	method := http.MethodDelete
	huma.Register(
		api, huma.Operation{
			OperationID:   name,
			Summary:       name,
			Path:          path,
			Method:        method,
			Tags:          []string{"account"},
			DefaultStatus: http.StatusNoContent,
			Description:   helpers.GenerateDescription(description, true),
		}, func(ctx context.T, input *DeleteAccountInput) (
			output *DeleteAccountOutput, err error,
		) {
			var u *store.User
			if u, err = x.auth(ctx, nil); err != nil {
				return
			}
			if err = x.Storage().DeleteUser(ctx, u.PublicKey); chk.E(err) {
				err = huma.Error500InternalServerError("internal error")
				return
			}
			output = &DeleteAccountOutput{Status: http.StatusNoContent}
			return
		},
	)
}
