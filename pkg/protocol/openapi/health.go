package openapi

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"dyad.dev/pkg/app/relay/helpers"
	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/context"
	"dyad.dev/pkg/version"
)

type HealthOutput struct {
	Body *HealthResponse
}

type HealthResponse struct {
	Status  string `json:"status" doc:"\"ok\" when the store answers"`
	Name    string `json:"name" doc:"configured application name"`
	Version string `json:"version" doc:"release version"`
}

// RegisterHealth implements GET /api/health: store liveness plus the relay's
// identity, for probes and operators.
func (x *Operations) RegisterHealth(api huma.API) {
	name := "Health"
	description := "Report service identity and store reachability."
	path := x.path + "/health"
	method := http.MethodGet
	huma.Register(
		api, huma.Operation{
			OperationID: name,
			Summary:     name,
			Path:        path,
			Method:      method,
			Tags:        []string{"info"},
			Description: helpers.GenerateDescription(description, false),
		}, func(ctx context.T, input *struct{}) (
			output *HealthOutput, err error,
		) {
			if err = x.Storage().Ping(ctx); chk.E(err) {
				err = huma.Error500InternalServerError("store unreachable")
				return
			}
			output = &HealthOutput{
				Body: &HealthResponse{
					Status:  "ok",
					Name:    x.Config().AppName,
					Version: version.V,
				},
			}
			return
		},
	)
}
