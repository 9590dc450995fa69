package relay

import (
	"net/http"

	"dyad.dev/pkg/app/config"
	"dyad.dev/pkg/interfaces/notifier"
	"dyad.dev/pkg/interfaces/server"
	"dyad.dev/pkg/interfaces/store"
	"dyad.dev/pkg/protocol/handoff"
	"dyad.dev/pkg/utils/context"
)

func (s *Server) Storage() store.I { return s.storage }

func (s *Server) Notifier() notifier.I { return s.notifier }

func (s *Server) Handoff() *handoff.H { return s.handoff }

func (s *Server) Context() context.T { return s.Ctx }

func (s *Server) Config() *config.C { return s.C }

// UserAuth resolves the request's signature header triple to an enrolled
// user, verifying the signature over the canonical bytes of the request and
// the given body.
func (s *Server) UserAuth(
	c context.T, r *http.Request, body []byte,
) (u *store.User, err error) {
	return s.verifier.Request(c, r, body)
}

var _ server.I = &Server{}
