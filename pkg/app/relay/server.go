// Package relay assembles the relay's front door: the HTTP listener, the
// per-key throttle, the handoff channel upgrade and the lifecycle of the
// store and background sweepers behind them.
package relay

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"dyad.dev/pkg/app/config"
	"dyad.dev/pkg/app/relay/helpers"
	"dyad.dev/pkg/interfaces/notifier"
	"dyad.dev/pkg/interfaces/store"
	"dyad.dev/pkg/protocol/handoff"
	"dyad.dev/pkg/protocol/httpauth"
	"dyad.dev/pkg/protocol/openapi"
	"dyad.dev/pkg/protocol/servemux"
	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/context"
	"dyad.dev/pkg/utils/errorf"
	"dyad.dev/pkg/utils/log"
	"dyad.dev/pkg/utils/throttle"
	"dyad.dev/pkg/version"
)

// WatchPath is the endpoint a device upgrades to reach the pairing handoff
// channel. Everything else under the API prefix is plain HTTP.
const WatchPath = "/api/pairs/watch"

// Server represents the core structure for running the relay. It
// encapsulates the root context, the persistent store, the push notifier,
// the handoff directory, the request throttle and the HTTP plumbing that
// fronts them.
type Server struct {
	Ctx        context.T
	Cancel     context.F
	storage    store.I
	notifier   notifier.I
	verifier   *httpauth.V
	handoff    *handoff.H
	throttle   *throttle.T
	mux        *servemux.S
	httpServer *http.Server
	*config.C
}

// ServerParams represents the configuration parameters for initializing a
// server: the root context pair, the opened store, the push notifier and the
// running configuration.
type ServerParams struct {
	Ctx      context.T
	Cancel   context.F
	Storage  store.I
	Notifier notifier.I
	*config.C
}

// NewServer initializes and returns a new Server instance based on the
// provided ServerParams, registering the API operations on the given
// servemux.
//
// # Parameters
//
//   - sp: The configuration parameters for initializing the server.
//
//   - serveMux: The multiplexer the API operations register on.
//
// # Return Values
//
//   - s: The newly created Server instance.
//
//   - err: An error if any required collaborator is missing.
//
// # Expected Behaviour
//
// Builds the signature verifier over the store's user table, the handoff
// directory over the verifier and the per-key throttle, registers the API
// operations, and installs a catch-all handler so unknown paths answer with
// the same error envelope as the operations themselves.
func NewServer(sp *ServerParams, serveMux *servemux.S) (s *Server, err error) {
	if sp.Storage == nil {
		err = errorf.E("server requires an opened store")
		return
	}
	n := sp.Notifier
	if n == nil {
		n = notifier.None{}
	}
	s = &Server{
		Ctx:      sp.Ctx,
		Cancel:   sp.Cancel,
		storage:  sp.Storage,
		notifier: n,
		mux:      serveMux,
		throttle: throttle.New(),
		C:        sp.C,
	}
	s.verifier = httpauth.New(sp.Storage)
	s.handoff = handoff.New(s.verifier)
	openapi.New(
		s, sp.C.AppName, version.V, version.Description, "/api", serveMux,
	)
	serveMux.Handle(
		"/", http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusNotFound, "Not Found")
			},
		),
	)
	return s, nil
}

// writeError emits the uniform error envelope the API operations answer
// with, for responses produced before a handler runs.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Handler wraps the server in its CORS policy. Clients are browser apps on
// foreign origins, so preflights must clear the signature headers and every
// method the API uses; the stock policy admits neither DELETE nor
// Authorization.
func (s *Server) Handler() http.Handler {
	return cors.New(
		cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{
				http.MethodGet, http.MethodPost, http.MethodDelete,
			},
			AllowedHeaders: []string{
				"Content-Type", "Authorization",
				httpauth.HeaderPublicKey, httpauth.HeaderTimestamp,
			},
		},
	).Handler(s)
}

// ServeHTTP handles incoming HTTP requests: it applies the per-key throttle,
// dispatches handoff channel upgrades, and forwards everything else to the
// API multiplexer.
//
// # Parameters
//
//   - w: The response writer for sending responses.
//
//   - r: The request object containing client's details and data.
//
// # Expected Behaviour
//
//   - Requests carrying the signing key header are counted against the
//     per-key window; exceeding the cap answers 429 without touching any
//     handler. Requests without the header are not throttled by key.
//
//   - Websocket upgrades on the watch path are handed to the socket layer.
//
//   - All other requests are delegated to the internal mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	remote := helpers.GetRemoteFromReq(r)
	if key := r.Header.Get(httpauth.HeaderPublicKey); key != "" {
		if !s.throttle.Allow(key, time.Now()) {
			log.D.F("throttling %s from %s", key, remote)
			writeError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
	}
	if r.URL.Path == WatchPath && r.Header.Get("Upgrade") == "websocket" {
		s.handleWebsocket(w, r)
		return
	}
	log.T.F("http request: %s from %s", r.URL.String(), remote)
	s.mux.ServeHTTP(w, r)
}

// Start initializes the server by setting up a TCP listener, serving HTTP
// requests and running the background sweepers until the root context ends.
//
// # Parameters
//
//   - host: The hostname or IP address to listen on.
//
//   - port: The port number to bind to.
//
//   - started: Optional channels that are closed after the server starts
//     successfully.
//
// # Return Values
//
//   - err: An error if any step fails during the server startup process.
//
// # Expected Behaviour
//
//   - Listens for TCP connections on the joined host and port.
//
//   - Configures an HTTP server with CORS middleware and header timeouts and
//     binds it to the listener.
//
//   - Supervises the listener, the pending-bundle sweeper and the throttle
//     sweeper in one group; the group ends when the listener closes and the
//     root context is cancelled.
//
//   - If any started channels are provided, closes them upon successful
//     startup.
func (s *Server) Start(
	host string, port int, started ...chan bool,
) (err error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	log.I.F("starting relay listener at %s", addr)
	var ln net.Listener
	if ln, err = net.Listen("tcp", addr); err != nil {
		return err
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		Addr:              addr,
		ReadHeaderTimeout: 7 * time.Second,
		IdleTimeout:       28 * time.Second,
	}
	var g errgroup.Group
	g.Go(
		func() error {
			if err := s.httpServer.Serve(ln); !errors.Is(
				err, http.ErrServerClosed,
			) {
				return err
			}
			return nil
		},
	)
	g.Go(
		func() error {
			s.handoff.Run(s.Ctx)
			return nil
		},
	)
	g.Go(
		func() error {
			ticker := time.NewTicker(throttle.Window)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					s.throttle.Sweep(time.Now())
				case <-s.Ctx.Done():
					return nil
				}
			}
		},
	)
	for _, startedC := range started {
		close(startedC)
	}
	return g.Wait()
}

// Shutdown gracefully shuts down the server and its components. It ensures
// that all resources are properly released.
//
// # Expected Behaviour
//
//   - Cancels the root context, which closes the open handoff channels and
//     stops the sweepers.
//
//   - Closes the store.
//
//   - Shuts down the HTTP listener.
func (s *Server) Shutdown() {
	log.I.Ln("shutting down relay")
	s.Cancel()
	log.W.Ln("closing store")
	chk.E(s.storage.Close())
	if s.httpServer != nil {
		log.W.Ln("shutting down relay listener")
		chk.E(s.httpServer.Shutdown(context.Bg()))
	}
}

// Router retrieves and returns the HTTP ServeMux associated with the server.
//
// # Return Values
//
//   - router: The ServeMux instance used for routing HTTP requests.
func (s *Server) Router() (router *http.ServeMux) {
	return s.mux.ServeMux
}
