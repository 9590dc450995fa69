// Package main is a blind relay for paired end-to-end encrypted messaging
// clients: signed HTTP operations, a websocket pairing handoff channel, and
// web push pokes. Configuration is via environment variables or an optional
// .env file.
package main

import (
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/pkg/profile"

	"dyad.dev/pkg/app"
	"dyad.dev/pkg/app/config"
	"dyad.dev/pkg/app/relay"
	"dyad.dev/pkg/database"
	"dyad.dev/pkg/interfaces/notifier"
	"dyad.dev/pkg/protocol/servemux"
	"dyad.dev/pkg/protocol/webpush"
	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/context"
	"dyad.dev/pkg/utils/interrupt"
	"dyad.dev/pkg/utils/log"
	"dyad.dev/pkg/utils/lol"
	"dyad.dev/pkg/version"
)

func main() {
	var err error
	var cfg *config.C
	if cfg, err = config.New(); chk.T(err) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n\n", err)
		}
		config.PrintHelp(cfg, os.Stderr)
		os.Exit(0)
	}
	log.I.F("starting %s %s", cfg.AppName, version.V)
	if config.GetEnv() {
		config.PrintEnv(cfg, os.Stdout)
		os.Exit(0)
	}
	if config.HelpRequested() {
		config.PrintHelp(cfg, os.Stderr)
		os.Exit(0)
	}
	lol.SetLogLevel(cfg.LogLevel)
	if cfg.Pprof != "" {
		switch cfg.Pprof {
		case "cpu":
			defer profile.Start(profile.CPUProfile).Stop()
		case "memory":
			defer profile.Start(profile.MemProfile).Stop()
		case "allocation":
			defer profile.Start(profile.MemProfileAllocs).Stop()
		}
		go func() {
			chk.E(http.ListenAndServe("127.0.0.1:6060", nil))
		}()
	}
	c, cancel := context.Cancel(context.Bg())
	storage, err := database.New(
		c, cancel, cfg.DatabaseURL, cfg.DbLogLevel, cfg.SweepFrequency,
	)
	if chk.E(err) {
		os.Exit(1)
	}
	var n notifier.I = notifier.None{}
	if cfg.VapidSecretKey != "" {
		if n, err = webpush.New(
			storage, cfg.VapidPublicKey, cfg.VapidSecretKey,
			cfg.VapidSubject,
		); chk.E(err) {
			os.Exit(1)
		}
		log.I.Ln("web push notifications enabled")
	} else {
		log.I.Ln("no VAPID keys configured, push notifications disabled")
	}
	if cfg.Monitor {
		go app.MonitorResources(c)
	}
	var server *relay.Server
	serverParams := &relay.ServerParams{
		Ctx:      c,
		Cancel:   cancel,
		Storage:  storage,
		Notifier: n,
		C:        cfg,
	}
	if server, err = relay.NewServer(
		serverParams, servemux.New(),
	); chk.E(err) {
		os.Exit(1)
	}
	interrupt.AddHandler(func() { server.Shutdown() })
	if err = server.Start(cfg.Listen, cfg.Port); chk.E(err) {
		log.F.F("server terminated: %v", err)
	}
}
