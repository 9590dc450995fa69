// Package interrupt runs registered shutdown handlers when the process
// receives an interrupt or termination signal, and restarts the process in
// place on SIGHUP.
package interrupt

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/kardianos/osext"

	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/log"
)

var (
	mx       sync.Mutex
	handlers []func()
	started  bool
)

// AddHandler registers a function to run when the process receives SIGINT,
// SIGTERM or SIGHUP. Handlers run in reverse registration order, once. The
// signal listener starts on the first registration.
func AddHandler(fn func()) {
	mx.Lock()
	defer mx.Unlock()
	handlers = append(handlers, fn)
	if !started {
		started = true
		go listen()
	}
}

func runHandlers() {
	mx.Lock()
	defer mx.Unlock()
	for i := len(handlers) - 1; i >= 0; i-- {
		handlers[i]()
	}
	handlers = nil
}

func listen() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	sig := <-sigs
	log.I.F("received %v, shutting down", sig)
	runHandlers()
	if sig == syscall.SIGHUP {
		Restart()
	}
}

// Restart replaces the current process with a fresh instance of the same
// executable, preserving arguments and environment.
func Restart() {
	var err error
	var exe string
	if exe, err = osext.Executable(); chk.E(err) {
		return
	}
	log.I.F("restarting %s", exe)
	if err = syscall.Exec(exe, os.Args, os.Environ()); chk.E(err) {
		return
	}
}
