// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
)

// interruptSignals defines the default signals to catch in order to do a proper
// shutdown.  This may be modified during init depending on the platform.
var interruptSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}

// interruptListener listens for OS Signals such as SIGINT (Ctrl+C).  The
// returned context is canceled when a signal is received or the parent is
// done.
func interruptListener(parent context.Context, log zerolog.Logger) context.Context {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		interruptChannel := make(chan os.Signal, 1)
		signal.Notify(interruptChannel, interruptSignals...)

		// Listen for initial shutdown signal and cancel the returned
		// context to notify the caller.
		select {
		case sig := <-interruptChannel:
			log.Info().Msg("Received signal " + sig.String() + ". Shutting down...")

		case <-parent.Done():
		}
		cancel()

		// Listen for repeated signals and display a message so the user
		// knows the shutdown is in progress and the process is not
		// hung.
		for sig := range interruptChannel {
			log.Info().Msg("Received signal " + sig.String() + ". Already shutting down...")
		}
	}()

	return ctx
}

