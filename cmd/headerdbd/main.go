// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"gitlab.com/jaxnet/headerdb/config"
)

const (
	appName    = "headerdbd"
	appVersion = "0.1.0"
)

func main() {
	// Work around defer not working after os.Exit()
	if err := headerdbdMain(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "FATAL:", err)
		os.Exit(1)
	}
}

// headerdbdMain is the real main function for headerdbd.  It is necessary to
// work around the fact that deferred functions do not run when os.Exit() is
// called.
func headerdbdMain(args []string) error {
	// Load configuration and parse command line.  This function also
	// initializes logging and configures it accordingly.
	cfg, _, err := config.LoadConfig(args)
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			return nil
		}
		return err
	}

	if cfg.ShowVersion {
		fmt.Println(appName, "version", appVersion)
		return nil
	}

	log := config.Log()
	defer log.Info().Msg("Shutdown complete")

	// Show version at startup.
	log.Info().Msgf("Version %s, network %s", appVersion, cfg.NetParams().Name)

	// Get a context that will be canceled when a shutdown signal has been
	// triggered either from an OS signal such as SIGINT (Ctrl+C) or from
	// another subsystem.
	ctx := interruptListener(context.Background(), log.With().Str("ctx", "interruptListener").Logger())

	d, err := newDaemon(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Unable to start")
		return err
	}
	defer d.close()

	return d.run(ctx)
}
