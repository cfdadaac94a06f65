// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gitlab.com/jaxnet/headerdb/node/headerindex"
	"gitlab.com/jaxnet/headerdb/types/chaincfg"
)

func main() {
	app := &App{}
	if err := app.cliApp().Run(os.Args); err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

// App holds the state shared by every command.
type App struct {
	params *chaincfg.Params
	flags  map[string]cli.Flag
}

func (app *App) cliApp() *cli.App {
	app.flags = getFlags()
	return &cli.App{
		Name:     "headerdb-tools",
		Usage:    "inspect and maintain flat header files",
		Flags:    []cli.Flag{app.flags[flagNet]},
		Before:   app.initNet,
		Commands: app.getCommands(),
	}
}

func (app *App) getCommands() cli.Commands {
	return []*cli.Command{
		{
			Name:   "info",
			Usage:  "show the best tip and the size of a header file",
			Flags:  []cli.Flag{app.flags[flagFile]},
			Action: app.infoCmd,
		},
		{
			Name:   "locator",
			Usage:  "print the block locator of the best tip or of --hash",
			Flags:  []cli.Flag{app.flags[flagFile], app.flags[flagHash]},
			Action: app.locatorCmd,
		},
		{
			Name:   "import",
			Usage:  "add headers from another file and save the best chain",
			Flags:  []cli.Flag{app.flags[flagFile], app.flags[flagSource]},
			Action: app.importCmd,
		},
		{
			Name:   "export-csv",
			Usage:  "write the best chain to a CSV file",
			Flags:  []cli.Flag{app.flags[flagFile], app.flags[flagOut]},
			Action: app.exportCSVCmd,
		},
		{
			Name:   "verify",
			Usage:  "load a header file and report the first bad record",
			Flags:  []cli.Flag{app.flags[flagFile]},
			Action: app.verifyCmd,
		},
		{
			Name:   "genesis",
			Usage:  "create a header file holding just the network genesis",
			Flags:  []cli.Flag{app.flags[flagFile], app.flags[flagForce]},
			Action: app.genesisCmd,
		},
		{
			Name:   "dump",
			Usage:  "show the last headers of the best chain",
			Flags:  []cli.Flag{app.flags[flagFile], app.flags[flagCount], app.flags[flagSpew]},
			Action: app.dumpCmd,
		},
	}
}

func (app *App) initNet(c *cli.Context) error {
	params, err := chaincfg.ParamsByName(c.String(flagNet))
	if err != nil {
		return cli.Exit(errors.Wrapf(err, "%q, known networks %v", c.String(flagNet), chaincfg.KnownNets()), 1)
	}
	app.params = params
	return nil
}

// loadIndex reads a header file that must at least hold the genesis.
func (app *App) loadIndex(path string) (*headerindex.Index, error) {
	idx := headerindex.New(app.params)
	if err := idx.Load(path); err != nil {
		return nil, cli.Exit(err, 1)
	}
	if idx.Size() == 0 {
		return nil, cli.Exit(errors.Errorf("%s holds no headers", path), 1)
	}
	return idx, nil
}
