// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/urfave/cli/v2"
	"gitlab.com/jaxnet/headerdb/types/chaincfg"
)

const (
	flagNet    = "net"
	flagFile   = "file"
	flagHash   = "hash"
	flagSource = "source"
	flagOut    = "out"
	flagCount  = "count"
	flagSpew   = "spew"
	flagForce  = "force"
)

func getFlags() map[string]cli.Flag {
	return map[string]cli.Flag{
		flagNet: &cli.StringFlag{
			Name:    flagNet,
			Aliases: []string{"n"},
			Value:   string(chaincfg.NetMainNet),
			EnvVars: []string{"HEADERDB_NET"},
			Usage:   "network of the header file: mainnet, testnet3, regtest or simnet",
		},
		flagFile: &cli.StringFlag{
			Name:     flagFile,
			Aliases:  []string{"f"},
			EnvVars:  []string{"HEADERDB_FILE"},
			Usage:    "path to the flat header file",
			Required: true,
		},
		flagHash: &cli.StringFlag{
			Name:    flagHash,
			Aliases: []string{"x"},
			Usage:   "header hash to start from instead of the best tip",
		},
		flagSource: &cli.StringFlag{
			Name:     flagSource,
			Aliases:  []string{"s"},
			Usage:    "headers to import: a flat header file, a .csv export or a .hex file with one header per line",
			Required: true,
		},
		flagOut: &cli.StringFlag{
			Name:     flagOut,
			Aliases:  []string{"o"},
			Usage:    "path of the output file",
			Required: true,
		},
		flagCount: &cli.IntFlag{
			Name:    flagCount,
			Aliases: []string{"c"},
			Value:   20,
			Usage:   "number of headers to show, counted back from the best tip",
		},
		flagSpew: &cli.BoolFlag{
			Name:  flagSpew,
			Usage: "dump the raw header values instead of a table",
		},
		flagForce: &cli.BoolFlag{
			Name:  flagForce,
			Usage: "overwrite an existing file",
		},
	}
}
