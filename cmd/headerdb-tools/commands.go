// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gitlab.com/jaxnet/headerdb/node/headerindex"
	"gitlab.com/jaxnet/headerdb/types/chainhash"
	"gitlab.com/jaxnet/headerdb/types/wire"
)

func (app *App) infoCmd(c *cli.Context) error {
	idx, err := app.loadIndex(c.String(flagFile))
	if err != nil {
		return err
	}

	tip := idx.BestTip()
	w := c.App.Writer
	fmt.Fprintf(w, "network:   %s\n", app.params.Name)
	fmt.Fprintf(w, "genesis:   %v\n", app.params.GenesisHash)
	fmt.Fprintf(w, "headers:   %d\n", idx.Size())
	fmt.Fprintf(w, "best:      %v\n", tip.Hash())
	fmt.Fprintf(w, "height:    %d\n", tip.Height())
	fmt.Fprintf(w, "bits:      %08x\n", tip.Bits())
	fmt.Fprintf(w, "timestamp: %s\n", tip.Timestamp().UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "work:      %s\n", tip.WorkSum().Text(16))
	return nil
}

func (app *App) locatorCmd(c *cli.Context) error {
	idx, err := app.loadIndex(c.String(flagFile))
	if err != nil {
		return err
	}

	node := idx.BestTip()
	if str := c.String(flagHash); str != "" {
		hash, err := chainhash.NewHashFromStr(str)
		if err != nil {
			return cli.Exit(errors.Wrap(err, "invalid hash"), 1)
		}
		if node = idx.LookupNode(hash); node == nil {
			return cli.Exit(errors.Errorf("header %v is not in %s", hash, c.String(flagFile)), 1)
		}
	}

	locator, err := idx.Locator(node)
	if err != nil {
		return cli.Exit(err, 1)
	}
	for _, hash := range locator {
		fmt.Fprintf(c.App.Writer, "%8d %v\n", idx.LookupNode(hash).Height(), hash)
	}
	return nil
}

func (app *App) importCmd(c *cli.Context) error {
	path := c.String(flagFile)
	idx, err := app.loadIndex(path)
	if err != nil {
		return err
	}

	headers, err := readSource(c.String(flagSource))
	if err != nil {
		return cli.Exit(err, 1)
	}

	var added, duplicates int
	for i, header := range headers {
		_, err := idx.Add(header)
		switch {
		case err == nil:
			added++
		case headerindex.IsErrorCode(err, headerindex.ErrDuplicateHeader):
			duplicates++
		default:
			return cli.Exit(errors.Wrapf(err, "source header #%d", i), 1)
		}
	}

	if err := idx.Save(path); err != nil {
		return cli.Exit(err, 1)
	}

	tip := idx.BestTip()
	fmt.Fprintf(c.App.Writer, "added %d headers, skipped %d known, best %v (height %d)\n",
		added, duplicates, tip.Hash(), tip.Height())
	return nil
}

// readSource decodes headers from a flat file, a CSV export (.csv) or a text
// file with one hex encoded header per line (.hex, .txt).
func readSource(path string) ([]*wire.BlockHeader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSV(path)
	case ".hex", ".txt":
		return readHexLines(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read source")
	}
	if len(data)%wire.BlockHeaderLen != 0 {
		return nil, errors.Errorf("source %s has size %d which is not a multiple of %d",
			path, len(data), wire.BlockHeaderLen)
	}

	headers := make([]*wire.BlockHeader, 0, len(data)/wire.BlockHeaderLen)
	for off := 0; off < len(data); off += wire.BlockHeaderLen {
		header, err := wire.NewBlockHeaderFromBytes(data[off : off+wire.BlockHeaderLen])
		if err != nil {
			return nil, errors.Wrapf(err, "source record at offset %d", off)
		}
		headers = append(headers, header)
	}
	return headers, nil
}

func readHexLines(path string) ([]*wire.BlockHeader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open source")
	}
	defer file.Close()

	var headers []*wire.BlockHeader
	scanner := bufio.NewScanner(file)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		raw, err := hex.DecodeString(text)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		header, err := wire.NewBlockHeaderFromBytes(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		headers = append(headers, header)
	}
	return headers, errors.Wrap(scanner.Err(), "unable to read source")
}

func (app *App) exportCSVCmd(c *cli.Context) error {
	idx, err := app.loadIndex(c.String(flagFile))
	if err != nil {
		return err
	}

	chain := idx.BestChain()
	if err := writeCSV(c.String(flagOut), chain); err != nil {
		return cli.Exit(err, 1)
	}
	fmt.Fprintf(c.App.Writer, "exported %d headers to %s\n", len(chain), c.String(flagOut))
	return nil
}

func (app *App) verifyCmd(c *cli.Context) error {
	path := c.String(flagFile)
	file, err := os.Open(path)
	if err != nil {
		return cli.Exit(errors.Wrap(err, "unable to open header file"), 1)
	}
	defer file.Close()

	idx := headerindex.New(app.params)
	read, err := idx.ReadFrom(bufio.NewReader(file))
	if err != nil {
		record := read / wire.BlockHeaderLen
		return cli.Exit(fmt.Sprintf("%s: bad record #%d at offset %d: %v", path, record, read, err), 2)
	}
	if idx.Size() == 0 {
		return cli.Exit(fmt.Sprintf("%s: no headers", path), 2)
	}

	tip := idx.BestTip()
	if stale := idx.Size() - int(tip.Height()) - 1; stale > 0 {
		fmt.Fprintf(c.App.Writer, "%s: %d records are not on the best chain\n", path, stale)
	}
	fmt.Fprintf(c.App.Writer, "%s: ok, %d headers, best %v (height %d)\n",
		path, idx.Size(), tip.Hash(), tip.Height())
	return nil
}

func (app *App) genesisCmd(c *cli.Context) error {
	path := c.String(flagFile)
	if _, err := os.Stat(path); err == nil && !c.Bool(flagForce) {
		return cli.Exit(errors.Errorf("%s already exists, use --%s to overwrite", path, flagForce), 1)
	}

	idx := headerindex.New(app.params)
	if _, err := idx.Add(&app.params.GenesisHeader); err != nil {
		return cli.Exit(err, 1)
	}
	if err := idx.Save(path); err != nil {
		return cli.Exit(err, 1)
	}

	fmt.Fprintf(c.App.Writer, "wrote %s genesis %v to %s\n", app.params.Name, app.params.GenesisHash, path)
	return nil
}

func (app *App) dumpCmd(c *cli.Context) error {
	idx, err := app.loadIndex(c.String(flagFile))
	if err != nil {
		return err
	}

	count := c.Int(flagCount)
	if count <= 0 {
		return cli.Exit(errors.Errorf("--%s must be positive", flagCount), 1)
	}

	var nodes []*headerindex.HeaderNode
	for node := idx.BestTip(); node != nil && len(nodes) < count; node = idx.Parent(node) {
		nodes = append(nodes, node)
	}

	if c.Bool(flagSpew) {
		for _, node := range nodes {
			header := node.Header()
			fmt.Fprintf(c.App.Writer, "height %d, hash %v\n", node.Height(), node.Hash())
			spew.Fdump(c.App.Writer, &header)
		}
		return nil
	}

	rows := make([][]string, 0, len(nodes))
	for _, node := range nodes {
		rows = append(rows, []string{
			strconv.Itoa(int(node.Height())),
			node.Hash().String(),
			node.Timestamp().UTC().Format(time.RFC3339),
			fmt.Sprintf("%08x", node.Bits()),
			node.WorkSum().Text(16),
		})
	}

	table := tablewriter.NewWriter(c.App.Writer)
	table.SetHeader([]string{"Height", "Hash", "Timestamp", "Bits", "Work"})
	table.SetAutoFormatHeaders(false)
	table.AppendBulk(rows)
	table.Render()
	return nil
}
