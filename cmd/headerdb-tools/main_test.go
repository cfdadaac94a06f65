// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"gitlab.com/jaxnet/headerdb/node/headerindex"
	"gitlab.com/jaxnet/headerdb/types/chaincfg"
	"gitlab.com/jaxnet/headerdb/types/chainhash"
	"gitlab.com/jaxnet/headerdb/types/wire"
)

func TestMain(m *testing.M) {
	cli.OsExiter = func(int) {}
	cli.ErrWriter = io.Discard
	os.Exit(m.Run())
}

// run executes the tool and returns what it printed.
func run(t *testing.T, args ...string) (string, error) {
	app := (&App{}).cliApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"headerdb-tools", "--net", "regtest"}, args...))
	return out.String(), err
}

// regtestChain returns an index with n headers on top of the regtest genesis.
func regtestChain(t *testing.T, n int) *headerindex.Index {
	params := &chaincfg.RegressionNetParams
	idx := headerindex.New(params)
	_, err := idx.Add(&params.GenesisHeader)
	require.NoError(t, err)

	parent := params.GenesisHash
	for i := 0; i < n; i++ {
		h := &wire.BlockHeader{
			Version:    4,
			PrevBlock:  parent,
			MerkleRoot: chainhash.Hash{byte(i), 1},
			Timestamp:  time.Unix(1600000000+int64(i)*600, 0),
			Bits:       params.PowLimitBits,
			Nonce:      uint32(i),
		}
		_, err := idx.Add(h)
		require.NoError(t, err)
		parent = h.BlockHash()
	}
	return idx
}

func TestGenesisCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "headers.dat")

	out, err := run(t, "genesis", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, chaincfg.RegressionNetParams.GenesisHash.String())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(wire.BlockHeaderLen), info.Size())

	_, err = run(t, "genesis", "--file", path)
	assert.Error(t, err)
	_, err = run(t, "genesis", "--file", path, "--force")
	assert.NoError(t, err)
}

func TestInfoAndLocator(t *testing.T) {
	idx := regtestChain(t, 30)
	path := filepath.Join(t.TempDir(), "headers.dat")
	require.NoError(t, idx.Save(path))

	out, err := run(t, "info", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "headers:   31")
	assert.Contains(t, out, "height:    30")
	assert.Contains(t, out, idx.BestTip().Hash().String())

	out, err = run(t, "locator", "--file", path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 15)
	assert.Contains(t, lines[0], idx.BestTip().Hash().String())
	assert.Contains(t, lines[14], chaincfg.RegressionNetParams.GenesisHash.String())

	from := idx.NodeByHeight(5).Hash()
	out, err = run(t, "locator", "--file", path, "--hash", from.String())
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 6)

	_, err = run(t, "locator", "--file", path, "--hash", chainhash.Hash{7}.String())
	assert.Error(t, err)
	_, err = run(t, "info", "--file", filepath.Join(t.TempDir(), "nope.dat"))
	assert.Error(t, err)
}

func TestImportSources(t *testing.T) {
	dir := t.TempDir()
	source := regtestChain(t, 12)
	want := source.BestTip().Hash()

	flat := filepath.Join(dir, "source.dat")
	require.NoError(t, source.Save(flat))

	var hexLines []string
	for _, node := range source.BestChain() {
		header := node.Header()
		hexLines = append(hexLines, hex.EncodeToString(header.Bytes()))
	}
	hexFile := filepath.Join(dir, "source.hex")
	require.NoError(t, os.WriteFile(hexFile, []byte(strings.Join(hexLines, "\n")), 0600))

	csvFile := filepath.Join(dir, "source.csv")
	out, err := run(t, "export-csv", "--file", flat, "--out", csvFile)
	require.NoError(t, err)
	assert.Contains(t, out, "exported 13 headers")

	for _, src := range []string{flat, hexFile, csvFile} {
		t.Run(filepath.Ext(src), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "headers.dat")
			_, err := run(t, "genesis", "--file", path)
			require.NoError(t, err)

			out, err := run(t, "import", "--file", path, "--source", src)
			require.NoError(t, err)
			assert.Contains(t, out, "added 12 headers, skipped 1 known")

			idx := headerindex.New(&chaincfg.RegressionNetParams)
			require.NoError(t, idx.Load(path))
			assert.Equal(t, want, idx.BestTip().Hash())
		})
	}

	// A tampered CSV row no longer matches its hash.
	data, err := os.ReadFile(csvFile)
	require.NoError(t, err)
	rows := strings.Split(string(data), "\n")
	fields := strings.Split(rows[3], ",")
	fields[7] = "999999"
	rows[3] = strings.Join(fields, ",")
	tampered := filepath.Join(dir, "tampered.csv")
	require.NoError(t, os.WriteFile(tampered, []byte(strings.Join(rows, "\n")), 0600))

	path := filepath.Join(dir, "headers.dat")
	_, err = run(t, "genesis", "--file", path)
	require.NoError(t, err)
	_, err = run(t, "import", "--file", path, "--source", tampered)
	assert.Error(t, err)
}

func TestVerifyCmd(t *testing.T) {
	idx := regtestChain(t, 5)
	dir := t.TempDir()
	path := filepath.Join(dir, "headers.dat")
	require.NoError(t, idx.Save(path))

	out, err := run(t, "verify", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ok, 6 headers")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	truncated := filepath.Join(dir, "truncated.dat")
	require.NoError(t, os.WriteFile(truncated, data[:len(data)-10], 0600))
	_, err = run(t, "verify", "--file", truncated)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad record #5")

	missingGenesis := filepath.Join(dir, "nogenesis.dat")
	require.NoError(t, os.WriteFile(missingGenesis, data[wire.BlockHeaderLen:], 0600))
	_, err = run(t, "verify", "--file", missingGenesis)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad record #0")
}

func TestDumpCmd(t *testing.T) {
	idx := regtestChain(t, 8)
	path := filepath.Join(t.TempDir(), "headers.dat")
	require.NoError(t, idx.Save(path))

	out, err := run(t, "dump", "--file", path, "--count", "3")
	require.NoError(t, err)
	assert.Contains(t, out, idx.BestTip().Hash().String())
	assert.Contains(t, out, idx.NodeByHeight(6).Hash().String())
	assert.NotContains(t, out, idx.NodeByHeight(5).Hash().String())

	out, err = run(t, "dump", "--file", path, "--count", "1", "--spew")
	require.NoError(t, err)
	assert.Contains(t, out, "Nonce")
	assert.Contains(t, out, "height 8")

	_, err = run(t, "dump", "--file", path, "--count", "0")
	assert.Error(t, err)
}

func TestUnknownNet(t *testing.T) {
	app := (&App{}).cliApp()
	app.Writer = io.Discard
	app.ErrWriter = io.Discard
	err := app.Run([]string{"headerdb-tools", "--net", "moon", "info", "--file", "x"})
	assert.Error(t, err)
}
