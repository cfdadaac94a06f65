// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/jaxnet/headerdb/config"
	"gitlab.com/jaxnet/headerdb/corelog"
	"gitlab.com/jaxnet/headerdb/node/headerchain"
	"gitlab.com/jaxnet/headerdb/types/chaincfg"
	"gitlab.com/jaxnet/headerdb/types/chainhash"
	"gitlab.com/jaxnet/headerdb/types/wire"
)

var feedNonce uint32

// feedHeaders builds n regtest headers on top of parent.
func feedHeaders(parent chainhash.Hash, n int, bits uint32) []*wire.BlockHeader {
	headers := make([]*wire.BlockHeader, 0, n)
	for i := 0; i < n; i++ {
		feedNonce++
		h := &wire.BlockHeader{
			Version:   4,
			PrevBlock: parent,
			Timestamp: time.Unix(1600000000+int64(feedNonce)*600, 0),
			Bits:      bits,
			Nonce:     feedNonce,
		}
		headers = append(headers, h)
		parent = h.BlockHash()
	}
	return headers
}

func hexLines(headers []*wire.BlockHeader) []string {
	lines := make([]string, 0, len(headers))
	for _, h := range headers {
		lines = append(lines, hex.EncodeToString(h.Bytes()))
	}
	return lines
}

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = dir
	cfg.Net = string(chaincfg.NetRegTest)
	cfg.HeadersFile = filepath.Join(dir, "headers.dat")
	cfg.SaveInterval = 0
	cfg.Archive.Path = filepath.Join(dir, "archive.db")
	return &cfg
}

func TestReadFeed(t *testing.T) {
	params := &chaincfg.RegressionNetParams
	chain, err := headerchain.New(headerchain.Config{Params: params})
	require.NoError(t, err)
	_, err = chain.ProcessHeader(&params.GenesisHeader)
	require.NoError(t, err)

	best := feedHeaders(params.GenesisHash, 5, params.PowLimitBits)
	orphan := feedHeaders(chainhash.Hash{1}, 1, params.PowLimitBits)

	lines := append([]string{"# regtest headers", ""}, hexLines(best)...)
	lines = append(lines, "zz-not-hex", hexLines(best[:1])[0], hexLines(orphan)[0], "abcd")

	stats, err := readFeed(context.Background(), strings.NewReader(strings.Join(lines, "\n")),
		chain, corelog.Disabled)
	require.NoError(t, err)
	assert.Equal(t, feedStats{accepted: 5, duplicates: 1, rejected: 3}, stats)
	assert.Equal(t, best[4].BlockHash(), chain.BestSnapshot().Hash)

	// A canceled context stops at the next line.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats, err = readFeed(ctx, strings.NewReader(strings.Join(hexLines(feedHeaders(best[4].BlockHash(), 3, 1)), "\n")),
		chain, corelog.Disabled)
	require.NoError(t, err)
	assert.Zero(t, stats.accepted)
}

func TestDaemonRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.Archive.Enabled = true
	cfg.Archive.DBType = "boltdb"
	params := cfg.NetParams()

	best := feedHeaders(params.GenesisHash, 12, params.PowLimitBits)
	side := feedHeaders(best[5].BlockHash(), 2, params.PowLimitBits)
	lines := append(hexLines(best), hexLines(side)...)

	cfg.Feed = filepath.Join(cfg.DataDir, "feed.txt")
	require.NoError(t, os.WriteFile(cfg.Feed, []byte(strings.Join(lines, "\n")), 0600))

	d, err := newDaemon(cfg, corelog.Disabled)
	require.NoError(t, err)
	assert.FileExists(t, cfg.HeadersFile)
	assert.Equal(t, 1, d.chain.Size())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- d.run(ctx)
	}()

	require.Eventually(t, func() bool {
		return d.chain.Size() == 15
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	d.close()

	info, err := os.Stat(cfg.HeadersFile)
	require.NoError(t, err)
	assert.Equal(t, int64(13*wire.BlockHeaderLen), info.Size())

	// A restart restores the best chain from the file and the side chain
	// from the archive.
	cfg.Feed = ""
	restarted, err := newDaemon(cfg, corelog.Disabled)
	require.NoError(t, err)
	defer restarted.close()

	assert.Equal(t, 15, restarted.chain.Size())
	assert.Equal(t, best[11].BlockHash(), restarted.chain.BestSnapshot().Hash)
	sideTip := side[1].BlockHash()
	assert.True(t, restarted.chain.HaveHeader(&sideTip))
}

func TestDaemonStdinFeed(t *testing.T) {
	cfg := testConfig(t)
	cfg.Feed = "-"
	params := cfg.NetParams()
	headers := feedHeaders(params.GenesisHash, 3, params.PowLimitBits)

	d, err := newDaemon(cfg, corelog.Disabled)
	require.NoError(t, err)
	d.stdin = strings.NewReader(strings.Join(hexLines(headers), "\n"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- d.run(ctx)
	}()

	require.Eventually(t, func() bool {
		return d.chain.BestSnapshot().Height == 3
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestDaemonMissingFeed(t *testing.T) {
	cfg := testConfig(t)
	cfg.Feed = filepath.Join(cfg.DataDir, "nope.txt")

	d, err := newDaemon(cfg, corelog.Disabled)
	require.NoError(t, err)
	assert.Error(t, d.run(context.Background()))

	// The header file is still written on the way out.
	assert.FileExists(t, cfg.HeadersFile)
}

func TestDaemonCorruptedHeaderFile(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.HeadersFile, []byte{1, 2, 3}, 0600))

	_, err := newDaemon(cfg, corelog.Disabled)
	assert.Error(t, err)
}

func TestDaemonEmptyHeaderFile(t *testing.T) {
	cfg := testConfig(t)
	params := cfg.NetParams()
	require.NoError(t, os.WriteFile(cfg.HeadersFile, nil, 0600))

	d, err := newDaemon(cfg, corelog.Disabled)
	require.NoError(t, err)
	assert.Equal(t, 1, d.chain.Size())
	assert.Equal(t, params.GenesisHash, d.chain.BestSnapshot().Hash)
	d.close()

	info, err := os.Stat(cfg.HeadersFile)
	require.NoError(t, err)
	assert.Equal(t, int64(wire.BlockHeaderLen), info.Size())
}

func TestDaemonEmptyHeaderFileWithArchive(t *testing.T) {
	cfg := testConfig(t)
	cfg.Archive.Enabled = true
	cfg.Archive.DBType = "boltdb"
	params := cfg.NetParams()
	headers := feedHeaders(params.GenesisHash, 4, params.PowLimitBits)

	d, err := newDaemon(cfg, corelog.Disabled)
	require.NoError(t, err)
	for _, h := range headers {
		_, err := d.chain.ProcessHeader(h)
		require.NoError(t, err)
	}
	d.close()

	// A save interrupted after truncating the file leaves it empty.
	require.NoError(t, os.WriteFile(cfg.HeadersFile, nil, 0600))

	restarted, err := newDaemon(cfg, corelog.Disabled)
	require.NoError(t, err)
	defer restarted.close()

	assert.Equal(t, 5, restarted.chain.Size())
	assert.Equal(t, headers[3].BlockHash(), restarted.chain.BestSnapshot().Hash)

	info, err := os.Stat(cfg.HeadersFile)
	require.NoError(t, err)
	assert.Equal(t, int64(5*wire.BlockHeaderLen), info.Size())
}

func TestMainVersionAndHelp(t *testing.T) {
	assert.NoError(t, headerdbdMain([]string{"-V"}))
	assert.NoError(t, headerdbdMain([]string{"-h"}))
}
