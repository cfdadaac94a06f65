// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gitlab.com/jaxnet/headerdb/node/headerchain"
	"gitlab.com/jaxnet/headerdb/node/headerindex"
)

type feedStats struct {
	accepted   int
	duplicates int
	rejected   int
}

// readFeed processes hex encoded headers, one per line, until r is exhausted
// or the context is canceled.  Blank lines and lines starting with # are
// skipped.  Headers that can't be decoded or linked are logged and skipped.
func readFeed(ctx context.Context, r io.Reader, chain *headerchain.HeaderChain,
	log zerolog.Logger) (feedStats, error) {

	var stats feedStats
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		if ctx.Err() != nil {
			return stats, nil
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		raw, err := hex.DecodeString(text)
		if err != nil {
			log.Warn().Int("line", line).Err(err).Msg("Skipping malformed feed line")
			stats.rejected++
			continue
		}

		_, err = chain.ProcessHeaderBytes(raw)
		switch {
		case err == nil:
			stats.accepted++
		case headerindex.IsErrorCode(err, headerindex.ErrDuplicateHeader):
			stats.duplicates++
		default:
			log.Warn().Int("line", line).Err(err).Msg("Header rejected")
			stats.rejected++
		}
	}

	return stats, errors.Wrap(scanner.Err(), "unable to read header feed")
}
