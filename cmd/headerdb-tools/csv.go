// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"gitlab.com/jaxnet/headerdb/node/headerindex"
	"gitlab.com/jaxnet/headerdb/types/chainhash"
	"gitlab.com/jaxnet/headerdb/types/wire"
)

// headerRow is one line of a CSV export.  It holds every header field, so an
// export can be imported again.
type headerRow struct {
	Height     int32          `csv:"height"`
	Hash       chainhash.Hash `csv:"hash"`
	Version    int32          `csv:"version"`
	PrevBlock  chainhash.Hash `csv:"prev_block"`
	MerkleRoot chainhash.Hash `csv:"merkle_root"`
	Timestamp  int64          `csv:"timestamp"`
	Bits       uint32         `csv:"bits"`
	Nonce      uint32         `csv:"nonce"`
	WorkSum    string         `csv:"work_sum"`
}

func newHeaderRow(node *headerindex.HeaderNode) headerRow {
	header := node.Header()
	return headerRow{
		Height:     node.Height(),
		Hash:       node.Hash(),
		Version:    header.Version,
		PrevBlock:  header.PrevBlock,
		MerkleRoot: header.MerkleRoot,
		Timestamp:  header.Timestamp.Unix(),
		Bits:       header.Bits,
		Nonce:      header.Nonce,
		WorkSum:    node.WorkSum().Text(10),
	}
}

func (row *headerRow) header() *wire.BlockHeader {
	return &wire.BlockHeader{
		Version:    row.Version,
		PrevBlock:  row.PrevBlock,
		MerkleRoot: row.MerkleRoot,
		Timestamp:  time.Unix(row.Timestamp, 0),
		Bits:       row.Bits,
		Nonce:      row.Nonce,
	}
}

func writeCSV(path string, nodes []*headerindex.HeaderNode) error {
	rows := make([]headerRow, 0, len(nodes))
	for _, node := range nodes {
		rows = append(rows, newHeaderRow(node))
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Wrap(err, "unable to create csv file")
	}
	defer file.Close()

	return gocsv.MarshalFile(&rows, file)
}

// readCSV decodes an export and checks every row against its hash column.
func readCSV(path string) ([]*wire.BlockHeader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open csv file")
	}
	defer file.Close()

	var rows []headerRow
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, errors.Wrap(err, "unable to parse csv file")
	}

	headers := make([]*wire.BlockHeader, 0, len(rows))
	for i := range rows {
		header := rows[i].header()
		if hash := header.BlockHash(); hash != rows[i].Hash {
			return nil, errors.Errorf("csv row %d: header hashes to %v, row says %v",
				i+1, hash, rows[i].Hash)
		}
		headers = append(headers, header)
	}
	return headers, nil
}
