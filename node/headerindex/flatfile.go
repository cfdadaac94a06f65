// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package headerindex

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"gitlab.com/jaxnet/headerdb/types/wire"
)

// Load reads a header file and adds every record to the index in file order.
// The file is a plain sequence of serialized headers, root to tip, so its
// size must be a multiple of wire.BlockHeaderLen.
//
// Loading stops at the first record that can't be added and the error is
// returned.  Records added before it stay in the index.
func (idx *Index) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "unable to open header file")
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return errors.Wrap(err, "unable to stat header file")
	}
	if info.Size()%wire.BlockHeaderLen != 0 {
		str := fmt.Sprintf("header file %s has size %d which is not a multiple of %d",
			path, info.Size(), wire.BlockHeaderLen)
		return ruleError(ErrCorruptedStore, str)
	}

	n, err := idx.readRecords(bufio.NewReader(file))
	log.Info().Msgf("Loaded %d headers from %s", n, path)
	return err
}

// ReadFrom adds every record read from r until EOF.  A trailing partial
// record is reported as ErrCorruptedStore.  It implements io.ReaderFrom.
func (idx *Index) ReadFrom(r io.Reader) (int64, error) {
	n, err := idx.readRecords(r)
	return int64(n) * wire.BlockHeaderLen, err
}

func (idx *Index) readRecords(r io.Reader) (int, error) {
	buf := make([]byte, wire.BlockHeaderLen)
	for n := 0; ; n++ {
		_, err := io.ReadFull(r, buf)
		switch {
		case err == io.EOF:
			return n, nil
		case err == io.ErrUnexpectedEOF:
			str := fmt.Sprintf("truncated header record at offset %d",
				n*wire.BlockHeaderLen)
			return n, ruleError(ErrCorruptedStore, str)
		case err != nil:
			return n, errors.Wrapf(err, "unable to read header record at offset %d",
				n*wire.BlockHeaderLen)
		}

		if _, err := idx.AddBytes(buf); err != nil {
			return n, errors.Wrapf(err, "header record at offset %d",
				n*wire.BlockHeaderLen)
		}
	}
}

// Save writes the best chain, root to tip, to a newly created or truncated
// file.  Side chains are not saved.
func (idx *Index) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "unable to create header file")
	}

	w := bufio.NewWriter(file)
	n, err := idx.WriteTo(w)
	if err == nil {
		err = w.Flush()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return errors.Wrapf(err, "unable to write header file %s", path)
	}

	log.Info().Msgf("Saved %d headers to %s", n/wire.BlockHeaderLen, path)
	return nil
}

// WriteTo serializes the best chain, root to tip, to w.  It implements
// io.WriterTo.
func (idx *Index) WriteTo(w io.Writer) (int64, error) {
	var chain []*HeaderNode
	for node := idx.BestTip(); node != nil; node = idx.Parent(node) {
		chain = append(chain, node)
	}

	var written int64
	for i := len(chain) - 1; i >= 0; i-- {
		if err := chain[i].header.Serialize(w); err != nil {
			return written, err
		}
		written += wire.BlockHeaderLen
	}
	return written, nil
}
