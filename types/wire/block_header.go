// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"gitlab.com/jaxnet/headerdb/types/chainhash"
)

// BlockHeaderLen is the exact number of bytes a serialized block header
// occupies, both on the wire and in a flat header file.
// Version 4 bytes + Timestamp 4 bytes + Bits 4 bytes + Nonce 4 bytes +
// PrevBlock and MerkleRoot hashes.
const BlockHeaderLen = 16 + (chainhash.HashSize * 2)

// BlockHeader defines information about a block and is used in the bitcoin
// block (MsgBlock) and headers (MsgHeaders) messages.
type BlockHeader struct {
	// Version of the block.  This is not the same as the protocol version.
	Version int32

	// Hash of the previous block header in the block chain.
	PrevBlock chainhash.Hash

	// Merkle tree reference to hash of all transactions for the block.
	MerkleRoot chainhash.Hash

	// Time the block was created.  This is, unfortunately, encoded as a
	// uint32 on the wire and therefore is limited to 2106.
	Timestamp time.Time

	// Difficulty target for the block.
	Bits uint32

	// Nonce used to generate the block.
	Nonce uint32
}

// BlockHash computes the block identifier hash for the given block header.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	// Encode the header and double sha256 everything prior to the number of
	// transactions.  Ignore the error returns since there is no way the
	// encode could fail except being out of memory which would cause a
	// run-time panic.
	buf := bytes.NewBuffer(make([]byte, 0, BlockHeaderLen))
	_ = writeBlockHeader(buf, h)

	return chainhash.DoubleHashH(buf.Bytes())
}

// Deserialize decodes a block header from r into the receiver using a format
// that is suitable for long-term storage such as a flat header file.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	// At the current time, there is no difference between the wire encoding
	// and the stable long-term storage format.  As a result, make use of
	// readBlockHeader.
	return readBlockHeader(r, h)
}

// Serialize encodes a block header from r into the receiver using a format
// that is suitable for long-term storage such as a flat header file.
func (h *BlockHeader) Serialize(w io.Writer) error {
	// At the current time, there is no difference between the wire encoding
	// and the stable long-term storage format.  As a result, make use of
	// writeBlockHeader.
	return writeBlockHeader(w, h)
}

// Bytes returns the fixed-size serialized form of the header.
func (h *BlockHeader) Bytes() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, BlockHeaderLen))
	_ = writeBlockHeader(buf, h)
	return buf.Bytes()
}

// Copy creates a copy of a BlockHeader so that the original does not get
// modified when the copy is manipulated.
func (h *BlockHeader) Copy() *BlockHeader {
	clone := *h
	return &clone
}

// NewBlockHeader returns a new BlockHeader using the provided version, previous
// block hash, merkle root hash, difficulty bits, and nonce used to generate the
// block with defaults for the remaining fields.
func NewBlockHeader(version int32, prevHash, merkleRootHash *chainhash.Hash,
	bits uint32, nonce uint32) *BlockHeader {

	// Limit the timestamp to one second precision since the protocol
	// doesn't support better.
	return &BlockHeader{
		Version:    version,
		PrevBlock:  *prevHash,
		MerkleRoot: *merkleRootHash,
		Timestamp:  time.Unix(time.Now().Unix(), 0),
		Bits:       bits,
		Nonce:      nonce,
	}
}

// NewBlockHeaderFromBytes decodes exactly one serialized header.  A buffer of
// any other length is rejected, so a caller never receives a partially
// populated header.
func NewBlockHeaderFromBytes(buf []byte) (*BlockHeader, error) {
	if len(buf) != BlockHeaderLen {
		return nil, fmt.Errorf("wire: block header must be %d bytes, got %d",
			BlockHeaderLen, len(buf))
	}

	var h BlockHeader
	if err := readBlockHeader(bytes.NewReader(buf), &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// readBlockHeader reads a bitcoin block header from r.  See Deserialize for
// decoding block headers stored to disk, such as in a database, as opposed to
// decoding from the wire.
func readBlockHeader(r io.Reader, bh *BlockHeader) error {
	return ReadElements(r, &bh.Version, &bh.PrevBlock, &bh.MerkleRoot,
		(*Uint32Time)(&bh.Timestamp), &bh.Bits, &bh.Nonce)
}

// writeBlockHeader writes a bitcoin block header to w.  See Serialize for
// encoding block headers to be stored to disk, such as in a database, as
// opposed to encoding for the wire.
func writeBlockHeader(w io.Writer, bh *BlockHeader) error {
	sec := uint32(bh.Timestamp.Unix())
	return WriteElements(w, bh.Version, &bh.PrevBlock, &bh.MerkleRoot,
		sec, bh.Bits, bh.Nonce)
}
