// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"encoding/binary"
	"fmt"

	"gitlab.com/jaxnet/headerdb/types/chainhash"
	"gitlab.com/jaxnet/headerdb/types/wire"
)

// headerKeyPrefix starts every header key.
const headerKeyPrefix = 'h'

// HeaderKeyLen is the length of a key produced by HeaderKey.
const HeaderKeyLen = 1 + 4 + chainhash.HashSize

// HeaderKey returns the storage key of a header: the prefix, the big-endian
// height and the hash.  Byte-wise ordering of the keys is height order.
func HeaderKey(height int32, hash *chainhash.Hash) []byte {
	key := make([]byte, HeaderKeyLen)
	key[0] = headerKeyPrefix
	binary.BigEndian.PutUint32(key[1:5], uint32(height))
	copy(key[5:], hash[:])
	return key
}

// HeaderKeyPrefix returns the prefix shared by every header key.
func HeaderKeyPrefix() []byte {
	return []byte{headerKeyPrefix}
}

// DecodeHeaderEntry decodes a stored key and value and checks that the hash
// in the key matches the header.
func DecodeHeaderEntry(key, value []byte) (int32, *wire.BlockHeader, error) {
	if len(key) != HeaderKeyLen || key[0] != headerKeyPrefix {
		str := fmt.Sprintf("malformed header key %x", key)
		return 0, nil, MakeError(ErrCorruption, str, nil)
	}

	header, err := wire.NewBlockHeaderFromBytes(value)
	if err != nil {
		str := fmt.Sprintf("malformed header value for key %x", key)
		return 0, nil, MakeError(ErrCorruption, str, err)
	}

	hash := header.BlockHash()
	if !hash.IsEqual((*chainhash.Hash)(key[5:])) {
		str := fmt.Sprintf("header %v stored under key %x", hash, key)
		return 0, nil, MakeError(ErrCorruption, str, nil)
	}

	return int32(binary.BigEndian.Uint32(key[1:5])), header, nil
}
