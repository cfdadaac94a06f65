// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package headerchain

import (
	"math/big"
	"time"

	"gitlab.com/jaxnet/headerdb/node/headerindex"
	"gitlab.com/jaxnet/headerdb/types/chainhash"
)

// BestState houses information about the current best header and other info
// related to the state of the main chain as it exists from the point of view
// of the current best header.
//
// The BestSnapshot method can be used to obtain access to this information
// in a concurrent safe manner and the data will not be changed out from under
// the caller when chain state changes occur as the function name implies.
// However, the returned snapshot must be treated as immutable since it is
// shared by all callers.
type BestState struct {
	Hash      chainhash.Hash // The hash of the header.
	Height    int32          // The height of the header.
	Bits      uint32         // The difficulty bits of the header.
	Timestamp time.Time      // The timestamp of the header.
	WorkSum   *big.Int       // The cumulative work of the best chain.
	Size      int            // The number of known headers, side chains included.
}

// newBestState returns a new best stats instance for the given tip.
func newBestState(tip *headerindex.HeaderNode, size int) *BestState {
	return &BestState{
		Hash:      tip.Hash(),
		Height:    tip.Height(),
		Bits:      tip.Bits(),
		Timestamp: tip.Timestamp(),
		WorkSum:   new(big.Int).Set(tip.WorkSum()),
		Size:      size,
	}
}
