// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package headerindex

import (
	"fmt"

	"gitlab.com/jaxnet/headerdb/types/chainhash"
)

// locatorDenseEntries is the number of ancestors added one by one before the
// step starts doubling.
const locatorDenseEntries = 10

// BlockLocator is used to help locate a specific header.  The algorithm for
// building the locator is to add the hashes in reverse order until the
// genesis is reached.  In order to keep the list of locator hashes to a
// reasonable number of entries, first the most recent 10 hashes are added one
// by one, then the step is doubled each loop iteration to exponentially
// decrease the number of hashes as a function of the distance from the
// header being located.  The genesis hash is always the last entry.
//
// For example, for a best chain of height 30 the locator holds the hashes at
// heights:
//
//	[30 29 28 27 26 25 24 23 22 21 20 18 14 6 0]
//
// A chain that is short enough for the step to land on height 0 does not
// produce the genesis twice, the loop stops before height 0 and the genesis
// is appended once.
type BlockLocator []*chainhash.Hash

// LatestLocator returns a block locator for the best tip.
func (idx *Index) LatestLocator() (BlockLocator, error) {
	return idx.Locator(nil)
}

// Locator returns a block locator for the passed node.  A nil node means the
// best tip.  Entries are ancestors of node, so a node on a side chain gets
// the hashes of its own branch down to the fork point followed by best chain
// hashes.
//
// ErrCorruptedStore is returned when the index is empty or when the best
// chain does not start at the network genesis.
func (idx *Index) Locator(node *HeaderNode) (BlockLocator, error) {
	genesis := idx.NodeByHeight(0)
	if genesis == nil {
		return nil, ruleError(ErrCorruptedStore, "index has no genesis header")
	}
	if genesis.hash != idx.params.GenesisHash {
		str := fmt.Sprintf("best chain starts at %v instead of the %s genesis %v",
			genesis.hash, idx.params.Name, idx.params.GenesisHash)
		return nil, ruleError(ErrCorruptedStore, str)
	}

	if node == nil {
		node = idx.BestTip()
	}

	locator := make(BlockLocator, 0, locatorDenseEntries+bitLen(node.height)+1)
	step := int32(1)
	cursor := node
	for height, start := node.height, 0; height > 0; height, start = height-step, start+1 {
		if start >= locatorDenseEntries {
			step *= 2
		}

		cursor = idx.Ancestor(cursor, height)
		hash := cursor.hash
		locator = append(locator, &hash)
	}

	hash := genesis.hash
	locator = append(locator, &hash)
	return locator, nil
}

// FindFork returns the most recent header of the locator that is part of the
// best chain.  When none of the hashes are known the genesis is returned, and
// nil is returned only for an empty index.
func (idx *Index) FindFork(locator BlockLocator) *HeaderNode {
	for _, hash := range locator {
		node := idx.LookupNode(hash)
		if idx.Contains(node) {
			return node
		}
	}
	return idx.NodeByHeight(0)
}

func bitLen(height int32) int {
	n := 0
	for ; height > 0; height >>= 1 {
		n++
	}
	return n
}
