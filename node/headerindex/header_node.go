// Copyright (c) 2015-2017 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package headerindex

import (
	"math/big"
	"time"

	"gitlab.com/jaxnet/headerdb/types/chainhash"
	"gitlab.com/jaxnet/headerdb/types/wire"
)

// nodeID is the position of a node in the index arena.
type nodeID int32

// noParent marks the genesis node and an empty best tip.
const noParent nodeID = -1

// HeaderNode represents a header accepted by the index.  The fields are
// assigned once, when the header is accepted, and never change afterwards,
// so a node can be handed to callers without copying.
//
// The parent is stored as an arena position rather than a pointer.  Use
// Index.Parent and Index.Ancestor to walk the tree.
type HeaderNode struct {
	header wire.BlockHeader
	hash   chainhash.Hash

	id     nodeID
	parent nodeID

	// height is the position in the block chain.  Genesis is at height 0.
	height int32

	// work is the amount of work proven by this header alone.
	work *big.Int

	// workSum is the total amount of work in the chain up to and including
	// this node.
	workSum *big.Int
}

// Hash returns the double sha256 of the header.
func (node *HeaderNode) Hash() chainhash.Hash { return node.hash }

// PrevHash returns the hash of the parent header.
func (node *HeaderNode) PrevHash() chainhash.Hash { return node.header.PrevBlock }

// Height returns the height of the node.
func (node *HeaderNode) Height() int32 { return node.height }

// Bits returns the compact difficulty target of the header.
func (node *HeaderNode) Bits() uint32 { return node.header.Bits }

// Timestamp returns the header timestamp.
func (node *HeaderNode) Timestamp() time.Time { return node.header.Timestamp }

// Work returns the work proven by this header alone.  The returned value
// must not be modified.
func (node *HeaderNode) Work() *big.Int { return node.work }

// WorkSum returns the cumulative work of the chain ending at this node.  The
// returned value must not be modified.
func (node *HeaderNode) WorkSum() *big.Int { return node.workSum }

// Header returns a copy of the block header the node was created from.
func (node *HeaderNode) Header() wire.BlockHeader { return node.header }

// IsGenesis reports whether the node is the root of the tree.
func (node *HeaderNode) IsGenesis() bool { return node.parent == noParent }
