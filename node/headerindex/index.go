// Copyright (c) 2015-2017 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package headerindex

import (
	"fmt"
	"math/big"

	"gitlab.com/jaxnet/headerdb/types/chaincfg"
	"gitlab.com/jaxnet/headerdb/types/chainhash"
	"gitlab.com/jaxnet/headerdb/types/pow"
	"gitlab.com/jaxnet/headerdb/types/wire"
)

// WorkFunc converts the compact difficulty bits of a header into the amount
// of work the header proves.
type WorkFunc func(bits uint32) *big.Int

// ReorgReport describes how the best chain changed after a header was added.
// A zero report means the best chain did not change.
type ReorgReport struct {
	// OldBest is the tip before the change.  It is nil when the added
	// header was the genesis.
	OldBest *HeaderNode

	// Connected is the number of headers of the new best chain above the
	// fork point.
	Connected int

	// Disconnected is the number of headers of the old best chain above
	// the fork point.
	Disconnected int
}

// BestChanged reports whether the added header became the new best tip.
func (r ReorgReport) BestChanged() bool {
	return r.Connected > 0 || r.Disconnected > 0
}

// IsReorganization reports whether headers were removed from the best chain.
func (r ReorgReport) IsReorganization() bool {
	return r.Disconnected > 0
}

// Index keeps every accepted header in memory and tracks the chain with the
// most cumulative work.  Although the name suggests a single chain, the
// headers form a tree rooted at the network genesis and any node can have
// multiple children.  Only one branch, the best chain, is projected onto the
// height index.
//
// Side chains are never pruned, so a fork that was overtaken can still be
// looked up by hash and extended later.
//
// Index is NOT safe for concurrent access.  Callers that share it between
// goroutines must serialize every call with a single lock.
type Index struct {
	// The following fields are set when the instance is created and can't
	// be changed afterwards.
	params   *chaincfg.Params
	calcWork WorkFunc

	// nodes is the arena owning every accepted node.  A nodeID is a
	// position in it.
	nodes []*HeaderNode
	index map[chainhash.Hash]nodeID

	// heights holds the best chain, indexed by height.  It is always
	// exactly best.height+1 entries long.
	heights []nodeID
	best    nodeID
}

// New returns an empty index for the network described by params.  Work is
// derived from the difficulty bits with pow.CalcWork.
func New(params *chaincfg.Params) *Index {
	return NewWithWork(params, pow.CalcWork)
}

// NewWithWork returns an empty index that uses calcWork to measure the work
// of every header.
func NewWithWork(params *chaincfg.Params, calcWork WorkFunc) *Index {
	return &Index{
		params:   params,
		calcWork: calcWork,
		index:    make(map[chainhash.Hash]nodeID),
		best:     noParent,
	}
}

// Params returns the network parameters the index was created with.
func (idx *Index) Params() *chaincfg.Params {
	return idx.params
}

// Size returns the number of accepted headers, side chains included.
func (idx *Index) Size() int {
	return len(idx.nodes)
}

// BestTip returns the tip of the best chain, or nil when the index is empty.
func (idx *Index) BestTip() *HeaderNode {
	return idx.node(idx.best)
}

// HaveHeader returns whether or not the index contains the provided hash.
func (idx *Index) HaveHeader(hash *chainhash.Hash) bool {
	_, ok := idx.index[*hash]
	return ok
}

// LookupNode returns the node identified by the provided hash.  It will
// return nil if there is no entry for the hash.
func (idx *Index) LookupNode(hash *chainhash.Hash) *HeaderNode {
	id, ok := idx.index[*hash]
	if !ok {
		return nil
	}
	return idx.nodes[id]
}

// NodeByHeight returns the best chain node at the provided height, or nil if
// the height is above the tip or negative.
func (idx *Index) NodeByHeight(height int32) *HeaderNode {
	if height < 0 || int(height) >= len(idx.heights) {
		return nil
	}
	return idx.nodes[idx.heights[height]]
}

// Contains returns whether the node is part of the best chain.
func (idx *Index) Contains(node *HeaderNode) bool {
	return node != nil && idx.NodeByHeight(node.height) == node
}

// Parent returns the parent of node, or nil for the genesis.
func (idx *Index) Parent(node *HeaderNode) *HeaderNode {
	return idx.node(node.parent)
}

// Ancestor returns the ancestor of node at the provided height by following
// the chain backwards.  It returns nil when the height is negative or above
// the height of node.
func (idx *Index) Ancestor(node *HeaderNode, height int32) *HeaderNode {
	if height < 0 || height > node.height {
		return nil
	}

	// The best chain is indexed by height, use it once the walk reaches it.
	n := node
	for n != nil && n.height != height {
		if idx.Contains(n) {
			return idx.NodeByHeight(height)
		}
		n = idx.node(n.parent)
	}
	return n
}

func (idx *Index) node(id nodeID) *HeaderNode {
	if id == noParent {
		return nil
	}
	return idx.nodes[id]
}

// AddBytes decodes one serialized header and adds it to the index.
func (idx *Index) AddBytes(buf []byte) (ReorgReport, error) {
	header, err := wire.NewBlockHeaderFromBytes(buf)
	if err != nil {
		return ReorgReport{}, err
	}
	return idx.Add(header)
}

// Add links header to its parent, measures the cumulative work of the chain
// it ends, and makes it the best tip if that work is strictly greater than
// the work of the current tip.  Ties keep the current tip.
//
// The header is retained even when it does not become the best tip.  On any
// error the index is left unmodified.
func (idx *Index) Add(header *wire.BlockHeader) (ReorgReport, error) {
	hash := header.BlockHash()
	if _, exists := idx.index[hash]; exists {
		str := fmt.Sprintf("already have header %v", hash)
		return ReorgReport{}, ruleError(ErrDuplicateHeader, str)
	}

	node := &HeaderNode{
		header: *header,
		hash:   hash,
		id:     nodeID(len(idx.nodes)),
		parent: noParent,
		work:   idx.calcWork(header.Bits),
	}

	var bestChain bool
	if len(idx.nodes) == 0 {
		if hash != idx.params.GenesisHash {
			str := fmt.Sprintf("first header %v is not the %s genesis %v",
				hash, idx.params.Name, idx.params.GenesisHash)
			return ReorgReport{}, ruleError(ErrInvalidGenesis, str)
		}

		node.workSum = new(big.Int).Set(node.work)
		bestChain = true
	} else {
		parentID, ok := idx.index[header.PrevBlock]
		if !ok {
			str := fmt.Sprintf("previous header %v of %v is unknown",
				header.PrevBlock, hash)
			return ReorgReport{}, ruleError(ErrOrphanHeader, str)
		}

		parent := idx.nodes[parentID]
		node.parent = parentID
		node.height = parent.height + 1
		node.workSum = new(big.Int).Add(parent.workSum, node.work)
		bestChain = node.workSum.Cmp(idx.BestTip().workSum) > 0
	}

	idx.nodes = append(idx.nodes, node)
	idx.index[hash] = node.id

	if !bestChain {
		log.Debug().Msgf("Header %v (height %d) accepted on a side chain", hash, node.height)
		return ReorgReport{}, nil
	}

	report := idx.reorganize(node)
	log.Debug().Msgf("Header %v (height %d) is the new best tip", hash, node.height)
	return report, nil
}

// Diff returns the report of switching the best tip from oldTip to newTip:
// the number of headers above their fork point on each branch.  A nil oldTip
// counts every header of the new branch as connected.
func (idx *Index) Diff(oldTip, newTip *HeaderNode) ReorgReport {
	report, _ := idx.diff(oldTip, newTip)
	return report
}

// diff walks both tips back to their common ancestor and returns it along with
// the report.
func (idx *Index) diff(oldBest, newBest *HeaderNode) (ReorgReport, *HeaderNode) {
	report := ReorgReport{OldBest: oldBest}
	if oldBest == nil {
		for ; newBest != nil; newBest = idx.node(newBest.parent) {
			report.Connected++
		}
		return report, nil
	}

	// Bring the new chain down to the height of the old tip.
	for newBest != nil && newBest.height > oldBest.height {
		newBest = idx.node(newBest.parent)
		report.Connected++
	}

	// The new tip can be lower than the old one when it carries more work
	// on fewer headers.
	for oldBest != nil && newBest != nil && oldBest.height > newBest.height {
		oldBest = idx.node(oldBest.parent)
		report.Disconnected++
	}

	// Same height, walk both back until they meet at the fork point.
	for oldBest != nil && newBest != nil && oldBest != newBest {
		newBest = idx.node(newBest.parent)
		report.Connected++

		oldBest = idx.node(oldBest.parent)
		report.Disconnected++
	}

	return report, newBest
}

// reorganize makes tip the best tip and rewrites the part of the height index
// that differs between the old and the new best chain.
func (idx *Index) reorganize(tip *HeaderNode) ReorgReport {
	report, fork := idx.diff(idx.BestTip(), tip)

	shuf := report.Connected
	if report.Disconnected > shuf {
		shuf = report.Disconnected
	}

	idx.best = tip.id
	idx.rewriteHeights(tip, shuf)

	if report.Disconnected > 0 {
		log.Info().Msgf("REORGANIZE: Chain forks at %v (height %v)", fork.hash, fork.height)
		log.Info().Msgf("REORGANIZE: Old best chain head was %v (height %v)",
			report.OldBest.hash, report.OldBest.height)
		log.Info().Msgf("REORGANIZE: New best chain head is %v (height %v)", tip.hash, tip.height)
		log.Info().Msgf("REORGANIZE: Disconnected %d, connected %d headers",
			report.Disconnected, report.Connected)
	}

	return report
}

// rewriteHeights resizes the height index to the new tip and assigns the
// ancestors of tip to the topmost shuf heights.  Entries below that window
// are shared by the old and the new best chain.
func (idx *Index) rewriteHeights(tip *HeaderNode, shuf int) {
	size := int(tip.height) + 1
	if size <= len(idx.heights) {
		idx.heights = idx.heights[:size]
	} else {
		for len(idx.heights) < size {
			idx.heights = append(idx.heights, noParent)
		}
	}

	ptr := tip
	for height := int(tip.height); height > int(tip.height)-shuf && height >= 0; height-- {
		idx.heights[height] = ptr.id
		ptr = idx.node(ptr.parent)
	}
}

// BestChain returns the nodes of the best chain from genesis to the tip.
func (idx *Index) BestChain() []*HeaderNode {
	chain := make([]*HeaderNode, 0, len(idx.heights))
	for _, id := range idx.heights {
		chain = append(chain, idx.nodes[id])
	}
	return chain
}
