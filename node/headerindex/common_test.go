// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package headerindex

import (
	"math/big"
	"testing"
	"time"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/require"
	"gitlab.com/jaxnet/headerdb/types/chaincfg"
	"gitlab.com/jaxnet/headerdb/types/chainhash"
	"gitlab.com/jaxnet/headerdb/types/wire"
)

// unitTestGenesis is the root of every test chain.  Its bits double as its
// work under bitsWork.
var unitTestGenesis = wire.BlockHeader{
	Version:   1,
	Timestamp: time.Unix(1231006505, 0),
	Bits:      10,
}

var unitTestParams = chaincfg.NewParams("unittest", wire.SimNet, &unitTestGenesis)

// bitsWork treats the difficulty bits as the work itself, so test chains can
// state their work directly.
func bitsWork(bits uint32) *big.Int {
	return big.NewInt(int64(bits))
}

// chainGen builds headers with unique hashes on top of arbitrary parents.
type chainGen struct {
	t     *testing.T
	idx   *Index
	nonce uint32
	fz    *fuzz.Fuzzer
}

func newChainGen(t *testing.T) *chainGen {
	idx := NewWithWork(unitTestParams, bitsWork)
	report, err := idx.Add(&unitTestGenesis)
	require.NoError(t, err)
	require.Equal(t, 1, report.Connected)

	return &chainGen{t: t, idx: idx, fz: fuzz.New().NilChance(0)}
}

// header returns a header on top of parent proving work.
func (g *chainGen) header(parent chainhash.Hash, work uint32) *wire.BlockHeader {
	g.nonce++
	h := &wire.BlockHeader{
		Version:   1,
		PrevBlock: parent,
		Timestamp: time.Unix(1231006505+int64(g.nonce)*600, 0),
		Bits:      work,
		Nonce:     g.nonce,
	}
	g.fz.Fuzz(&h.MerkleRoot)
	return h
}

// add creates a header on top of parent, adds it and returns its node.
func (g *chainGen) add(parent *HeaderNode, work uint32) (*HeaderNode, ReorgReport) {
	h := g.header(parent.Hash(), work)
	report, err := g.idx.Add(h)
	require.NoError(g.t, err)

	hash := h.BlockHash()
	node := g.idx.LookupNode(&hash)
	require.NotNil(g.t, node)
	return node, report
}

// extend adds n headers of the given work on top of parent and returns the
// last one.
func (g *chainGen) extend(parent *HeaderNode, n int, work uint32) *HeaderNode {
	for i := 0; i < n; i++ {
		parent, _ = g.add(parent, work)
	}
	return parent
}

func (g *chainGen) genesis() *HeaderNode {
	return g.idx.NodeByHeight(0)
}

// requireBestChain checks that the height index holds exactly the ancestors
// of the best tip.
func requireBestChain(t *testing.T, idx *Index) {
	t.Helper()

	tip := idx.BestTip()
	require.NotNil(t, tip)
	require.Len(t, idx.heights, int(tip.Height())+1)

	for node := tip; node != nil; node = idx.Parent(node) {
		require.Same(t, node, idx.NodeByHeight(node.Height()), "height %d", node.Height())
	}
	require.Nil(t, idx.NodeByHeight(tip.Height()+1))
}
