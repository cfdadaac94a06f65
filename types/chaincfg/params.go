// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"errors"
	"strings"

	btcdcfg "github.com/btcsuite/btcd/chaincfg"
	"gitlab.com/jaxnet/headerdb/types/chainhash"
	"gitlab.com/jaxnet/headerdb/types/wire"
)

// ErrUnknownNet describes an error where the network name is not one of the
// registered networks.
var ErrUnknownNet = errors.New("unknown network")

// Params defines a network by the parameters a header index needs: the
// designated genesis header and its hash.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// Net defines the magic bytes used to identify the network.
	Net wire.BitcoinNet

	// DefaultPort defines the default peer-to-peer port for the network.
	DefaultPort string

	// GenesisHeader defines the first header of the chain.
	GenesisHeader wire.BlockHeader

	// GenesisHash is the starting block hash.
	GenesisHash chainhash.Hash

	// PowLimitBits defines the highest allowed proof of work value for a
	// block in compact form.
	PowLimitBits uint32
}

// NewParams returns parameters for a custom network whose first header is
// genesis.  It is mostly useful for private networks and tests.
func NewParams(name string, net wire.BitcoinNet, genesis *wire.BlockHeader) *Params {
	return &Params{
		Name:          name,
		Net:           net,
		GenesisHeader: *genesis,
		GenesisHash:   genesis.BlockHash(),
		PowLimitBits:  genesis.Bits,
	}
}

// fromBtcd converts the upstream btcd network description into Params.  The
// genesis header is re-encoded through this module's codec so that the hash
// stored in Params is always the one the header index computes.
func fromBtcd(p *btcdcfg.Params) Params {
	h := &p.GenesisBlock.Header
	genesis := wire.BlockHeader{
		Version:    h.Version,
		PrevBlock:  chainhash.Hash(h.PrevBlock),
		MerkleRoot: chainhash.Hash(h.MerkleRoot),
		Timestamp:  h.Timestamp,
		Bits:       h.Bits,
		Nonce:      h.Nonce,
	}

	return Params{
		Name:          p.Name,
		Net:           wire.BitcoinNet(p.Net),
		DefaultPort:   p.DefaultPort,
		GenesisHeader: genesis,
		GenesisHash:   genesis.BlockHash(),
		PowLimitBits:  p.PowLimitBits,
	}
}

var (
	// MainNetParams defines the network parameters for the main Bitcoin network.
	MainNetParams = fromBtcd(&btcdcfg.MainNetParams)

	// TestNet3Params defines the network parameters for the test Bitcoin
	// network (version 3).
	TestNet3Params = fromBtcd(&btcdcfg.TestNet3Params)

	// RegressionNetParams defines the network parameters for the regression
	// test Bitcoin network.
	RegressionNetParams = fromBtcd(&btcdcfg.RegressionNetParams)

	// SimNetParams defines the network parameters for the simulation test
	// Bitcoin network.
	SimNetParams = fromBtcd(&btcdcfg.SimNetParams)
)

// NetName is the name of one of the registered networks.
type NetName string

const (
	NetMainNet  NetName = "mainnet"
	NetTestNet3 NetName = "testnet3"
	NetRegTest  NetName = "regtest"
	NetSimNet   NetName = "simnet"
)

// Params returns the parameters of the named network, or nil when the name is
// not registered.
func (n NetName) Params() *Params {
	switch NetName(strings.ToLower(string(n))) {
	case NetMainNet, "main":
		return &MainNetParams
	case NetTestNet3, "testnet":
		return &TestNet3Params
	case NetRegTest, "regression":
		return &RegressionNetParams
	case NetSimNet:
		return &SimNetParams
	}
	return nil
}

// ParamsByName is like NetName.Params but reports unknown names as an error.
func ParamsByName(name string) (*Params, error) {
	params := NetName(name).Params()
	if params == nil {
		return nil, ErrUnknownNet
	}
	return params, nil
}

// KnownNets returns the canonical names of all registered networks.
func KnownNets() []string {
	return []string{string(NetMainNet), string(NetTestNet3), string(NetRegTest), string(NetSimNet)}
}
