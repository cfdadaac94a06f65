// Copyright (c) 2014-2017 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pow

import (
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/stretchr/testify/assert"
)

// TestCompactToBig ensures CompactToBig converts numbers using the compact
// representation to the expected big integers.
func TestCompactToBig(t *testing.T) {
	tests := []struct {
		in  uint32
		out int64
	}{
		{10000000, 0},
	}

	for x, test := range tests {
		n := CompactToBig(test.in)
		want := big.NewInt(test.out)
		if n.Cmp(want) != 0 {
			t.Errorf("TestCompactToBig test #%d failed: got %d want %d\n",
				x, n.Int64(), want.Int64())
			return
		}
	}
}

func TestCompactToBigMatchesBtcd(t *testing.T) {
	for _, bits := range []uint32{0x1d00ffff, 0x207fffff, 0x1b0404cb, 0x170e1b4f, 0x01003456, 0x04923456} {
		assert.Equal(t, 0, blockchain.CompactToBig(bits).Cmp(CompactToBig(bits)), "bits %08x", bits)
	}
}

// TestCalcWork ensures CalcWork calculates the expected work value from values
// in compact representation and agrees with btcd.
func TestCalcWork(t *testing.T) {
	tests := []struct {
		in  uint32
		out int64
	}{
		{10000000, 0},
	}

	for x, test := range tests {
		bits := test.in

		r := CalcWork(bits)
		if r.Int64() != test.out {
			t.Errorf("TestCalcWork test #%d failed: got %v want %d\n",
				x, r.Int64(), test.out)
			return
		}
	}

	for _, bits := range []uint32{0x1d00ffff, 0x207fffff, 0x1b0404cb, 0x170e1b4f, 0x01003456, 0x04923456} {
		assert.Equal(t, 0, blockchain.CalcWork(bits).Cmp(CalcWork(bits)), "bits %08x", bits)
	}

	// Genesis difficulty (0x1d00ffff) is worth 0x100010001 hashes.
	assert.Equal(t, int64(0x100010001), CalcWork(0x1d00ffff).Int64())

	// Negative targets carry no work.
	assert.Equal(t, 0, CalcWork(0x01810000).Sign())
}
