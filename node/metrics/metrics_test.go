// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package metrics

import (
	"context"
	"math"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/jaxnet/headerdb/node/headerchain"
	"gitlab.com/jaxnet/headerdb/types/chaincfg"
	"gitlab.com/jaxnet/headerdb/types/chainhash"
	"gitlab.com/jaxnet/headerdb/types/wire"
)

var metricsGenesis = wire.BlockHeader{
	Version:   1,
	Timestamp: time.Unix(1401292357, 0),
	Bits:      4,
	Nonce:     7,
}

type counterMetric struct {
	reads int32
}

func (c *counterMetric) Read() {
	atomic.AddInt32(&c.reads, 1)
}

func newChain(t *testing.T) *headerchain.HeaderChain {
	params := chaincfg.NewParams("metricstest", wire.SimNet, &metricsGenesis)
	chain, err := headerchain.New(headerchain.Config{
		Params:   params,
		CalcWork: func(bits uint32) *big.Int { return big.NewInt(int64(bits)) },
	})
	require.NoError(t, err)
	return chain
}

func extend(t *testing.T, chain *headerchain.HeaderChain, parent chainhash.Hash, n int, bits uint32, nonce uint32) chainhash.Hash {
	for i := 0; i < n; i++ {
		h := wire.BlockHeader{
			Version:   1,
			PrevBlock: parent,
			Timestamp: time.Unix(1401292357+int64(i), 0),
			Bits:      bits,
			Nonce:     nonce + uint32(i),
		}
		_, err := chain.ProcessHeader(&h)
		require.NoError(t, err)
		parent = h.BlockHash()
	}
	return parent
}

func TestChainMetrics(t *testing.T) {
	chain := newChain(t)
	reg := prometheus.NewRegistry()

	m, err := MetricsOfChain(chain, reg)
	require.NoError(t, err)
	cm := m.(*chainMetrics)

	// Nothing to report before the genesis.
	m.Read()
	assert.Empty(t, cm.metricsByName)

	_, err = chain.ProcessHeader(&metricsGenesis)
	require.NoError(t, err)
	genesis := chain.Params().GenesisHash
	fork := extend(t, chain, genesis, 3, 4, 100)
	extend(t, chain, fork, 2, 4, 200)

	m.Read()
	height := cm.metricsByName["headerdb_best_height"]
	require.NotNil(t, height)
	assert.Equal(t, float64(5), testutil.ToFloat64(height))
	assert.Equal(t, float64(6), testutil.ToFloat64(cm.metricsByName["headerdb_headers_total"]))
	assert.Equal(t, float64(4), testutil.ToFloat64(cm.metricsByName["headerdb_best_bits"]))
	assert.InDelta(t, math.Log2(24), testutil.ToFloat64(cm.metricsByName["headerdb_best_work_log2"]), 1e-9)
	assert.Equal(t, float64(6), testutil.ToFloat64(cm.connected))
	assert.Zero(t, testutil.ToFloat64(cm.reorganizations))

	// A heavier branch from height 3 disconnects the two headers above it.
	extend(t, chain, fork, 1, 20, 300)
	m.Read()
	assert.Equal(t, float64(4), testutil.ToFloat64(cm.metricsByName["headerdb_best_height"]))
	assert.Equal(t, float64(1), testutil.ToFloat64(cm.reorganizations))
	assert.Equal(t, float64(2), testutil.ToFloat64(cm.disconnected))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 8, count)

	// The counters can only be registered once per registry.
	_, err = MetricsOfChain(chain, reg)
	assert.Error(t, err)
}

func TestWorkLog2(t *testing.T) {
	assert.Zero(t, workLog2(nil))
	assert.Zero(t, workLog2(big.NewInt(0)))
	assert.Equal(t, float64(10), workLog2(big.NewInt(1024)))
	assert.InDelta(t, 200.0, workLog2(new(big.Int).Lsh(big.NewInt(1), 200)), 1e-9)
}

func TestCollector(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metric := &counterMetric{}
	manager := Metrics(ctx, 5*time.Millisecond, prometheus.NewRegistry())
	manager.Add(metric)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&metric.reads) >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)
	reads := atomic.LoadInt32(&metric.reads)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, reads, atomic.LoadInt32(&metric.reads))
}

func TestListenStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	manager := Metrics(ctx, time.Hour, prometheus.NewRegistry())

	done := make(chan error, 1)
	go func() {
		done <- manager.Listen(ctx, "/metrics", 0)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}
