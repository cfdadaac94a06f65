// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package metrics

import (
	"math"
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"gitlab.com/jaxnet/headerdb/node/headerchain"
	"gitlab.com/jaxnet/headerdb/types/chaincfg"
)

const namespace = "headerdb"

// chainSource is the part of headerchain.HeaderChain the metrics read.
type chainSource interface {
	Params() *chaincfg.Params
	BestSnapshot() *headerchain.BestState
	Subscribe(callback headerchain.NotificationCallback)
}

type chainMetrics struct {
	sync.Mutex
	metricsByName map[string]prometheus.Gauge
	registerer    prometheus.Registerer
	netName       string

	chain chainSource

	reorganizations prometheus.Counter
	disconnected    prometheus.Counter
	connected       prometheus.Counter
}

// MetricsOfChain returns the gauges of the best chain.  Gauges are refreshed
// on Read, the reorganization counters follow chain notifications.  A nil
// registerer uses the default prometheus registry.
func MetricsOfChain(chain chainSource, registerer prometheus.Registerer) (IMetric, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	s := &chainMetrics{
		chain:         chain,
		registerer:    registerer,
		netName:       chain.Params().Name,
		metricsByName: make(map[string]prometheus.Gauge),
	}

	labels := prometheus.Labels{"net_name": s.netName}
	s.reorganizations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        "reorganizations_total",
		Help:        "Best chain switches that disconnected headers",
		ConstLabels: labels,
	})
	s.disconnected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        "disconnected_headers_total",
		Help:        "Headers removed from the best chain by reorganizations",
		ConstLabels: labels,
	})
	s.connected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        "connected_headers_total",
		Help:        "Headers added to the best chain",
		ConstLabels: labels,
	})
	for _, c := range []prometheus.Collector{s.reorganizations, s.disconnected, s.connected} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}

	chain.Subscribe(s.onNotification)
	return s, nil
}

func (s *chainMetrics) onNotification(n *headerchain.Notification) {
	change, ok := n.Data.(*headerchain.TipChange)
	if !ok {
		return
	}

	switch n.Type {
	case headerchain.NTChainTipChanged:
		s.connected.Add(float64(change.Report.Connected))
	case headerchain.NTReorganization:
		s.reorganizations.Inc()
		s.disconnected.Add(float64(change.Report.Disconnected))
	}
}

func (s *chainMetrics) Read() {
	snapshot := s.chain.BestSnapshot()
	if snapshot == nil {
		return
	}

	s.updateGauge(prometheus.BuildFQName(namespace, "best", "height"), float64(snapshot.Height))
	s.updateGauge(prometheus.BuildFQName(namespace, "headers", "total"), float64(snapshot.Size))
	s.updateGauge(prometheus.BuildFQName(namespace, "best", "bits"), float64(snapshot.Bits))
	s.updateGauge(prometheus.BuildFQName(namespace, "best", "timestamp"), float64(snapshot.Timestamp.Unix()))
	s.updateGauge(prometheus.BuildFQName(namespace, "best", "work_log2"), workLog2(snapshot.WorkSum))
}

func (s *chainMetrics) updateGauge(name string, value float64) {
	s.Lock()
	defer s.Unlock()

	m, ok := s.metricsByName[name]
	if !ok {
		m = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: name,
			ConstLabels: map[string]string{
				"net_name": s.netName,
			},
		})
		if err := s.registerer.Register(m); err != nil {
			log.Error().Err(err).Str("metric", name).Msg("can't register metric")
			return
		}
		s.metricsByName[name] = m
	}
	m.Set(value)
}

// workLog2 returns log2 of the cumulative work, which keeps 256-bit values
// readable on a dashboard.
func workLog2(work *big.Int) float64 {
	if work == nil || work.Sign() <= 0 {
		return 0
	}
	f, _ := new(big.Float).SetInt(work).Float64()
	return math.Log2(f)
}
