// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// IMetric metric reader
type IMetric interface {
	Read()
}

// IMetricManager metric manager
type IMetricManager interface {
	Add(metrics ...IMetric)
	Listen(ctx context.Context, route string, port uint16) error
}

// metricsManager reads every registered metric once per interval until the
// context is done.
type metricsManager struct {
	sync.Mutex
	metrics  []IMetric
	interval time.Duration
	gatherer prometheus.Gatherer
}

// Metrics creates metric instance.  A nil gatherer serves the default
// prometheus registry.
func Metrics(ctx context.Context, interval time.Duration, gatherer prometheus.Gatherer) IMetricManager {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	res := &metricsManager{
		interval: interval,
		gatherer: gatherer,
	}

	go res.collector(ctx)
	return res
}

func (m *metricsManager) Add(metrics ...IMetric) {
	m.Lock()
	m.metrics = append(m.metrics, metrics...)
	m.Unlock()
}

func (m *metricsManager) collect() {
	m.Lock()
	metrics := append([]IMetric(nil), m.metrics...)
	m.Unlock()

	for _, v := range metrics {
		v.Read()
	}
}

func (m *metricsManager) collector(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collect()
		}
	}
}

// Listen serves the gathered metrics on route until the context is done.
func (m *metricsManager) Listen(ctx context.Context, route string, port uint16) error {
	mux := http.NewServeMux()
	mux.Handle(route, promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("Serving metrics on %s%s", srv.Addr, route)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "metrics server failed")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "metrics server shutdown")
	}
	return nil
}
