// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package headerchain

import (
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gitlab.com/jaxnet/headerdb/node/headerindex"
	"gitlab.com/jaxnet/headerdb/types/chainhash"
)

// DefaultLocatorCacheSize is the number of locators kept when the config
// does not say otherwise.
const DefaultLocatorCacheSize = 64

var (
	locatorCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "headerdb_locator_cache_hits_total",
		Help: "Block locators served from the locator cache",
	})

	locatorCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "headerdb_locator_cache_misses_total",
		Help: "Block locators built because they were not cached",
	})
)

// locatorCache keeps recently built locators by the hash of the header they
// start at.  A locator only depends on the ancestors of its start header
// and on the best chain below the fork point, so extending the best chain
// leaves every entry valid.  Anything that disconnects headers must purge.
type locatorCache struct {
	mu  sync.Mutex
	lru *simplelru.LRU[chainhash.Hash, headerindex.BlockLocator]
}

func newLocatorCache(size int) (*locatorCache, error) {
	lru, err := simplelru.NewLRU[chainhash.Hash, headerindex.BlockLocator](size, nil)
	if err != nil {
		return nil, err
	}
	return &locatorCache{lru: lru}, nil
}

func (c *locatorCache) get(hash chainhash.Hash) (headerindex.BlockLocator, bool) {
	c.mu.Lock()
	locator, ok := c.lru.Get(hash)
	c.mu.Unlock()

	if ok {
		locatorCacheHits.Inc()
	} else {
		locatorCacheMisses.Inc()
	}
	return locator, ok
}

func (c *locatorCache) add(hash chainhash.Hash, locator headerindex.BlockLocator) {
	c.mu.Lock()
	c.lru.Add(hash, locator)
	c.mu.Unlock()
}

func (c *locatorCache) purge() {
	c.mu.Lock()
	c.lru.Purge()
	c.mu.Unlock()
}

func (c *locatorCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
