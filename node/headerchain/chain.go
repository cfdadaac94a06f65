// Copyright (c) 2013-2018 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package headerchain

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"gitlab.com/jaxnet/headerdb/database"
	"gitlab.com/jaxnet/headerdb/node/headerindex"
	"gitlab.com/jaxnet/headerdb/types/chaincfg"
	"gitlab.com/jaxnet/headerdb/types/chainhash"
	"gitlab.com/jaxnet/headerdb/types/pow"
	"gitlab.com/jaxnet/headerdb/types/wire"
)

// MaxHeadersPerLocate is the most headers LocateHeaders returns in one call.
const MaxHeadersPerLocate = 2000

// ErrNotInMainChain signifies that a header hash or height that is not in the
// main chain was requested.
type ErrNotInMainChain string

// Error implements the error interface.
func (e ErrNotInMainChain) Error() string {
	return string(e)
}

// IsNotInMainChainErr returns whether or not the passed error is an
// ErrNotInMainChain error.
func IsNotInMainChainErr(err error) bool {
	_, ok := errors.Cause(err).(ErrNotInMainChain)
	return ok
}

// Config is a descriptor which specifies the header chain instance
// configuration.
type Config struct {
	// Params identifies which chain parameters the chain is associated
	// with.
	//
	// This field is required.
	Params *chaincfg.Params

	// CalcWork measures the work of a header from its difficulty bits.
	// pow.CalcWork is used when it is nil.
	CalcWork headerindex.WorkFunc

	// Archive, when set, receives every accepted header, side chains
	// included.
	Archive database.Archive

	// LocatorCacheSize is the number of block locators to keep.  Zero
	// selects DefaultLocatorCacheSize.
	LocatorCacheSize int
}

// HeaderChain provides concurrent safe access to a header index.  Every
// mutation holds the chain lock exclusively, reads share it.
type HeaderChain struct {
	// The following fields are set when the instance is created and can't
	// be changed afterwards, so there is no need to protect them with a
	// separate mutex.
	params   *chaincfg.Params
	archive  database.Archive
	locators *locatorCache

	// chainLock protects concurrent access to the index.
	chainLock sync.RWMutex
	index     *headerindex.Index

	// stateSnapshot is replaced, never modified, on every best tip change.
	stateLock     sync.RWMutex
	stateSnapshot *BestState

	// The notifications field stores a slice of callbacks to be executed on
	// certain chain events.
	notificationsLock sync.RWMutex
	notifications     []NotificationCallback

	// dispatchLock is taken before the chain lock is released, so tip
	// changes are delivered in the order they were made.
	dispatchLock sync.Mutex
}

// New returns an empty header chain.  Load a header file or process the
// network genesis before using it.
func New(config Config) (*HeaderChain, error) {
	if config.Params == nil {
		return nil, errors.New("header chain parameters are required")
	}

	calcWork := config.CalcWork
	if calcWork == nil {
		calcWork = pow.CalcWork
	}

	cacheSize := config.LocatorCacheSize
	if cacheSize == 0 {
		cacheSize = DefaultLocatorCacheSize
	}
	locators, err := newLocatorCache(cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create locator cache")
	}

	return &HeaderChain{
		params:   config.Params,
		archive:  config.Archive,
		locators: locators,
		index:    headerindex.NewWithWork(config.Params, calcWork),
	}, nil
}

// Params returns the network parameters of the chain.
func (c *HeaderChain) Params() *chaincfg.Params {
	return c.params
}

// ProcessHeader adds the header to the chain.  See headerindex.Index.Add for
// the selection rules and the returned report.
//
// This function is safe for concurrent access.
func (c *HeaderChain) ProcessHeader(header *wire.BlockHeader) (headerindex.ReorgReport, error) {
	c.chainLock.Lock()
	report, err := c.index.Add(header)
	if err != nil {
		c.chainLock.Unlock()
		return report, err
	}

	if c.archive != nil {
		hash := header.BlockHash()
		node := c.index.LookupNode(&hash)
		if err := c.archive.PutHeader(node.Height(), header); err != nil {
			log.Warn().Msgf("Error archiving header %v: %v", hash, err)
		}
	}

	var change *TipChange
	if report.BestChanged() {
		change = c.updateBestState(report)
	}
	c.unlockAndNotify(change)
	return report, nil
}

// ProcessHeaderBytes decodes a serialized header and processes it.
//
// This function is safe for concurrent access.
func (c *HeaderChain) ProcessHeaderBytes(buf []byte) (headerindex.ReorgReport, error) {
	header, err := wire.NewBlockHeaderFromBytes(buf)
	if err != nil {
		return headerindex.ReorgReport{}, err
	}
	return c.ProcessHeader(header)
}

// updateBestState refreshes the snapshot after the tip changed and drops
// cached locators that may reference disconnected headers.
//
// This function MUST be called with the chain lock held (for writes).
func (c *HeaderChain) updateBestState(report headerindex.ReorgReport) *TipChange {
	if report.IsReorganization() {
		c.locators.purge()
	}

	state := newBestState(c.index.BestTip(), c.index.Size())
	c.stateLock.Lock()
	c.stateSnapshot = state
	c.stateLock.Unlock()

	return &TipChange{Tip: state, Report: report}
}

// refreshAfterBulkLoad replaces the snapshot after headers were added without
// reports and notifies subscribers when the tip moved.
//
// This function MUST be called with the chain lock held (for writes).
func (c *HeaderChain) refreshAfterBulkLoad(oldTip *headerindex.HeaderNode) *TipChange {
	tip := c.index.BestTip()
	if tip == nil || tip == oldTip {
		return nil
	}

	return c.updateBestState(c.index.Diff(oldTip, tip))
}

// LoadFile adds every header stored in a flat header file.  Headers that are
// already known are an error, so the file is normally loaded into an empty
// chain at startup.
//
// This function is safe for concurrent access.
func (c *HeaderChain) LoadFile(path string) error {
	c.chainLock.Lock()
	oldTip := c.index.BestTip()
	err := c.index.Load(path)
	change := c.refreshAfterBulkLoad(oldTip)
	size := c.index.Size()
	c.unlockAndNotify(change)

	if err != nil {
		return err
	}

	log.Info().Msgf("Header chain holds %d headers after loading %s", size, path)
	return nil
}

// LoadArchive replays the configured archive.  Headers already known, for
// example from a flat file loaded before, are skipped, so side chains that
// the flat file does not hold are restored.
//
// This function is safe for concurrent access.
func (c *HeaderChain) LoadArchive() (int, error) {
	if c.archive == nil {
		return 0, errors.New("no header archive configured")
	}

	c.chainLock.Lock()
	oldTip := c.index.BestTip()
	var added int
	err := c.archive.ForEach(func(height int32, header *wire.BlockHeader) error {
		_, err := c.index.Add(header)
		switch {
		case err == nil:
			added++
			return nil
		case headerindex.IsErrorCode(err, headerindex.ErrDuplicateHeader):
			return nil
		default:
			return errors.Wrapf(err, "archived header at height %d", height)
		}
	})
	change := c.refreshAfterBulkLoad(oldTip)
	c.unlockAndNotify(change)

	log.Info().Msgf("Restored %d headers from the %s archive", added, c.archive.Type())
	return added, err
}

// SaveFile writes the best chain to a flat header file.
//
// This function is safe for concurrent access.
func (c *HeaderChain) SaveFile(path string) error {
	c.chainLock.RLock()
	defer c.chainLock.RUnlock()
	return c.index.Save(path)
}

// BestSnapshot returns information about the current best chain header and
// related state as of the current point in time.  It returns nil before the
// genesis was added.  The returned instance must be treated as immutable
// since it is shared by all callers.
//
// This function is safe for concurrent access.
func (c *HeaderChain) BestSnapshot() *BestState {
	c.stateLock.RLock()
	snapshot := c.stateSnapshot
	c.stateLock.RUnlock()
	return snapshot
}

// Size returns the number of known headers, side chains included.
//
// This function is safe for concurrent access.
func (c *HeaderChain) Size() int {
	c.chainLock.RLock()
	defer c.chainLock.RUnlock()
	return c.index.Size()
}

// HaveHeader returns whether or not the chain knows the header, either on
// the main chain or on a side chain.
//
// This function is safe for concurrent access.
func (c *HeaderChain) HaveHeader(hash *chainhash.Hash) bool {
	c.chainLock.RLock()
	defer c.chainLock.RUnlock()
	return c.index.HaveHeader(hash)
}

// MainChainHasBlock returns whether or not the header with the given hash is
// in the main chain.
//
// This function is safe for concurrent access.
func (c *HeaderChain) MainChainHasBlock(hash *chainhash.Hash) bool {
	c.chainLock.RLock()
	defer c.chainLock.RUnlock()
	return c.index.Contains(c.index.LookupNode(hash))
}

// HeaderByHash returns the header identified by the given hash, which may be
// on a side chain.
//
// This function is safe for concurrent access.
func (c *HeaderChain) HeaderByHash(hash *chainhash.Hash) (wire.BlockHeader, error) {
	c.chainLock.RLock()
	defer c.chainLock.RUnlock()

	node := c.index.LookupNode(hash)
	if node == nil {
		return wire.BlockHeader{}, errors.Errorf("header %s is not known", hash)
	}
	return node.Header(), nil
}

// BlockHeightByHash returns the height of the header with the given hash in
// the main chain.
//
// This function is safe for concurrent access.
func (c *HeaderChain) BlockHeightByHash(hash *chainhash.Hash) (int32, error) {
	c.chainLock.RLock()
	defer c.chainLock.RUnlock()

	node := c.index.LookupNode(hash)
	if node == nil || !c.index.Contains(node) {
		str := fmt.Sprintf("header %s is not in the main chain", hash)
		return 0, ErrNotInMainChain(str)
	}
	return node.Height(), nil
}

// BlockHashByHeight returns the hash of the header at the given height in the
// main chain.
//
// This function is safe for concurrent access.
func (c *HeaderChain) BlockHashByHeight(height int32) (*chainhash.Hash, error) {
	c.chainLock.RLock()
	defer c.chainLock.RUnlock()

	node := c.index.NodeByHeight(height)
	if node == nil {
		str := fmt.Sprintf("no header at height %d exists", height)
		return nil, ErrNotInMainChain(str)
	}
	hash := node.Hash()
	return &hash, nil
}

// HeightRange returns a range of header hashes for the given start and end
// heights.  It is inclusive of the start height and exclusive of the end
// height.  The end height will be limited to the current main chain height.
//
// This function is safe for concurrent access.
func (c *HeaderChain) HeightRange(startHeight, endHeight int32) ([]chainhash.Hash, error) {
	// Ensure requested heights are sane.
	if startHeight < 0 {
		return nil, errors.Errorf("start height of fetch range must not "+
			"be less than zero - got %d", startHeight)
	}
	if endHeight < startHeight {
		return nil, errors.Errorf("end height of fetch range must not "+
			"be less than the start height - got start %d, end %d",
			startHeight, endHeight)
	}

	// There is nothing to do when the start and end heights are the same,
	// so return now to avoid the chain view lock.
	if startHeight == endHeight {
		return nil, nil
	}

	c.chainLock.RLock()
	defer c.chainLock.RUnlock()

	tip := c.index.BestTip()
	if tip == nil || startHeight > tip.Height() {
		return nil, nil
	}
	if endHeight > tip.Height()+1 {
		endHeight = tip.Height() + 1
	}

	hashes := make([]chainhash.Hash, 0, endHeight-startHeight)
	for height := startHeight; height < endHeight; height++ {
		hashes = append(hashes, c.index.NodeByHeight(height).Hash())
	}
	return hashes, nil
}

// LatestBlockLocator returns a block locator for the latest known tip of the
// main (best) chain.
//
// This function is safe for concurrent access.
func (c *HeaderChain) LatestBlockLocator() (headerindex.BlockLocator, error) {
	c.chainLock.RLock()
	defer c.chainLock.RUnlock()
	return c.blockLocator(c.index.BestTip())
}

// BlockLocatorFromHash returns a block locator for the passed header hash.
// See headerindex.BlockLocator for details on the algorithm used to create a
// block locator.
//
// In addition to the general algorithm referenced above, this function will
// return the block locator for the latest known tip of the main (best) chain
// if the passed hash is not currently known.
//
// This function is safe for concurrent access.
func (c *HeaderChain) BlockLocatorFromHash(hash *chainhash.Hash) (headerindex.BlockLocator, error) {
	c.chainLock.RLock()
	defer c.chainLock.RUnlock()

	node := c.index.LookupNode(hash)
	if node == nil {
		node = c.index.BestTip()
	}
	return c.blockLocator(node)
}

// blockLocator returns a locator for node, served from the cache when
// possible.  The caller receives its own copy.
//
// This function MUST be called with the chain lock held (for reads).
func (c *HeaderChain) blockLocator(node *headerindex.HeaderNode) (headerindex.BlockLocator, error) {
	if node == nil {
		return c.index.Locator(nil)
	}

	key := node.Hash()
	if locator, ok := c.locators.get(key); ok {
		return copyLocator(locator), nil
	}

	locator, err := c.index.Locator(node)
	if err != nil {
		return nil, err
	}
	c.locators.add(key, locator)
	return copyLocator(locator), nil
}

func copyLocator(locator headerindex.BlockLocator) headerindex.BlockLocator {
	hashes := make([]chainhash.Hash, len(locator))
	res := make(headerindex.BlockLocator, len(locator))
	for i, hash := range locator {
		hashes[i] = *hash
		res[i] = &hashes[i]
	}
	return res
}

// LocateHeaders returns the headers of the main chain after the most recent
// known locator entry, up to and including hashStop or maxHeaders headers,
// whichever comes first.  maxHeaders is capped at MaxHeadersPerLocate.
//
// When the locator is empty only the header identified by hashStop is
// returned, if it is known.
//
// This function is safe for concurrent access.
func (c *HeaderChain) LocateHeaders(locator headerindex.BlockLocator, hashStop *chainhash.Hash,
	maxHeaders int) []wire.BlockHeader {

	if maxHeaders <= 0 || maxHeaders > MaxHeadersPerLocate {
		maxHeaders = MaxHeadersPerLocate
	}

	c.chainLock.RLock()
	defer c.chainLock.RUnlock()

	// There are no block locators so a specific header is being requested
	// as identified by the stop hash.
	if len(locator) == 0 {
		if hashStop == nil {
			return nil
		}
		node := c.index.LookupNode(hashStop)
		if node == nil {
			return nil
		}
		return []wire.BlockHeader{node.Header()}
	}

	// Start at the header after the most recently known header.
	fork := c.index.FindFork(locator)
	if fork == nil {
		return nil
	}

	headers := make([]wire.BlockHeader, 0, maxHeaders)
	for height := fork.Height() + 1; len(headers) < maxHeaders; height++ {
		node := c.index.NodeByHeight(height)
		if node == nil {
			break
		}
		headers = append(headers, node.Header())
		if hash := node.Hash(); hashStop != nil && hash == *hashStop {
			break
		}
	}
	return headers
}
