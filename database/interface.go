// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"gitlab.com/jaxnet/headerdb/types/chainhash"
	"gitlab.com/jaxnet/headerdb/types/wire"
)

// HeaderFunc is called for every header visited by Archive.ForEach.
type HeaderFunc func(height int32, header *wire.BlockHeader) error

// Archive is a persistent store of every header ever accepted, side chains
// included.  Headers are keyed by height and hash, so iterating in key order
// visits every parent before its children and a replay into an empty index
// reproduces all known forks.
//
// Implementations must be safe for concurrent access.
type Archive interface {
	// Type returns the database driver type the current archive instance
	// was created with.
	Type() string

	// PutHeader stores the header at the provided height.  Storing the
	// same header twice is not an error.
	PutHeader(height int32, header *wire.BlockHeader) error

	// HasHeader returns whether a header with the provided hash is stored
	// at the provided height.
	HasHeader(height int32, hash *chainhash.Hash) (bool, error)

	// ForEach calls fn for every stored header in ascending height order.
	// Iteration stops at the first error returned by fn and that error is
	// returned.
	ForEach(fn HeaderFunc) error

	// Count returns the number of stored headers.
	Count() (int, error)

	// Close cleanly shuts down the archive and syncs all data.  All
	// subsequent calls return ErrDbNotOpen.
	Close() error
}
