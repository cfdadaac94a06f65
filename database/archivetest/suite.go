// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package archivetest holds the behaviour every header archive driver must
// provide.  Driver packages run it from their own tests.
package archivetest

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/jaxnet/headerdb/database"
	"gitlab.com/jaxnet/headerdb/types/chainhash"
	"gitlab.com/jaxnet/headerdb/types/wire"
)

// Headers returns n linked headers starting with a header whose parent is
// the zero hash.
func Headers(n int) []*wire.BlockHeader {
	headers := make([]*wire.BlockHeader, 0, n)
	prev := chainhash.ZeroHash
	for i := 0; i < n; i++ {
		h := &wire.BlockHeader{
			Version:   1,
			PrevBlock: prev,
			Timestamp: time.Unix(1600000000+int64(i)*600, 0),
			Bits:      0x207fffff,
			Nonce:     uint32(i),
		}
		headers = append(headers, h)
		prev = h.BlockHash()
	}
	return headers
}

// Run exercises the driver registered as dbType.
func Run(t *testing.T, dbType string) {
	t.Run("create open", func(t *testing.T) { testCreateOpen(t, dbType) })
	t.Run("put iterate", func(t *testing.T) { testPutIterate(t, dbType) })
	t.Run("closed", func(t *testing.T) { testClosed(t, dbType) })
	t.Run("stop iteration", func(t *testing.T) { testStopIteration(t, dbType) })
}

func testCreateOpen(t *testing.T, dbType string) {
	path := filepath.Join(t.TempDir(), dbType)

	_, err := database.Open(dbType, path)
	assert.True(t, database.IsErrorCode(err, database.ErrDbDoesNotExist), "got %v", err)

	_, err = database.Create(dbType)
	assert.True(t, database.IsErrorCode(err, database.ErrInvalid), "got %v", err)
	_, err = database.Create(dbType, 42)
	assert.True(t, database.IsErrorCode(err, database.ErrInvalid), "got %v", err)

	db, err := database.Create(dbType, path)
	require.NoError(t, err)
	assert.Equal(t, dbType, db.Type())
	require.NoError(t, db.PutHeader(0, Headers(1)[0]))
	require.NoError(t, db.Close())

	_, err = database.Create(dbType, path)
	assert.True(t, database.IsErrorCode(err, database.ErrDbExists), "got %v", err)

	db, err = database.OpenOrCreate(dbType, path)
	require.NoError(t, err)
	count, err := db.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.NoError(t, db.Close())
}

func testPutIterate(t *testing.T, dbType string) {
	db, err := database.OpenOrCreate(dbType, filepath.Join(t.TempDir(), dbType))
	require.NoError(t, err)
	defer db.Close()

	headers := Headers(300)

	// A sibling at height 1 and a header at a height that needs more than
	// one byte, written in reverse order.
	fork := *headers[1]
	fork.Nonce = 99999
	require.NoError(t, db.PutHeader(1, &fork))
	for i := len(headers) - 1; i >= 0; i-- {
		require.NoError(t, db.PutHeader(int32(i), headers[i]))
	}
	// Writing the same header again keeps a single entry.
	require.NoError(t, db.PutHeader(5, headers[5]))

	count, err := db.Count()
	require.NoError(t, err)
	assert.Equal(t, len(headers)+1, count)

	hash := headers[7].BlockHash()
	has, err := db.HasHeader(7, &hash)
	require.NoError(t, err)
	assert.True(t, has)
	has, err = db.HasHeader(8, &hash)
	require.NoError(t, err)
	assert.False(t, has)

	var (
		lastHeight int32 = -1
		seen             = make(map[chainhash.Hash]int32)
	)
	err = db.ForEach(func(height int32, header *wire.BlockHeader) error {
		assert.GreaterOrEqual(t, height, lastHeight)
		lastHeight = height
		seen[header.BlockHash()] = height
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, seen, len(headers)+1)
	for i, h := range headers {
		assert.Equal(t, int32(i), seen[h.BlockHash()])
	}
	assert.Equal(t, int32(1), seen[fork.BlockHash()])
}

func testClosed(t *testing.T, dbType string) {
	db, err := database.Create(dbType, filepath.Join(t.TempDir(), dbType))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	isNotOpen := func(err error) bool { return database.IsErrorCode(err, database.ErrDbNotOpen) }

	assert.True(t, isNotOpen(db.Close()))
	assert.True(t, isNotOpen(db.PutHeader(0, Headers(1)[0])))
	_, err = db.Count()
	assert.True(t, isNotOpen(err))
	_, err = db.HasHeader(0, &chainhash.ZeroHash)
	assert.True(t, isNotOpen(err))
	assert.True(t, isNotOpen(db.ForEach(func(int32, *wire.BlockHeader) error { return nil })))
}

func testStopIteration(t *testing.T, dbType string) {
	db, err := database.Create(dbType, filepath.Join(t.TempDir(), dbType))
	require.NoError(t, err)
	defer db.Close()

	for i, h := range Headers(10) {
		require.NoError(t, db.PutHeader(int32(i), h))
	}

	errStop := errors.New("stop")
	var visited int
	err = db.ForEach(func(height int32, _ *wire.BlockHeader) error {
		visited++
		if height == 3 {
			return errStop
		}
		return nil
	})
	assert.Equal(t, errStop, err)
	assert.Equal(t, 4, visited)
}
