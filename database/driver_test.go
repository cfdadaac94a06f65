// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/jaxnet/headerdb/database"
	_ "gitlab.com/jaxnet/headerdb/database/badgerdb"
	_ "gitlab.com/jaxnet/headerdb/database/boltdb"
	"gitlab.com/jaxnet/headerdb/types/chainhash"
	"gitlab.com/jaxnet/headerdb/types/wire"
)

// checkDBError ensures the passed error is a database.Error with an error code
// that matches the passed  error code.
func checkDBError(t *testing.T, testName string, gotErr error, wantErrCode database.ErrorCode) bool {
	dbErr, ok := gotErr.(database.Error)
	if !ok {
		t.Errorf("%s: unexpected error type - got %T, want %T",
			testName, gotErr, database.Error{})
		return false
	}
	if dbErr.ErrorCode != wantErrCode {
		t.Errorf("%s: unexpected error code - got %s (%s), want %s",
			testName, dbErr.ErrorCode, dbErr.Description,
			wantErrCode)
		return false
	}

	return true
}

func TestSupportedDrivers(t *testing.T) {
	supported := database.SupportedDrivers()
	assert.Contains(t, supported, "badgerdb")
	assert.Contains(t, supported, "boltdb")
}

// TestAddDuplicateDriver ensures that adding a duplicate driver does not
// overwrite an existing one.
func TestAddDuplicateDriver(t *testing.T) {
	supportedDrivers := database.SupportedDrivers()
	if len(supportedDrivers) == 0 {
		t.Errorf("no backends to test")
		return
	}
	dbType := supportedDrivers[0]

	// bogusCreateDB is a function which acts as a bogus create and open
	// driver function and intentionally returns a failure that can be
	// detected if the interface allows a duplicate driver to overwrite an
	// existing one.
	bogusCreateDB := func(args ...interface{}) (database.Archive, error) {
		return nil, fmt.Errorf("duplicate driver allowed for database type [%v]", dbType)
	}

	// Create a driver that tries to replace an existing one.  Set its
	// create and open functions to a function that causes a test failure if
	// they are invoked.
	driver := database.Driver{
		DBType: dbType,
		Create: bogusCreateDB,
		Open:   bogusCreateDB,
	}
	testName := "duplicate driver registration"
	err := database.RegisterDriver(driver)
	checkDBError(t, testName, err, database.ErrDBTypeRegistered)
}

// TestCreateOpenFail ensures that errors which occur while opening or closing
// a database are handled properly.
func TestCreateOpenFail(t *testing.T) {
	// bogusCreateDB is a function which acts as a bogus create and open
	// driver function that intentionally returns a failure which can be
	// detected.
	dbType := "createopenfail"
	openError := fmt.Errorf("failed to create or open database for "+
		"database type [%v]", dbType)
	bogusCreateDB := func(args ...interface{}) (database.Archive, error) {
		return nil, openError
	}

	// Create and add driver that intentionally fails when created or opened
	// to ensure errors on database open and create are handled properly.
	driver := database.Driver{
		DBType: dbType,
		Create: bogusCreateDB,
		Open:   bogusCreateDB,
	}
	_ = database.RegisterDriver(driver)

	// Ensure creating a database with the new type fails with the expected
	// error.
	_, err := database.Create(dbType, "path")
	assert.Equal(t, openError, err)

	// Ensure opening a database with the new type fails with the expected
	// error.
	_, err = database.Open(dbType, "path")
	assert.Equal(t, openError, err)

	// The failure is not ErrDbDoesNotExist so no creation is attempted.
	_, err = database.OpenOrCreate(dbType, "path")
	assert.Equal(t, openError, err)
}

// TestCreateOpenUnsupported ensures that attempting to create or open an
// unsupported database type is handled properly.
func TestCreateOpenUnsupported(t *testing.T) {
	// Ensure creating a database with an unsupported type fails with the
	// expected error.
	testName := "create with unsupported database type"
	dbType := "unsupported"
	_, err := database.Create(dbType, "path")
	checkDBError(t, testName, err, database.ErrDBUnknownType)

	// Ensure opening a database with the an unsupported type fails with the
	// expected error.
	testName = "open with unsupported database type"
	_, err = database.Open(dbType, "path")
	checkDBError(t, testName, err, database.ErrDBUnknownType)
}

func TestHeaderKey(t *testing.T) {
	header := wire.BlockHeader{Version: 1, Bits: 0x207fffff, Nonce: 7}
	hash := header.BlockHash()

	low := database.HeaderKey(2, &hash)
	high := database.HeaderKey(256, &chainhash.ZeroHash)
	assert.Len(t, low, database.HeaderKeyLen)
	assert.Equal(t, -1, bytes.Compare(low, high), "keys must sort by height")

	height, decoded, err := database.DecodeHeaderEntry(low, header.Bytes())
	require.NoError(t, err)
	assert.Equal(t, int32(2), height)
	assert.Equal(t, hash, decoded.BlockHash())

	tests := []struct {
		name  string
		key   []byte
		value []byte
	}{
		{name: "short key", key: low[:10], value: header.Bytes()},
		{name: "bad prefix", key: append([]byte{'x'}, low[1:]...), value: header.Bytes()},
		{name: "short value", key: low, value: header.Bytes()[:79]},
		{name: "hash mismatch", key: high, value: header.Bytes()},
	}
	for _, tt := range tests {
		_, _, err := database.DecodeHeaderEntry(tt.key, tt.value)
		checkDBError(t, tt.name, err, database.ErrCorruption)
	}
}

func TestErrorCodeStringer(t *testing.T) {
	assert.Equal(t, "ErrDbNotOpen", database.ErrDbNotOpen.String())
	assert.Equal(t, "Unknown ErrorCode (999)", database.ErrorCode(999).String())

	inner := fmt.Errorf("disk on fire")
	err := database.MakeError(database.ErrDriverSpecific, "put failed", inner)
	assert.Equal(t, "put failed: disk on fire", err.Error())
	assert.ErrorIs(t, err, inner)
}
