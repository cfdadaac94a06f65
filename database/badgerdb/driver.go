// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package badgerdb implements the header archive on top of badger.
//
// Usage:
//
//	import (
//		"gitlab.com/jaxnet/headerdb/database"
//		_ "gitlab.com/jaxnet/headerdb/database/badgerdb"
//	)
//
//	db, err := database.Create("badgerdb", "path/to/archive")
package badgerdb

import (
	"fmt"

	"github.com/rs/zerolog"
	"gitlab.com/jaxnet/headerdb/corelog"
	"gitlab.com/jaxnet/headerdb/database"
)

var log = corelog.Disabled

const (
	dbType = "badgerdb"
)

// parseArgs parses the arguments from the database Open/Create methods.
func parseArgs(funcName string, args ...interface{}) (string, error) {
	if len(args) != 1 {
		str := fmt.Sprintf("invalid arguments to %s.%s -- expected database path",
			dbType, funcName)
		return "", database.MakeError(database.ErrInvalid, str, nil)
	}

	dbPath, ok := args[0].(string)
	if !ok {
		str := fmt.Sprintf("first argument to %s.%s is invalid -- expected "+
			"database path string", dbType, funcName)
		return "", database.MakeError(database.ErrInvalid, str, nil)
	}

	return dbPath, nil
}

// openDBDriver is the callback provided during driver registration that opens
// an existing database for use.
func openDBDriver(args ...interface{}) (database.Archive, error) {
	dbPath, err := parseArgs("Open", args...)
	if err != nil {
		return nil, err
	}

	return openDB(dbPath, false)
}

// createDBDriver is the callback provided during driver registration that
// creates, initializes, and opens a database for use.
func createDBDriver(args ...interface{}) (database.Archive, error) {
	dbPath, err := parseArgs("Create", args...)
	if err != nil {
		return nil, err
	}

	return openDB(dbPath, true)
}

// useLogger is the callback provided during driver registration that sets the
// current logger to the provided one.
func useLogger(logger zerolog.Logger) {
	log = logger
}

func init() {
	// Register the driver.
	driver := database.Driver{
		DBType:    dbType,
		Create:    createDBDriver,
		Open:      openDBDriver,
		UseLogger: useLogger,
	}
	if err := database.RegisterDriver(driver); err != nil {
		panic(fmt.Sprintf("Failed to regiser database driver '%s': %v",
			dbType, err))
	}
}
