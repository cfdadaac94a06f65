// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// Driver defines a structure for backend drivers to use when they registered
// themselves as a backend which implements the Archive interface.
type Driver struct {
	// DBType is the identifier used to uniquely identify a specific
	// database driver.  There can be only one driver with the same name.
	DBType string

	// Create is the function that will be invoked with all user-specified
	// arguments to create the database.  This function must return
	// ErrDbExists if the database already exists.
	Create func(args ...interface{}) (Archive, error)

	// Open is the function that will be invoked with all user-specified
	// arguments to open the database.  This function must return
	// ErrDbDoesNotExist if the database has not already been created.
	Open func(args ...interface{}) (Archive, error)

	// UseLogger uses a specified Logger to output package logging info.
	UseLogger func(logger zerolog.Logger)
}

// drivers holds all of the registered database backends.
var drivers = make(map[string]*Driver)

// RegisterDriver adds a backend database driver to available interfaces.
// ErrDBTypeRegistered will be returned if the database type for the driver has
// already been registered.
func RegisterDriver(driver Driver) error {
	if _, exists := drivers[driver.DBType]; exists {
		str := fmt.Sprintf("driver %q is already registered",
			driver.DBType)
		return MakeError(ErrDBTypeRegistered, str, nil)
	}

	drivers[driver.DBType] = &driver
	return nil
}

// SupportedDrivers returns a slice of strings that represent the database
// drivers that have been registered and are therefore supported.
func SupportedDrivers() []string {
	supportedDBs := make([]string, 0, len(drivers))
	for _, drv := range drivers {
		supportedDBs = append(supportedDBs, drv.DBType)
	}
	sort.Strings(supportedDBs)
	return supportedDBs
}

// Create initializes and opens an archive for the specified type.  The
// arguments are specific to the database type driver.  See the documentation
// for the database driver for further details.
//
// ErrDBUnknownType will be returned if the database type is not registered.
func Create(dbType string, args ...interface{}) (Archive, error) {
	drv, exists := drivers[dbType]
	if !exists {
		str := fmt.Sprintf("driver %q is not registered", dbType)
		return nil, MakeError(ErrDBUnknownType, str, nil)
	}

	return drv.Create(args...)
}

// Open opens an existing archive for the specified type.  The arguments are
// specific to the database type driver.  See the documentation for the
// database driver for further details.
//
// ErrDBUnknownType will be returned if the database type is not registered.
func Open(dbType string, args ...interface{}) (Archive, error) {
	drv, exists := drivers[dbType]
	if !exists {
		str := fmt.Sprintf("driver %q is not registered", dbType)
		return nil, MakeError(ErrDBUnknownType, str, nil)
	}

	return drv.Open(args...)
}

// OpenOrCreate opens the archive at path, creating it when it does not exist
// yet.
func OpenOrCreate(dbType string, path string) (Archive, error) {
	db, err := Open(dbType, path)
	if err == nil || !IsErrorCode(err, ErrDbDoesNotExist) {
		return db, err
	}

	log.Info().Msgf("Creating %s header archive at %s", dbType, path)
	return Create(dbType, path)
}

// UseLogger sets the logger of this package and of every registered driver.
func UseLogger(logger zerolog.Logger) {
	log = logger
	for _, drv := range drivers {
		if drv.UseLogger != nil {
			drv.UseLogger(logger)
		}
	}
}
