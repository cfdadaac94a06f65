// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package badgerdb

import (
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger"
	"gitlab.com/jaxnet/headerdb/database"
	"gitlab.com/jaxnet/headerdb/types/chainhash"
	"gitlab.com/jaxnet/headerdb/types/wire"
)

// db implements database.Archive on a badger key-value store.
type db struct {
	closeLock sync.RWMutex
	closed    bool
	store     *badger.DB
}

// Enforce db implements the database.Archive interface.
var _ database.Archive = (*db)(nil)

// openDB opens the badger directory at dbPath.  When create is set the
// directory must not exist yet, otherwise it must.
func openDB(dbPath string, create bool) (database.Archive, error) {
	_, err := os.Stat(dbPath)
	exists := err == nil
	if !create && !exists {
		str := fmt.Sprintf("database %q does not exist", dbPath)
		return nil, database.MakeError(database.ErrDbDoesNotExist, str, nil)
	}
	if create && exists {
		str := fmt.Sprintf("database %q already exists", dbPath)
		return nil, database.MakeError(database.ErrDbExists, str, nil)
	}

	opts := badger.DefaultOptions(dbPath).WithLogger(badgerLogger{})
	store, err := badger.Open(opts)
	if err != nil {
		return nil, convertErr("unable to open badger database", err)
	}

	log.Debug().Msgf("Opened %s header archive at %s", dbType, dbPath)
	return &db{store: store}, nil
}

// convertErr wraps a badger error into a database.Error.
func convertErr(desc string, err error) database.Error {
	return database.MakeError(database.ErrDriverSpecific, desc, err)
}

func (db *db) Type() string {
	return dbType
}

// isClosed returns ErrDbNotOpen when the archive has been closed.  The caller
// must hold the close lock.
func (db *db) isClosed() error {
	if db.closed {
		return database.MakeError(database.ErrDbNotOpen, "database is not open", nil)
	}
	return nil
}

func (db *db) PutHeader(height int32, header *wire.BlockHeader) error {
	db.closeLock.RLock()
	defer db.closeLock.RUnlock()
	if err := db.isClosed(); err != nil {
		return err
	}

	hash := header.BlockHash()
	err := db.store.Update(func(txn *badger.Txn) error {
		return txn.Set(database.HeaderKey(height, &hash), header.Bytes())
	})
	if err != nil {
		return convertErr("unable to store header", err)
	}
	return nil
}

func (db *db) HasHeader(height int32, hash *chainhash.Hash) (bool, error) {
	db.closeLock.RLock()
	defer db.closeLock.RUnlock()
	if err := db.isClosed(); err != nil {
		return false, err
	}

	var found bool
	err := db.store.View(func(txn *badger.Txn) error {
		_, err := txn.Get(database.HeaderKey(height, hash))
		switch err {
		case nil:
			found = true
			return nil
		case badger.ErrKeyNotFound:
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return false, convertErr("unable to look up header", err)
	}
	return found, nil
}

func (db *db) ForEach(fn database.HeaderFunc) error {
	db.closeLock.RLock()
	defer db.closeLock.RUnlock()
	if err := db.isClosed(); err != nil {
		return err
	}

	return db.store.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = 100
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := database.HeaderKeyPrefix()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return convertErr("unable to read header", err)
			}

			height, header, err := database.DecodeHeaderEntry(item.KeyCopy(nil), value)
			if err != nil {
				return err
			}
			if err := fn(height, header); err != nil {
				return err
			}
		}
		return nil
	})
}

func (db *db) Count() (int, error) {
	db.closeLock.RLock()
	defer db.closeLock.RUnlock()
	if err := db.isClosed(); err != nil {
		return 0, err
	}

	var count int
	err := db.store.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := database.HeaderKeyPrefix()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, convertErr("unable to count headers", err)
	}
	return count, nil
}

func (db *db) Close() error {
	db.closeLock.Lock()
	defer db.closeLock.Unlock()
	if err := db.isClosed(); err != nil {
		return err
	}

	db.closed = true
	if err := db.store.Close(); err != nil {
		return convertErr("unable to close badger database", err)
	}
	return nil
}
