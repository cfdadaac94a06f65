// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package boltdb

import (
	"bytes"
	"fmt"
	"os"
	"sync"
	"time"

	"gitlab.com/jaxnet/headerdb/database"
	"gitlab.com/jaxnet/headerdb/types/chainhash"
	"gitlab.com/jaxnet/headerdb/types/wire"
	bolt "go.etcd.io/bbolt"
)

// headersBucket holds every archived header.
var headersBucket = []byte("headers")

// openTimeout bounds the wait for the file lock held by another process.
const openTimeout = time.Second

// db implements database.Archive on a bbolt file.
type db struct {
	closeLock sync.RWMutex
	closed    bool
	store     *bolt.DB
}

// Enforce db implements the database.Archive interface.
var _ database.Archive = (*db)(nil)

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

	store, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, convertErr("unable to open bolt database", err)
	}

	err = store.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(headersBucket)
		return err
	})
	if err != nil {
		_ = store.Close()
		return nil, convertErr("unable to create headers bucket", err)
	}

	log.Debug().Msgf("Opened %s header archive at %s", dbType, dbPath)
	return &db{store: store}, nil
}

func convertErr(desc string, err error) database.Error {
	return database.MakeError(database.ErrDriverSpecific, desc, err)
}

func (db *db) Type() string {
	return dbType
}

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
	err := db.store.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(headersBucket).Put(database.HeaderKey(height, &hash), header.Bytes())
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
	err := db.store.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(headersBucket).Get(database.HeaderKey(height, hash)) != nil
		return nil
	})
	return found, err
}

func (db *db) ForEach(fn database.HeaderFunc) error {
	db.closeLock.RLock()
	defer db.closeLock.RUnlock()
	if err := db.isClosed(); err != nil {
		return err
	}

	return db.store.View(func(tx *bolt.Tx) error {
		prefix := database.HeaderKeyPrefix()
		c := tx.Bucket(headersBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			// Keys and values are only valid for the life of the
			// transaction, the decoder copies what it keeps.
			height, header, err := database.DecodeHeaderEntry(k, v)
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
	err := db.store.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(headersBucket).Stats().KeyN
		return nil
	})
	return count, err
}

func (db *db) Close() error {
	db.closeLock.Lock()
	defer db.closeLock.Unlock()
	if err := db.isClosed(); err != nil {
		return err
	}

	db.closed = true
	if err := db.store.Close(); err != nil {
		return convertErr("unable to close bolt database", err)
	}
	return nil
}
