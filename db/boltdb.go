package db

import (
	"bytes"
	"errors"
	"log"
	"time"

	"github.com/boltdb/bolt"
)

type boltdb struct {
	db *bolt.DB
}

// NewBoltDB opens a boltdb instance at the given path. BoltDB takes a
// file lock on the data file so two processes cannot open the same
// database at the same time. If the file cannot be opened it logs the
// error and exits the process through log.Fatal.
func NewBoltDB(path string) Database {
	bt, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		log.Fatal(err)
	}
	return &boltdb{db: bt}
}

func (bt *boltdb) NewBucket(name string) error {
	if bt.db == nil {
		return errors.New("database is not initialized")
	}
	if name == "" {
		return errors.New("database bucket name is empty")
	}
	return bt.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(name))
		return err
	})
}

// Put writes the key/value pair to the database.
func (bt *boltdb) Put(bucket string, key, value []byte) error {
	return bt.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Put(key, value)
	})
}

// Delete deletes the key from the database.
func (bt *boltdb) Delete(bucket string, key []byte) error {
	return bt.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Delete(key)
	})
}

// Get retrieves the value of the key from the database. A cursor seek
// distinguishes a missing key from a stored zero-length value, which
// bolt's plain Get cannot do; the world state keeps such markers.
func (bt *boltdb) Get(bucket string, key []byte) ([]byte, error) {
	var val []byte
	found := false
	if err := bt.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucket)).Cursor()
		k, v := c.Seek(key)
		if k != nil && bytes.Equal(k, key) {
			found = true
			val = append([]byte(nil), v...)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrKeyNotFound
	}
	return val, nil
}

// GetAll retrieves the values of the keys with prefix from the database.
func (bt *boltdb) GetAll(bucket string, keyPrefix []byte) ([][]byte, error) {
	var vals [][]byte
	if err := bt.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucket)).Cursor()
		for k, v := c.Seek(keyPrefix); k != nil && bytes.HasPrefix(k, keyPrefix); k, v = c.Next() {
			vals = append(vals, append([]byte(nil), v...))
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return vals, nil
}

// Iterate walks keys with the prefix in ascending order.
func (bt *boltdb) Iterate(bucket string, keyPrefix []byte, fn func(key, value []byte) bool) error {
	return bt.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucket)).Cursor()
		for k, v := c.Seek(keyPrefix); k != nil && bytes.HasPrefix(k, keyPrefix); k, v = c.Next() {
			if !fn(k, v) {
				return nil
			}
		}
		return nil
	})
}

// Close closes the underlying database.
func (bt *boltdb) Close() error {
	if bt.db != nil {
		return bt.db.Close()
	}
	return nil
}

// Begin returns a writable database transaction object for manually
// managed transactions.
func (bt *boltdb) Begin() (Tx, error) {
	tx, err := bt.db.Begin(true)
	if err != nil {
		return nil, err
	}
	return &boltdbTx{tx: tx}, nil
}

// boltdbTx wraps the boltdb transaction to provide the Tx interface.
type boltdbTx struct {
	tx *bolt.Tx
}

func (btx *boltdbTx) Get(bucket string, key []byte) ([]byte, error) {
	c := btx.tx.Bucket([]byte(bucket)).Cursor()
	k, v := c.Seek(key)
	if k == nil || !bytes.Equal(k, key) {
		return nil, ErrKeyNotFound
	}
	return v, nil
}

func (btx *boltdbTx) GetAll(bucket string, keyPrefix []byte) ([][]byte, error) {
	var vals [][]byte
	c := btx.tx.Bucket([]byte(bucket)).Cursor()
	for k, v := c.Seek(keyPrefix); k != nil && bytes.HasPrefix(k, keyPrefix); k, v = c.Next() {
		vals = append(vals, v)
	}
	return vals, nil
}

func (btx *boltdbTx) Iterate(bucket string, keyPrefix []byte, fn func(key, value []byte) bool) error {
	c := btx.tx.Bucket([]byte(bucket)).Cursor()
	for k, v := c.Seek(keyPrefix); k != nil && bytes.HasPrefix(k, keyPrefix); k, v = c.Next() {
		if !fn(k, v) {
			return nil
		}
	}
	return nil
}

func (btx *boltdbTx) Put(bucket string, key, value []byte) error {
	return btx.tx.Bucket([]byte(bucket)).Put(key, value)
}

func (btx *boltdbTx) Delete(bucket string, key []byte) error {
	return btx.tx.Bucket([]byte(bucket)).Delete(key)
}

func (btx *boltdbTx) Rollback() error {
	return btx.tx.Rollback()
}

func (btx *boltdbTx) Commit() error {
	return btx.tx.Commit()
}
