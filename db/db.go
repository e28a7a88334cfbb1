// Package db defines the key-value storage interfaces used by the
// node. Keys inside a bucket are ordered lexicographically, which the
// world state view relies on for prefix scans.
package db

import "errors"

// ErrKeyNotFound is the distinguished status for a missing key. All
// backends return it from Get so callers can apply existence policies.
var ErrKeyNotFound = errors.New("key not found")

// Getter is the read-only part of the store.
type Getter interface {
	// Get retrieves the value of the key, ErrKeyNotFound if absent.
	Get(bucket string, key []byte) ([]byte, error)
	// GetAll retrieves the values of all keys with the given prefix.
	GetAll(bucket string, keyPrefix []byte) ([][]byte, error)
	// Iterate walks keys with the given prefix in ascending key order
	// and calls fn for each pair. Iteration stops when fn returns false.
	Iterate(bucket string, keyPrefix []byte, fn func(key, value []byte) bool) error
}

// Putter is the write-only part of the store.
type Putter interface {
	Put(bucket string, key, value []byte) error
	Delete(bucket string, key []byte) error
}

// Tx is a manually managed database transaction.
type Tx interface {
	Getter
	Putter
	Commit() error
	Rollback() error
}

// Database is the full store contract used by the node.
type Database interface {
	NewBucket(name string) error
	Getter
	Putter
	Begin() (Tx, error)
	Close() error
}
