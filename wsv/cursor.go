// Package wsv implements the world state view: a savepointed cursor
// over the ordered key-value store, the key layout, and the decimal
// accounting type.
package wsv

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ryjones/iroha/db"
	"github.com/ryjones/iroha/log"
)

// Bucket holds every world state entry.
const Bucket = "WSV"

// Policy tells a read what to do about key existence.
type Policy int

const (
	// CanExist: a missing key yields an absent value, no error.
	CanExist Policy = iota
	// MustExist: a missing key is an error.
	MustExist
	// MustNotExist: a present key is an error.
	MustNotExist
)

var (
	ErrMustExist    = errors.New("key does not exist")
	ErrMustNotExist = errors.New("key already exists")
	ErrNoSavepoint  = errors.New("no such savepoint")
)

// Storage owns the database handle behind the world state.
type Storage struct {
	database db.Database
}

// NewStorage prepares the WSV bucket.
func NewStorage(d db.Database) *Storage {
	s := &Storage{database: d}
	if err := d.NewBucket(Bucket); err != nil {
		log.Fatalf("create db bucket %s failed: %v", Bucket, err)
	}
	return s
}

// Begin opens a cursor bound to a fresh database transaction. Exactly
// one executor may hold a cursor at a time; the cursor itself is not
// goroutine safe.
func (s *Storage) Begin() (*Cursor, error) {
	tx, err := s.database.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin db transaction failed: %v", err)
	}
	return &Cursor{tx: tx, layers: []*layer{newLayer("")}}, nil
}

// layer is one savepoint's buffered writes.
type layer struct {
	name    string
	writes  map[string][]byte
	deletes map[string]bool
}

func newLayer(name string) *layer {
	return &layer{name: name, writes: make(map[string][]byte), deletes: make(map[string]bool)}
}

// Cursor gives scoped, savepointed access to the world state. Writes
// buffer in savepoint layers and only reach the database transaction
// on Commit, so a rollback to any savepoint is a memory operation.
type Cursor struct {
	tx     db.Tx
	layers []*layer
	done   bool
}

// Savepoint opens a named savepoint.
func (c *Cursor) Savepoint(name string) {
	c.layers = append(c.layers, newLayer(name))
}

// ReleaseSavepoint merges the named savepoint into its parent,
// keeping the buffered changes.
func (c *Cursor) ReleaseSavepoint(name string) error {
	i := c.findLayer(name)
	if i <= 0 {
		return ErrNoSavepoint
	}
	parent := c.layers[i-1]
	for _, l := range c.layers[i:] {
		for k, v := range l.writes {
			delete(parent.deletes, k)
			parent.writes[k] = v
		}
		for k := range l.deletes {
			delete(parent.writes, k)
			parent.deletes[k] = true
		}
	}
	c.layers = c.layers[:i]
	return nil
}

// RollbackToSavepoint discards all changes made since the named
// savepoint was opened. The savepoint itself stays usable.
func (c *Cursor) RollbackToSavepoint(name string) error {
	i := c.findLayer(name)
	if i <= 0 {
		return ErrNoSavepoint
	}
	c.layers = append(c.layers[:i], newLayer(name))
	return nil
}

func (c *Cursor) findLayer(name string) int {
	for i := len(c.layers) - 1; i > 0; i-- {
		if c.layers[i].name == name {
			return i
		}
	}
	return -1
}

// Commit flattens every layer into the database transaction and
// commits it. The cursor is unusable afterwards.
func (c *Cursor) Commit() error {
	if c.done {
		return errors.New("cursor already finished")
	}
	for _, l := range c.layers {
		for k, v := range l.writes {
			if err := c.tx.Put(Bucket, []byte(k), v); err != nil {
				c.tx.Rollback()
				c.done = true
				return fmt.Errorf("flush write failed: %v", err)
			}
		}
		for k := range l.deletes {
			if err := c.tx.Delete(Bucket, []byte(k)); err != nil {
				c.tx.Rollback()
				c.done = true
				return fmt.Errorf("flush delete failed: %v", err)
			}
		}
	}
	c.done = true
	return c.tx.Commit()
}

// Prepare is the advisory prepared-commit hook. Without write-ahead
// support underneath it is equivalent to Commit.
func (c *Cursor) Prepare(name string) error {
	return c.Commit()
}

// Rollback discards everything and releases the transaction.
func (c *Cursor) Rollback() error {
	if c.done {
		return nil
	}
	c.done = true
	return c.tx.Rollback()
}

// lookup consults layers newest-first, then the transaction.
func (c *Cursor) lookup(key string) ([]byte, bool, error) {
	for i := len(c.layers) - 1; i >= 0; i-- {
		if c.layers[i].deletes[key] {
			return nil, false, nil
		}
		if v, ok := c.layers[i].writes[key]; ok {
			return v, true, nil
		}
	}
	v, err := c.tx.Get(Bucket, []byte(key))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return v, true, nil
}

// Get reads a key under an existence policy. The bool reports presence
// for CanExist reads.
func (c *Cursor) Get(key string, policy Policy) ([]byte, bool, error) {
	v, ok, err := c.lookup(key)
	if err != nil {
		return nil, false, err
	}
	switch policy {
	case MustExist:
		if !ok {
			return nil, false, fmt.Errorf("%w: %s", ErrMustExist, key)
		}
	case MustNotExist:
		if ok {
			return nil, true, fmt.Errorf("%w: %s", ErrMustNotExist, key)
		}
	}
	return v, ok, nil
}

// Put buffers a write in the current savepoint.
func (c *Cursor) Put(key string, value []byte) error {
	top := c.layers[len(c.layers)-1]
	delete(top.deletes, key)
	top.writes[key] = append([]byte(nil), value...)
	return nil
}

// PutString buffers a string value write.
func (c *Cursor) PutString(key, value string) error {
	return c.Put(key, []byte(value))
}

// Delete buffers a delete in the current savepoint.
func (c *Cursor) Delete(key string) error {
	top := c.layers[len(c.layers)-1]
	delete(top.writes, key)
	top.deletes[key] = true
	return nil
}

// Enumerate walks keys with the prefix in ascending order, overlay
// included. The callback returns false to stop.
func (c *Cursor) Enumerate(prefix string, fn func(key string, value []byte) bool) error {
	merged := make(map[string][]byte)
	err := c.tx.Iterate(Bucket, []byte(prefix), func(k, v []byte) bool {
		merged[string(k)] = append([]byte(nil), v...)
		return true
	})
	if err != nil {
		return err
	}
	for _, l := range c.layers {
		for k, v := range l.writes {
			if strings.HasPrefix(k, prefix) {
				merged[k] = v
			}
		}
		for k := range l.deletes {
			if strings.HasPrefix(k, prefix) {
				delete(merged, k)
			}
		}
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !fn(k, merged[k]) {
			return nil
		}
	}
	return nil
}

// EncodeUint renders an unsigned integer in the stored decimal form.
func EncodeUint(v uint64) []byte {
	return []byte(strconv.FormatUint(v, 10))
}

// DecodeUint parses a stored decimal integer.
func DecodeUint(b []byte) (uint64, error) {
	return strconv.ParseUint(string(b), 10, 64)
}
