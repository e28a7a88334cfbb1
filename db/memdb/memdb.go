package memdb

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ryjones/iroha/db"
)

type memdb struct {
	db map[string][]byte
	sync.RWMutex
}

// New creates a memory-based key-value store which is mainly used
// for testing. Bucket names are folded into the key.
func New() db.Database {
	return &memdb{db: make(map[string][]byte)}
}

func (m *memdb) NewBucket(name string) error {
	return nil
}

func mkey(bucket string, key []byte) string {
	return bucket + "/" + string(key)
}

// Put writes the key/value pair to the database.
func (m *memdb) Put(bucket string, key, value []byte) error {
	m.Lock()
	defer m.Unlock()

	if m.db == nil {
		return fmt.Errorf("memdb is closed")
	}

	m.db[mkey(bucket, key)] = append([]byte(nil), value...)
	return nil
}

// Delete deletes the key from the database.
func (m *memdb) Delete(bucket string, key []byte) error {
	m.Lock()
	defer m.Unlock()

	if m.db == nil {
		return fmt.Errorf("memdb is closed")
	}

	delete(m.db, mkey(bucket, key))
	return nil
}

// Get retrieves the value of the key from the database.
func (m *memdb) Get(bucket string, key []byte) ([]byte, error) {
	m.RLock()
	defer m.RUnlock()

	if m.db == nil {
		return nil, fmt.Errorf("memdb is closed")
	}

	if val, ok := m.db[mkey(bucket, key)]; ok {
		return val, nil
	}
	return nil, db.ErrKeyNotFound
}

// GetAll retrieves the values of the keys with prefix from the database.
func (m *memdb) GetAll(bucket string, keyPrefix []byte) ([][]byte, error) {
	m.RLock()
	defer m.RUnlock()

	if m.db == nil {
		return nil, fmt.Errorf("memdb is closed")
	}

	var vals [][]byte
	for _, k := range m.sortedKeys(bucket, keyPrefix) {
		vals = append(vals, m.db[mkey(bucket, []byte(k))])
	}
	return vals, nil
}

// Iterate walks keys with the prefix in ascending key order.
func (m *memdb) Iterate(bucket string, keyPrefix []byte, fn func(key, value []byte) bool) error {
	m.RLock()
	defer m.RUnlock()

	if m.db == nil {
		return fmt.Errorf("memdb is closed")
	}

	for _, k := range m.sortedKeys(bucket, keyPrefix) {
		if !fn([]byte(k), m.db[mkey(bucket, []byte(k))]) {
			return nil
		}
	}
	return nil
}

// sortedKeys returns bucket-local keys with the prefix in ascending
// order. Callers must hold the lock.
func (m *memdb) sortedKeys(bucket string, keyPrefix []byte) []string {
	prefix := mkey(bucket, keyPrefix)
	var keys []string
	for k := range m.db {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, strings.TrimPrefix(k, bucket+"/"))
		}
	}
	sort.Strings(keys)
	return keys
}

// Close closes the underlying database.
func (m *memdb) Close() error {
	m.Lock()
	defer m.Unlock()

	m.db = nil
	return nil
}

// Begin returns a transaction that buffers writes until Commit.
func (m *memdb) Begin() (db.Tx, error) {
	return &memdbTx{
		base:    m,
		writes:  make(map[string][]byte),
		deletes: make(map[string]bool),
	}, nil
}

// memdbTx overlays buffered writes on the backing store so that reads
// inside the transaction observe earlier writes.
type memdbTx struct {
	base    *memdb
	writes  map[string][]byte
	deletes map[string]bool
	done    bool
}

func (mtx *memdbTx) Get(bucket string, key []byte) ([]byte, error) {
	k := mkey(bucket, key)
	if mtx.deletes[k] {
		return nil, db.ErrKeyNotFound
	}
	if v, ok := mtx.writes[k]; ok {
		return v, nil
	}
	return mtx.base.Get(bucket, key)
}

func (mtx *memdbTx) GetAll(bucket string, keyPrefix []byte) ([][]byte, error) {
	var vals [][]byte
	err := mtx.Iterate(bucket, keyPrefix, func(key, value []byte) bool {
		vals = append(vals, value)
		return true
	})
	return vals, err
}

func (mtx *memdbTx) Iterate(bucket string, keyPrefix []byte, fn func(key, value []byte) bool) error {
	merged := make(map[string][]byte)
	mtx.base.RLock()
	for _, k := range mtx.base.sortedKeys(bucket, keyPrefix) {
		merged[k] = mtx.base.db[mkey(bucket, []byte(k))]
	}
	mtx.base.RUnlock()
	prefix := mkey(bucket, keyPrefix)
	for k, v := range mtx.writes {
		if strings.HasPrefix(k, prefix) {
			merged[strings.TrimPrefix(k, bucket+"/")] = v
		}
	}
	for k := range mtx.deletes {
		if strings.HasPrefix(k, prefix) {
			delete(merged, strings.TrimPrefix(k, bucket+"/"))
		}
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !fn([]byte(k), merged[k]) {
			return nil
		}
	}
	return nil
}

func (mtx *memdbTx) Put(bucket string, key, value []byte) error {
	k := mkey(bucket, key)
	delete(mtx.deletes, k)
	mtx.writes[k] = append([]byte(nil), value...)
	return nil
}

func (mtx *memdbTx) Delete(bucket string, key []byte) error {
	k := mkey(bucket, key)
	delete(mtx.writes, k)
	mtx.deletes[k] = true
	return nil
}

func (mtx *memdbTx) Rollback() error {
	mtx.writes = nil
	mtx.deletes = nil
	mtx.done = true
	return nil
}

func (mtx *memdbTx) Commit() error {
	if mtx.done {
		return fmt.Errorf("transaction already finished")
	}
	mtx.base.Lock()
	defer mtx.base.Unlock()
	for k, v := range mtx.writes {
		mtx.base.db[k] = v
	}
	for k := range mtx.deletes {
		delete(mtx.base.db, k)
	}
	mtx.done = true
	return nil
}
