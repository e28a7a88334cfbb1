// Package ledger owns the committed chain: block storage, the ledger
// state snapshot, transaction presence tracking, block application to
// the world state, and the WSV restore procedure.
package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ryjones/iroha/db"
	"github.com/ryjones/iroha/ledgerpb"
	"github.com/ryjones/iroha/log"
)

const (
	blockBucket = "BLOCKS"
	indexBucket = "BLOCKIDX"
)

var ErrBlockNotFound = errors.New("block not found")

// BlockStore persists committed blocks by height with a hash index.
type BlockStore struct {
	database db.Database
}

func NewBlockStore(d db.Database) *BlockStore {
	for _, bucket := range []string{blockBucket, indexBucket} {
		if err := d.NewBucket(bucket); err != nil {
			log.Fatalf("create db bucket %s failed: %v", bucket, err)
		}
	}
	return &BlockStore{database: d}
}

// heightKey is big-endian so heights iterate in order.
func heightKey(h uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], h)
	return b[:]
}

// Put appends a committed block. Heights must arrive contiguously.
func (bs *BlockStore) Put(block *ledgerpb.Block) error {
	top, err := bs.Height()
	if err != nil {
		return err
	}
	if block.Height != top+1 {
		return fmt.Errorf("non-contiguous block height %d on top %d", block.Height, top)
	}
	if err := bs.database.Put(blockBucket, heightKey(block.Height), block.Marshal()); err != nil {
		return fmt.Errorf("store block failed: %v", err)
	}
	hash := ledgerpb.BlockHash(block)
	if err := bs.database.Put(indexBucket, []byte(hash), heightKey(block.Height)); err != nil {
		return fmt.Errorf("index block failed: %v", err)
	}
	return nil
}

// Get retrieves a block by height.
func (bs *BlockStore) Get(height uint64) (*ledgerpb.Block, error) {
	v, err := bs.database.Get(blockBucket, heightKey(height))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, ErrBlockNotFound
		}
		return nil, err
	}
	return ledgerpb.DecodeBlock(v)
}

// GetByHash retrieves a block by its hash.
func (bs *BlockStore) GetByHash(hash string) (*ledgerpb.Block, error) {
	v, err := bs.database.Get(indexBucket, []byte(hash))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, ErrBlockNotFound
		}
		return nil, err
	}
	return bs.Get(binary.BigEndian.Uint64(v))
}

// Height returns the top block height, zero for an empty chain.
func (bs *BlockStore) Height() (uint64, error) {
	var top uint64
	err := bs.database.Iterate(blockBucket, nil, func(k, v []byte) bool {
		if len(k) == 8 {
			top = binary.BigEndian.Uint64(k)
		}
		return true
	})
	return top, err
}
