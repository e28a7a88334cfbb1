// Package ordering implements the on-demand ordering service: the
// pending batch cache, per-round proposal assembly, the connection
// manager that routes batches and proposal requests to the peers
// responsible for a round, and the ordering gate.
package ordering

import (
	"sync"

	mapset "github.com/deckarep/golang-set"

	"github.com/ryjones/iroha/ledgerpb"
)

// BatchCache is the deduplicating in-memory store of pending
// multi-signed batches, keyed by batch hash and kept in insertion
// order for proposal assembly.
type BatchCache struct {
	mu sync.RWMutex

	order   []string
	batches map[string]*ledgerpb.Batch

	// hashes of transactions currently cached, for removal by tx hash
	txHashes mapset.Set

	txCount int
}

func NewBatchCache() *BatchCache {
	return &BatchCache{
		batches:  make(map[string]*ledgerpb.Batch),
		txHashes: mapset.NewSet(),
	}
}

// Insert adds the batch unless it is already cached. It reports
// whether the batch was inserted.
func (bc *BatchCache) Insert(batch *ledgerpb.Batch) bool {
	hash := ledgerpb.BatchHash(batch)

	bc.mu.Lock()
	defer bc.mu.Unlock()

	if _, ok := bc.batches[hash]; ok {
		return false
	}
	bc.batches[hash] = batch
	bc.order = append(bc.order, hash)
	for _, tx := range batch.Transactions {
		bc.txHashes.Add(ledgerpb.TxHash(tx))
	}
	bc.txCount += len(batch.Transactions)
	return true
}

// Remove drops every batch containing any of the given transaction
// hashes. Called when transactions commit or expire.
func (bc *BatchCache) Remove(hashes map[string]struct{}) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	keep := bc.order[:0]
	for _, bh := range bc.order {
		batch := bc.batches[bh]
		matched := false
		for _, tx := range batch.Transactions {
			if _, ok := hashes[ledgerpb.TxHash(tx)]; ok {
				matched = true
				break
			}
		}
		if matched {
			delete(bc.batches, bh)
			for _, tx := range batch.Transactions {
				bc.txHashes.Remove(ledgerpb.TxHash(tx))
			}
			bc.txCount -= len(batch.Transactions)
			continue
		}
		keep = append(keep, bh)
	}
	bc.order = keep
}

// Drain collects transactions from batches in insertion order while
// the cumulative transaction count fits the limit. Batches stay cached
// until their transactions commit.
func (bc *BatchCache) Drain(limitTxs int) []*ledgerpb.Transaction {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	var txs []*ledgerpb.Transaction
	for _, bh := range bc.order {
		batch := bc.batches[bh]
		if len(txs)+len(batch.Transactions) > limitTxs {
			break
		}
		txs = append(txs, batch.Transactions...)
	}
	return txs
}

// Contains reports whether a transaction hash is currently cached.
func (bc *BatchCache) Contains(txHash string) bool {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.txHashes.Contains(txHash)
}

// TxCount returns the total cached transaction count.
func (bc *BatchCache) TxCount() int {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.txCount
}

// Empty reports whether nothing is cached.
func (bc *BatchCache) Empty() bool {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return len(bc.order) == 0
}
