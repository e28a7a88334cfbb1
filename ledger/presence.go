package ledger

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/ryjones/iroha/db"
	"github.com/ryjones/iroha/ledgerpb"
	"github.com/ryjones/iroha/log"
)

const txStatusBucket = "TXSTATUS"

// Terminal transaction statuses tracked for replay protection.
const (
	TxCommitted = "committed"
	TxRejected  = "rejected"
)

// TxPresenceCache answers whether a transaction was already committed
// or rejected, LRU in front of the status bucket.
type TxPresenceCache struct {
	database db.Database
	statuses *lru.Cache
}

func NewTxPresenceCache(d db.Database, size int) *TxPresenceCache {
	if err := d.NewBucket(txStatusBucket); err != nil {
		log.Fatalf("create db bucket %s failed: %v", txStatusBucket, err)
	}
	cache, err := lru.New(size)
	if err != nil {
		log.Fatalf("create tx presence cache failed: %v", err)
	}
	return &TxPresenceCache{database: d, statuses: cache}
}

// MarkBlock records the terminal status of every transaction the
// block carries, committed and rejected alike.
func (tc *TxPresenceCache) MarkBlock(block *ledgerpb.Block) error {
	for _, tx := range block.Transactions {
		if err := tc.mark(ledgerpb.TxHash(tx), TxCommitted); err != nil {
			return err
		}
	}
	for _, hash := range block.RejectedHashes {
		if err := tc.mark(hash, TxRejected); err != nil {
			return err
		}
	}
	return nil
}

func (tc *TxPresenceCache) mark(hash, status string) error {
	tc.statuses.Add(hash, status)
	return tc.database.Put(txStatusBucket, []byte(hash), []byte(status))
}

// Status reports the terminal status of a transaction hash.
func (tc *TxPresenceCache) Status(hash string) (string, bool) {
	if v, ok := tc.statuses.Get(hash); ok {
		return v.(string), true
	}
	v, err := tc.database.Get(txStatusBucket, []byte(hash))
	if err != nil {
		return "", false
	}
	status := string(v)
	tc.statuses.Add(hash, status)
	return status, true
}

// AlreadyProcessed reports whether any member transaction of the
// batch reached a terminal status.
func (tc *TxPresenceCache) AlreadyProcessed(batch *ledgerpb.Batch) bool {
	for _, tx := range batch.Transactions {
		if _, ok := tc.Status(ledgerpb.TxHash(tx)); ok {
			return true
		}
	}
	return false
}
