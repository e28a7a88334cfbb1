package consensus

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/ryjones/iroha/ledgerpb"
	"github.com/ryjones/iroha/log"
)

// ResultCache remembers recently committed blocks by hash so the gate
// can serve a committed block without asking the network again.
type ResultCache struct {
	blocks *lru.Cache
}

func NewResultCache(size int) *ResultCache {
	cache, err := lru.New(size)
	if err != nil {
		log.Fatalf("create consensus result cache failed: %v", err)
	}
	return &ResultCache{blocks: cache}
}

// Put stores a committed block under its hash.
func (rc *ResultCache) Put(hash string, block *ledgerpb.Block) {
	rc.blocks.Add(hash, block)
}

// Get looks a block up by hash.
func (rc *ResultCache) Get(hash string) (*ledgerpb.Block, bool) {
	v, ok := rc.blocks.Get(hash)
	if !ok {
		return nil, false
	}
	return v.(*ledgerpb.Block), true
}
