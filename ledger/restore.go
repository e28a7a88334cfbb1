package ledger

import (
	"fmt"
	"time"

	"github.com/ryjones/iroha/ledgerpb"
	"github.com/ryjones/iroha/log"
)

// waitForBlockInterval is how often the wait-for-new-blocks mode polls
// the block store for growth.
const waitForBlockInterval = 5 * time.Second

// Restorer rebuilds the world state from the block store by replaying
// committed blocks through the command executor.
type Restorer struct {
	store   *BlockStore
	applier *Applier

	// WaitForNewBlocks keeps the restore loop polling for chain
	// growth instead of returning at the top.
	WaitForNewBlocks bool
}

func NewRestorer(store *BlockStore, applier *Applier) *Restorer {
	return &Restorer{store: store, applier: applier}
}

// validateChained checks the replayed block extends the chain through
// the prev-hash link; the block height is not compared. Genesis has no
// predecessor.
func validateChained(block *ledgerpb.Block, prevHash string) error {
	if block.Height > 1 && block.PrevBlockHash != prevHash {
		return fmt.Errorf("block %d prev hash mismatch", block.Height)
	}
	return nil
}

// RestoreOnce replays [wsv_height+1, storage_top] in order.
func (r *Restorer) RestoreOnce() error {
	wsvHeight, err := r.applier.WsvHeight()
	if err != nil {
		return fmt.Errorf("read wsv height failed: %v", err)
	}
	top, err := r.store.Height()
	if err != nil {
		return fmt.Errorf("read storage height failed: %v", err)
	}
	if wsvHeight >= top {
		return nil
	}

	prevHash := ""
	if wsvHeight > 0 {
		prev, err := r.store.Get(wsvHeight)
		if err != nil {
			return err
		}
		prevHash = ledgerpb.BlockHash(prev)
	}

	for h := wsvHeight + 1; h <= top; h++ {
		block, err := r.store.Get(h)
		if err != nil {
			return err
		}
		if err := validateChained(block, prevHash); err != nil {
			return err
		}
		if err := r.applier.ApplyBlock(block); err != nil {
			return err
		}
		prevHash = ledgerpb.BlockHash(block)
		log.Infow("restored block", "height", h)
	}
	return nil
}

// Run restores and, in wait mode, keeps polling the store until the
// stop channel closes.
func (r *Restorer) Run(stopChan chan struct{}) error {
	if err := r.RestoreOnce(); err != nil {
		return err
	}
	if !r.WaitForNewBlocks {
		return nil
	}
	ticker := time.NewTicker(waitForBlockInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := r.RestoreOnce(); err != nil {
				return err
			}
		case <-stopChan:
			return nil
		}
	}
}
