package ledger

import (
	"github.com/ryjones/iroha/ledgerpb"
)

// State is the snapshot consensus and ordering work against: the top
// block and the peer list it froze.
type State struct {
	Height  uint64
	TopHash string
	// PrevHash is the hash of the block before the top one.
	PrevHash string
	Peers    []*ledgerpb.Peer
}

// SnapshotState assembles the ledger state from the stores.
func SnapshotState(store *BlockStore, applier *Applier) (*State, error) {
	height, err := store.Height()
	if err != nil {
		return nil, err
	}
	state := &State{Height: height}

	if height > 0 {
		top, err := store.Get(height)
		if err != nil {
			return nil, err
		}
		state.TopHash = ledgerpb.BlockHash(top)
		state.PrevHash = top.PrevBlockHash
	}

	peers, err := applier.Peers()
	if err != nil {
		return nil, err
	}
	state.Peers = peers
	return state, nil
}
