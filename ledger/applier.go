package ledger

import (
	"fmt"

	"github.com/ryjones/iroha/executor"
	"github.com/ryjones/iroha/ledgerpb"
	"github.com/ryjones/iroha/log"
	"github.com/ryjones/iroha/wsv"
)

// wsvHeightKey tracks the height the world state reflects. It lives in
// the WSV bucket so it commits atomically with the block's writes.
const wsvHeightKey = "height"

const txSavepoint = "tx"

// Applier drives the command executor over blocks and proposals.
type Applier struct {
	storage *wsv.Storage
}

func NewApplier(storage *wsv.Storage) *Applier {
	return &Applier{storage: storage}
}

// applyTx runs one transaction under its own savepoint. A failing
// command rolls the whole transaction back and reports the error.
func applyTx(exec *executor.Executor, tx *ledgerpb.Transaction, doValidation bool) *executor.CommandError {
	cursor := exec.Cursor()
	cursor.Savepoint(txSavepoint)
	txHash := ledgerpb.TxHash(tx)
	for i, cmd := range tx.Commands {
		if cerr := exec.Execute(cmd, tx.CreatorAccountID, txHash, i, doValidation); cerr != nil {
			cursor.RollbackToSavepoint(txSavepoint)
			cursor.ReleaseSavepoint(txSavepoint)
			return cerr
		}
	}
	cursor.ReleaseSavepoint(txSavepoint)
	return nil
}

// ValidateProposal dry-runs the proposal's transactions and splits
// them into the valid set and the rejected hashes. World state is
// untouched.
func (a *Applier) ValidateProposal(p *ledgerpb.Proposal) ([]*ledgerpb.Transaction, []string, error) {
	cursor, err := a.storage.Begin()
	if err != nil {
		return nil, nil, err
	}
	defer cursor.Rollback()
	exec := executor.New(cursor)

	var valid []*ledgerpb.Transaction
	var rejected []string
	for _, tx := range p.Transactions {
		if cerr := applyTx(exec, tx, true); cerr != nil {
			log.Infow("transaction rejected by stateful validation",
				"tx", ledgerpb.TxHash(tx), "code", cerr.Code, "reason", cerr.Description)
			rejected = append(rejected, ledgerpb.TxHash(tx))
			continue
		}
		valid = append(valid, tx)
	}
	return valid, rejected, nil
}

// ApplyBlock applies a committed block to the world state under one
// transaction. Genesis (height 1) skips permission validation. Any
// transaction failure aborts the whole block.
func (a *Applier) ApplyBlock(block *ledgerpb.Block) error {
	cursor, err := a.storage.Begin()
	if err != nil {
		return err
	}
	exec := executor.New(cursor)

	doValidation := block.Height > 1
	for _, tx := range block.Transactions {
		if cerr := applyTx(exec, tx, doValidation); cerr != nil {
			cursor.Rollback()
			return fmt.Errorf("apply block %d failed: %v", block.Height, cerr)
		}
	}
	if err := cursor.Put(wsvHeightKey, wsv.EncodeUint(block.Height)); err != nil {
		cursor.Rollback()
		return err
	}
	return cursor.Commit()
}

// WsvHeight reads the height the world state reflects.
func (a *Applier) WsvHeight() (uint64, error) {
	cursor, err := a.storage.Begin()
	if err != nil {
		return 0, err
	}
	defer cursor.Rollback()
	v, ok, err := cursor.Get(wsvHeightKey, wsv.CanExist)
	if err != nil || !ok {
		return 0, err
	}
	return wsv.DecodeUint(v)
}

// Peers reads the current peer list from the world state, ordered by
// pubkey for cluster-wide determinism.
func (a *Applier) Peers() ([]*ledgerpb.Peer, error) {
	cursor, err := a.storage.Begin()
	if err != nil {
		return nil, err
	}
	defer cursor.Rollback()

	var peers []*ledgerpb.Peer
	prefix := wsv.PeerAddressPrefix()
	err = cursor.Enumerate(prefix, func(key string, value []byte) bool {
		peers = append(peers, &ledgerpb.Peer{
			Pubkey:  key[len(prefix):],
			Address: string(value),
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	return peers, nil
}
