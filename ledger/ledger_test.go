package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryjones/iroha/db/memdb"
	"github.com/ryjones/iroha/ledgerpb"
	"github.com/ryjones/iroha/permission"
	"github.com/ryjones/iroha/wsv"
)

const (
	adminPubkey = "aa11223344556677889900aabbccddeeff00112233445566778899aabbccddee"
	bobPubkey   = "bb11223344556677889900aabbccddeeff00112233445566778899aabbccddee"
	peerPubkey  = "cc11223344556677889900aabbccddeeff00112233445566778899aabbccddee"
)

func genesisBlock() *ledgerpb.Block {
	genesisTx := &ledgerpb.Transaction{
		CreatedTime: 1000,
		Quorum:      1,
		Commands: []*ledgerpb.Command{
			{CreateRole: &ledgerpb.CreateRole{RoleName: "admin", Permissions: []int32{int32(permission.RoleRoot)}}},
			{CreateRole: &ledgerpb.CreateRole{RoleName: "user", Permissions: []int32{
				int32(permission.RoleReceive), int32(permission.RoleTransfer),
			}}},
			{CreateDomain: &ledgerpb.CreateDomain{DomainID: "test", DefaultRole: "user"}},
			{CreateAccount: &ledgerpb.CreateAccount{AccountName: "admin", DomainID: "test", Pubkey: adminPubkey}},
			{AppendRole: &ledgerpb.AppendRole{AccountID: "admin@test", RoleName: "admin"}},
			{CreateAsset: &ledgerpb.CreateAsset{AssetName: "coin", DomainID: "test", Precision: 2}},
			{AddPeer: &ledgerpb.AddPeer{Peer: &ledgerpb.Peer{Address: "localhost:10001", Pubkey: peerPubkey}}},
		},
	}
	return &ledgerpb.Block{
		Height:       1,
		CreatedTime:  1000,
		Transactions: []*ledgerpb.Transaction{genesisTx},
	}
}

func paymentBlock(prevHash string) *ledgerpb.Block {
	tx1 := &ledgerpb.Transaction{
		CreatorAccountID: "admin@test",
		CreatedTime:      2000,
		Quorum:           1,
		Commands: []*ledgerpb.Command{
			{CreateAccount: &ledgerpb.CreateAccount{AccountName: "bob", DomainID: "test", Pubkey: bobPubkey}},
			{AddAssetQuantity: &ledgerpb.AddAssetQuantity{AssetID: "coin#test", Amount: "10.50"}},
			{TransferAsset: &ledgerpb.TransferAsset{
				SrcAccountID: "admin@test", DestAccountID: "bob@test",
				AssetID: "coin#test", Amount: "3.25",
			}},
		},
	}
	return &ledgerpb.Block{
		Height:        2,
		PrevBlockHash: prevHash,
		CreatedTime:   2000,
		Transactions:  []*ledgerpb.Transaction{tx1},
	}
}

func dumpWSV(t *testing.T, storage *wsv.Storage) map[string]string {
	cursor, err := storage.Begin()
	require.Nil(t, err)
	defer cursor.Rollback()
	out := make(map[string]string)
	require.Nil(t, cursor.Enumerate("", func(key string, value []byte) bool {
		out[key] = string(value)
		return true
	}))
	return out
}

func TestBlockStoreRoundTrip(t *testing.T) {
	store := NewBlockStore(memdb.New())

	g := genesisBlock()
	require.Nil(t, store.Put(g))

	h, err := store.Height()
	require.Nil(t, err)
	assert.Equal(t, uint64(1), h)

	got, err := store.Get(1)
	require.Nil(t, err)
	assert.Equal(t, ledgerpb.BlockHash(g), ledgerpb.BlockHash(got))

	byHash, err := store.GetByHash(ledgerpb.BlockHash(g))
	require.Nil(t, err)
	assert.Equal(t, uint64(1), byHash.Height)

	_, err = store.Get(5)
	assert.ErrorIs(t, err, ErrBlockNotFound)

	// gaps are refused
	err = store.Put(&ledgerpb.Block{Height: 5})
	assert.NotNil(t, err)
}

func TestApplyAndRestoreYieldIdenticalState(t *testing.T) {
	// node A: applies blocks as they commit
	storageA := wsv.NewStorage(memdb.New())
	applierA := NewApplier(storageA)

	g := genesisBlock()
	require.Nil(t, applierA.ApplyBlock(g))
	b2 := paymentBlock(ledgerpb.BlockHash(g))
	require.Nil(t, applierA.ApplyBlock(b2))

	// node B: restores the same chain from storage
	store := NewBlockStore(memdb.New())
	require.Nil(t, store.Put(g))
	require.Nil(t, store.Put(b2))

	storageB := wsv.NewStorage(memdb.New())
	applierB := NewApplier(storageB)
	restorer := NewRestorer(store, applierB)
	require.Nil(t, restorer.RestoreOnce())

	assert.Equal(t, dumpWSV(t, storageA), dumpWSV(t, storageB))

	h, err := applierB.WsvHeight()
	require.Nil(t, err)
	assert.Equal(t, uint64(2), h)

	// restore is incremental: a second pass is a no-op
	require.Nil(t, restorer.RestoreOnce())
	assert.Equal(t, dumpWSV(t, storageA), dumpWSV(t, storageB))
}

func TestRestoreRejectsBrokenChain(t *testing.T) {
	store := NewBlockStore(memdb.New())
	g := genesisBlock()
	require.Nil(t, store.Put(g))
	bad := paymentBlock("ffff")
	require.Nil(t, store.Put(bad))

	storage := wsv.NewStorage(memdb.New())
	restorer := NewRestorer(store, NewApplier(storage))
	assert.NotNil(t, restorer.RestoreOnce())
}

func TestValidateProposalSplitsTransactions(t *testing.T) {
	storage := wsv.NewStorage(memdb.New())
	applier := NewApplier(storage)
	require.Nil(t, applier.ApplyBlock(genesisBlock()))

	good := &ledgerpb.Transaction{
		CreatorAccountID: "admin@test",
		CreatedTime:      3000,
		Quorum:           1,
		Commands: []*ledgerpb.Command{
			{AddAssetQuantity: &ledgerpb.AddAssetQuantity{AssetID: "coin#test", Amount: "1.00"}},
		},
	}
	// overdraws: stateful validation must reject it
	bad := &ledgerpb.Transaction{
		CreatorAccountID: "admin@test",
		CreatedTime:      3001,
		Quorum:           1,
		Commands: []*ledgerpb.Command{
			{SubtractAssetQuantity: &ledgerpb.SubtractAssetQuantity{AssetID: "coin#test", Amount: "99.00"}},
		},
	}

	valid, rejected, err := applier.ValidateProposal(&ledgerpb.Proposal{
		Height:       2,
		CreatedTime:  3000,
		Transactions: []*ledgerpb.Transaction{good, bad},
	})
	require.Nil(t, err)
	assert.Equal(t, 1, len(valid))
	assert.Equal(t, []string{ledgerpb.TxHash(bad)}, rejected)

	// the dry run leaves the world state untouched
	h, err := applier.WsvHeight()
	require.Nil(t, err)
	assert.Equal(t, uint64(1), h)
	cursor, err := storage.Begin()
	require.Nil(t, err)
	defer cursor.Rollback()
	_, ok, _ := cursor.Get(wsv.AccountAssetKey("test", "admin", "coin#test"), wsv.CanExist)
	assert.False(t, ok)
}

func TestTxPresenceCache(t *testing.T) {
	database := memdb.New()
	cache := NewTxPresenceCache(database, 16)

	g := genesisBlock()
	b2 := paymentBlock(ledgerpb.BlockHash(g))
	b2.RejectedHashes = []string{"deadbeef"}
	require.Nil(t, cache.MarkBlock(b2))

	status, ok := cache.Status(ledgerpb.TxHash(b2.Transactions[0]))
	assert.True(t, ok)
	assert.Equal(t, TxCommitted, status)

	status, ok = cache.Status("deadbeef")
	assert.True(t, ok)
	assert.Equal(t, TxRejected, status)

	_, ok = cache.Status("0000")
	assert.False(t, ok)

	// a batch whose first transaction is known is already processed
	batch := &ledgerpb.Batch{Transactions: b2.Transactions}
	assert.True(t, cache.AlreadyProcessed(batch))

	// a cold cache still answers from the status bucket
	cold := NewTxPresenceCache(database, 16)
	assert.True(t, cold.AlreadyProcessed(batch))
}
