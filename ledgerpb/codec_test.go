package ledgerpb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTx() *Transaction {
	return &Transaction{
		CreatorAccountID: "admin@test",
		CreatedTime:      1700000000000,
		Quorum:           1,
		Commands: []*Command{
			{AddAssetQuantity: &AddAssetQuantity{AssetID: "coin#test", Amount: "10.50"}},
			{TransferAsset: &TransferAsset{
				SrcAccountID: "admin@test", DestAccountID: "bob@test",
				AssetID: "coin#test", Description: "rent", Amount: "3.25",
			}},
		},
		Signatures: []*Signature{{Pubkey: "aa", Signature: "bb"}},
	}
}

func TestTxHashExcludesSignatures(t *testing.T) {
	tx := sampleTx()
	h := TxHash(tx)

	signed := sampleTx()
	signed.Signatures = append(signed.Signatures, &Signature{Pubkey: "cc", Signature: "dd"})
	assert.Equal(t, h, TxHash(signed))

	changed := sampleTx()
	changed.CreatedTime++
	assert.NotEqual(t, h, TxHash(changed))
}

func TestTransactionDecode(t *testing.T) {
	tx := sampleTx()
	decoded, err := DecodeTransaction(tx.Marshal())
	require.Nil(t, err)

	assert.Equal(t, tx.CreatorAccountID, decoded.CreatorAccountID)
	assert.Equal(t, tx.CreatedTime, decoded.CreatedTime)
	assert.Equal(t, tx.Quorum, decoded.Quorum)
	require.Equal(t, 2, len(decoded.Commands))
	require.NotNil(t, decoded.Commands[0].AddAssetQuantity)
	assert.Equal(t, "10.50", decoded.Commands[0].AddAssetQuantity.Amount)
	require.NotNil(t, decoded.Commands[1].TransferAsset)
	assert.Equal(t, "rent", decoded.Commands[1].TransferAsset.Description)
	require.Equal(t, 1, len(decoded.Signatures))

	// hash survives the round trip
	assert.Equal(t, TxHash(tx), TxHash(decoded))
}

func TestCompareAndSetOldValuePresence(t *testing.T) {
	empty := ""
	withOld := &Command{CompareAndSetAccountDetail: &CompareAndSetAccountDetail{
		AccountID: "a@d", Key: "k", Value: "v", OldValue: &empty,
	}}
	withoutOld := &Command{CompareAndSetAccountDetail: &CompareAndSetAccountDetail{
		AccountID: "a@d", Key: "k", Value: "v",
	}}

	// an empty old value is still a present old value on the wire
	assert.NotEqual(t, withOld.Marshal(), withoutOld.Marshal())

	decoded := &Command{}
	require.Nil(t, decoded.Unmarshal(withOld.Marshal()))
	require.NotNil(t, decoded.CompareAndSetAccountDetail.OldValue)
	assert.Equal(t, "", *decoded.CompareAndSetAccountDetail.OldValue)

	decoded = &Command{}
	require.Nil(t, decoded.Unmarshal(withoutOld.Marshal()))
	assert.Nil(t, decoded.CompareAndSetAccountDetail.OldValue)
}

func TestBatchHashConcatenatesTxHashes(t *testing.T) {
	b := &Batch{Transactions: []*Transaction{sampleTx()}, Type: BatchAtomic}
	h1 := BatchHash(b)

	reordered := &Batch{Transactions: []*Transaction{sampleTx(), sampleTx()}, Type: BatchAtomic}
	reordered.Transactions[1].CreatedTime++
	h2 := BatchHash(reordered)
	assert.NotEqual(t, h1, h2)

	// member order matters
	swapped := &Batch{Transactions: []*Transaction{
		reordered.Transactions[1], reordered.Transactions[0],
	}}
	assert.NotEqual(t, h2, BatchHash(swapped))
}

func TestBlockRoundTrip(t *testing.T) {
	block := &Block{
		Height:         2,
		PrevBlockHash:  "aabb",
		CreatedTime:    1700000000001,
		Transactions:   []*Transaction{sampleTx()},
		RejectedHashes: []string{"deadbeef"},
		Signatures:     []*Signature{{Pubkey: "ee", Signature: "ff"}},
	}
	decoded, err := DecodeBlock(block.Marshal())
	require.Nil(t, err)

	assert.Equal(t, BlockHash(block), BlockHash(decoded))
	assert.Equal(t, block.RejectedHashes, decoded.RejectedHashes)
	require.Equal(t, 1, len(decoded.Signatures))

	// signatures stay out of the payload hash
	unsigned := *block
	unsigned.Signatures = nil
	assert.Equal(t, BlockHash(block), BlockHash(&unsigned))
}

func TestVoteStateRoundTrip(t *testing.T) {
	state := &State{Votes: []*Vote{{
		Hash: &YacHash{BlockRound: 5, RejectRound: 1, ProposalHash: "p", BlockHash: "b"},
		Signature: &Signature{Pubkey: "peer", Signature: "sig"},
	}}}
	decoded := &State{}
	require.Nil(t, decoded.Unmarshal(state.Marshal()))
	require.Equal(t, 1, len(decoded.Votes))
	assert.Equal(t, uint64(5), decoded.Votes[0].Hash.BlockRound)
	assert.Equal(t, "p", decoded.Votes[0].Hash.ProposalHash)
	assert.Equal(t, "peer", decoded.Votes[0].Signature.Pubkey)
}

func TestCreateRolePackedPermissions(t *testing.T) {
	cmd := &Command{CreateRole: &CreateRole{RoleName: "admin", Permissions: []int32{0, 5, 24}}}
	decoded := &Command{}
	require.Nil(t, decoded.Unmarshal(cmd.Marshal()))
	assert.Equal(t, []int32{0, 5, 24}, decoded.CreateRole.Permissions)
}
