package executor

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
	adminID = "admin@test"
	bobID   = "bob@test"
	coinID  = "coin#test"

	adminPubkey = "aa11223344556677889900aabbccddeeff00112233445566778899aabbccddee"
	bobPubkey   = "bb11223344556677889900aabbccddeeff00112233445566778899aabbccddee"
	peerPubkey  = "cc11223344556677889900aabbccddeeff00112233445566778899aabbccddee"
)

// newGenesisExecutor builds a world with the admin role (all
// permissions), a user default role, the test domain, admin@test, the
// coin asset and one peer, the way a genesis block would.
func newGenesisExecutor(t *testing.T) *Executor {
	storage := wsv.NewStorage(memdb.New())
	cursor, err := storage.Begin()
	require.Nil(t, err)
	e := New(cursor)

	genesis := []*ledgerpb.Command{
		{CreateRole: &ledgerpb.CreateRole{
			RoleName:    "admin",
			Permissions: []int32{int32(permission.RoleRoot)},
		}},
		{CreateRole: &ledgerpb.CreateRole{
			RoleName: "user",
			Permissions: []int32{
				int32(permission.RoleReceive),
				int32(permission.RoleTransfer),
				int32(permission.RoleAddSignatory),
				int32(permission.RoleRemoveSignatory),
				int32(permission.RoleSetQuorum),
			},
		}},
		{CreateDomain: &ledgerpb.CreateDomain{DomainID: "test", DefaultRole: "user"}},
		{CreateAccount: &ledgerpb.CreateAccount{AccountName: "admin", DomainID: "test", Pubkey: adminPubkey}},
		{AppendRole: &ledgerpb.AppendRole{AccountID: adminID, RoleName: "admin"}},
		{CreateAsset: &ledgerpb.CreateAsset{AssetName: "coin", DomainID: "test", Precision: 2}},
		{AddPeer: &ledgerpb.AddPeer{Peer: &ledgerpb.Peer{Address: "localhost:10001", Pubkey: peerPubkey}}},
	}
	for i, cmd := range genesis {
		cerr := e.Execute(cmd, "", "genesis", i, false)
		require.Nil(t, cerr, "genesis command %d", i)
	}
	return e
}

func balance(t *testing.T, e *Executor, domain, name, asset string) string {
	v, ok, err := e.Cursor().Get(wsv.AccountAssetKey(domain, name, asset), wsv.CanExist)
	require.Nil(t, err)
	require.True(t, ok)
	return string(v)
}

func TestCreateAccountWithDefaultRole(t *testing.T) {
	e := newGenesisExecutor(t)

	cerr := e.Execute(&ledgerpb.Command{
		CreateAccount: &ledgerpb.CreateAccount{AccountName: "bob", DomainID: "test", Pubkey: bobPubkey},
	}, adminID, "tx1", 0, true)
	require.Nil(t, cerr)

	v, ok, err := e.Cursor().Get(wsv.QuorumKey("test", "bob"), wsv.CanExist)
	require.Nil(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", string(v))

	_, ok, _ = e.Cursor().Get(wsv.AccountRoleKey("test", "bob", "user"), wsv.CanExist)
	assert.True(t, ok)
}

func TestCreateAccountWithoutPermissionDenied(t *testing.T) {
	e := newGenesisExecutor(t)

	// bob has the plain user role and cannot create accounts at all
	require.Nil(t, e.Execute(&ledgerpb.Command{
		CreateAccount: &ledgerpb.CreateAccount{AccountName: "bob", DomainID: "test", Pubkey: bobPubkey},
	}, adminID, "tx1", 0, true))

	cerr := e.Execute(&ledgerpb.Command{
		CreateAccount: &ledgerpb.CreateAccount{AccountName: "eve", DomainID: "test", Pubkey: peerPubkey},
	}, bobID, "tx2", 0, true)
	require.NotNil(t, cerr)
	assert.Equal(t, CodeNoPermissions, cerr.Code)
}

func TestAddAndTransferAsset(t *testing.T) {
	e := newGenesisExecutor(t)
	require.Nil(t, e.Execute(&ledgerpb.Command{
		CreateAccount: &ledgerpb.CreateAccount{AccountName: "bob", DomainID: "test", Pubkey: bobPubkey},
	}, adminID, "tx1", 0, true))

	cerr := e.Execute(&ledgerpb.Command{
		AddAssetQuantity: &ledgerpb.AddAssetQuantity{AssetID: coinID, Amount: "10.50"},
	}, adminID, "tx2", 0, true)
	require.Nil(t, cerr)

	cerr = e.Execute(&ledgerpb.Command{
		TransferAsset: &ledgerpb.TransferAsset{
			SrcAccountID: adminID, DestAccountID: bobID, AssetID: coinID, Amount: "3.25",
		},
	}, adminID, "tx3", 0, true)
	require.Nil(t, cerr)

	assert.Equal(t, "7.25", balance(t, e, "test", "admin", coinID))
	assert.Equal(t, "3.25", balance(t, e, "test", "bob", coinID))

	ac, _, err := e.Cursor().Get(wsv.AccountAssetsCountKey("test", "admin"), wsv.CanExist)
	require.Nil(t, err)
	assert.Equal(t, "1", string(ac))
	bc, _, err := e.Cursor().Get(wsv.AccountAssetsCountKey("test", "bob"), wsv.CanExist)
	require.Nil(t, err)
	assert.Equal(t, "1", string(bc))
}

func TestTransferConservation(t *testing.T) {
	e := newGenesisExecutor(t)
	require.Nil(t, e.Execute(&ledgerpb.Command{
		CreateAccount: &ledgerpb.CreateAccount{AccountName: "bob", DomainID: "test", Pubkey: bobPubkey},
	}, adminID, "tx1", 0, true))
	require.Nil(t, e.Execute(&ledgerpb.Command{
		AddAssetQuantity: &ledgerpb.AddAssetQuantity{AssetID: coinID, Amount: "100.00"},
	}, adminID, "tx2", 0, true))

	for i := 0; i < 5; i++ {
		require.Nil(t, e.Execute(&ledgerpb.Command{
			TransferAsset: &ledgerpb.TransferAsset{
				SrcAccountID: adminID, DestAccountID: bobID, AssetID: coinID, Amount: "0.37",
			},
		}, adminID, "tx", i, true))
	}

	src, _ := wsv.ParseAmount(balance(t, e, "test", "admin", coinID))
	dst, _ := wsv.ParseAmount(balance(t, e, "test", "bob", coinID))
	assert.Equal(t, "100.00", src.Add(dst).StringRepr())
}

func TestTransferInsufficientFunds(t *testing.T) {
	e := newGenesisExecutor(t)
	require.Nil(t, e.Execute(&ledgerpb.Command{
		CreateAccount: &ledgerpb.CreateAccount{AccountName: "bob", DomainID: "test", Pubkey: bobPubkey},
	}, adminID, "tx1", 0, true))
	require.Nil(t, e.Execute(&ledgerpb.Command{
		AddAssetQuantity: &ledgerpb.AddAssetQuantity{AssetID: coinID, Amount: "1.00"},
	}, adminID, "tx2", 0, true))

	cerr := e.Execute(&ledgerpb.Command{
		TransferAsset: &ledgerpb.TransferAsset{
			SrcAccountID: adminID, DestAccountID: bobID, AssetID: coinID, Amount: "2.00",
		},
	}, adminID, "tx3", 0, true)
	require.NotNil(t, cerr)
	assert.Equal(t, CodeNotEnoughAssets, cerr.Code)
}

func TestTransferDescriptionLimit(t *testing.T) {
	e := newGenesisExecutor(t)
	require.Nil(t, e.Execute(&ledgerpb.Command{
		CreateAccount: &ledgerpb.CreateAccount{AccountName: "bob", DomainID: "test", Pubkey: bobPubkey},
	}, adminID, "tx1", 0, true))
	require.Nil(t, e.Execute(&ledgerpb.Command{
		AddAssetQuantity: &ledgerpb.AddAssetQuantity{AssetID: coinID, Amount: "10.00"},
	}, adminID, "tx2", 0, true))
	require.Nil(t, e.Execute(&ledgerpb.Command{
		SetSettingValue: &ledgerpb.SetSettingValue{Key: wsv.MaxDescriptionSizeKey, Value: "5"},
	}, adminID, "tx3", 0, true))

	cerr := e.Execute(&ledgerpb.Command{
		TransferAsset: &ledgerpb.TransferAsset{
			SrcAccountID: adminID, DestAccountID: bobID, AssetID: coinID,
			Amount: "1.00", Description: "toolongdescription",
		},
	}, adminID, "tx4", 0, true)
	require.NotNil(t, cerr)
	assert.Equal(t, CodeInvalidFieldSize, cerr.Code)
}

func TestSubtractAssetPrecisionMismatch(t *testing.T) {
	e := newGenesisExecutor(t)
	require.Nil(t, e.Execute(&ledgerpb.Command{
		AddAssetQuantity: &ledgerpb.AddAssetQuantity{AssetID: coinID, Amount: "10.00"},
	}, adminID, "tx1", 0, true))

	cerr := e.Execute(&ledgerpb.Command{
		SubtractAssetQuantity: &ledgerpb.SubtractAssetQuantity{AssetID: coinID, Amount: "0.001"},
	}, adminID, "tx2", 0, true)
	require.NotNil(t, cerr)
	assert.Equal(t, CodeInvalidAmount, cerr.Code)
}

func TestRemoveLastPeerRejected(t *testing.T) {
	e := newGenesisExecutor(t)

	cerr := e.Execute(&ledgerpb.Command{
		RemovePeer: &ledgerpb.RemovePeer{Pubkey: peerPubkey},
	}, adminID, "tx1", 0, true)
	require.NotNil(t, cerr)
	assert.Equal(t, CodePeersCountIsNotEnough, cerr.Code)

	// with two peers removal works and the counter follows
	require.Nil(t, e.Execute(&ledgerpb.Command{
		AddPeer: &ledgerpb.AddPeer{Peer: &ledgerpb.Peer{Address: "localhost:10002", Pubkey: bobPubkey}},
	}, adminID, "tx2", 0, true))
	require.Nil(t, e.Execute(&ledgerpb.Command{
		RemovePeer: &ledgerpb.RemovePeer{Pubkey: bobPubkey},
	}, adminID, "tx3", 0, true))

	count, _, err := e.Cursor().Get(wsv.PeersCountKey(), wsv.CanExist)
	require.Nil(t, err)
	assert.Equal(t, "1", string(count))
}

func TestSignatoryQuorumInvariant(t *testing.T) {
	e := newGenesisExecutor(t)
	require.Nil(t, e.Execute(&ledgerpb.Command{
		CreateAccount: &ledgerpb.CreateAccount{AccountName: "bob", DomainID: "test", Pubkey: bobPubkey},
	}, adminID, "tx1", 0, true))

	// removing the only signatory would break |signatories| >= quorum
	cerr := e.Execute(&ledgerpb.Command{
		RemoveSignatory: &ledgerpb.RemoveSignatory{AccountID: bobID, Pubkey: bobPubkey},
	}, bobID, "tx2", 0, true)
	require.NotNil(t, cerr)
	assert.Equal(t, CodeCountNotEnough, cerr.Code)

	require.Nil(t, e.Execute(&ledgerpb.Command{
		AddSignatory: &ledgerpb.AddSignatory{AccountID: bobID, Pubkey: peerPubkey},
	}, bobID, "tx3", 0, true))
	require.Nil(t, e.Execute(&ledgerpb.Command{
		RemoveSignatory: &ledgerpb.RemoveSignatory{AccountID: bobID, Pubkey: bobPubkey},
	}, bobID, "tx4", 0, true))

	// quorum above signatory count is rejected
	cerr = e.Execute(&ledgerpb.Command{
		SetQuorum: &ledgerpb.SetQuorum{AccountID: bobID, Quorum: 2},
	}, bobID, "tx5", 0, true)
	require.NotNil(t, cerr)
	assert.Equal(t, CodeCountNotEnough, cerr.Code)
}

func TestCompareAndSetEquivalence(t *testing.T) {
	e := newGenesisExecutor(t)

	require.Nil(t, e.Execute(&ledgerpb.Command{
		SetAccountDetail: &ledgerpb.SetAccountDetail{AccountID: adminID, Key: "color", Value: "red"},
	}, adminID, "tx1", 0, true))

	// CAS with oldValue = current behaves like SetAccountDetail
	old := "red"
	require.Nil(t, e.Execute(&ledgerpb.Command{
		CompareAndSetAccountDetail: &ledgerpb.CompareAndSetAccountDetail{
			AccountID: adminID, Key: "color", Value: "blue", OldValue: &old,
		},
	}, adminID, "tx2", 0, true))

	v, _, err := e.Cursor().Get(wsv.AccountDetailKey("test", "admin", adminID, "color"), wsv.CanExist)
	require.Nil(t, err)
	assert.Equal(t, "blue", string(v))

	// a stale oldValue is rejected
	stale := "red"
	cerr := e.Execute(&ledgerpb.Command{
		CompareAndSetAccountDetail: &ledgerpb.CompareAndSetAccountDetail{
			AccountID: adminID, Key: "color", Value: "green", OldValue: &stale,
		},
	}, adminID, "tx3", 0, true)
	require.NotNil(t, cerr)
	assert.Equal(t, CodeIncorrectOldValue, cerr.Code)

	// checkEmpty: expecting absence on a present key fails
	cerr = e.Execute(&ledgerpb.Command{
		CompareAndSetAccountDetail: &ledgerpb.CompareAndSetAccountDetail{
			AccountID: adminID, Key: "color", Value: "green", CheckEmpty: true,
		},
	}, adminID, "tx4", 0, true)
	require.NotNil(t, cerr)
	assert.Equal(t, CodeIncorrectOldValue, cerr.Code)
}

func TestGenesisDetailAttribution(t *testing.T) {
	e := newGenesisExecutor(t)

	require.Nil(t, e.Execute(&ledgerpb.Command{
		SetAccountDetail: &ledgerpb.SetAccountDetail{AccountID: adminID, Key: "origin", Value: "boot"},
	}, "", "genesis", 0, false))

	v, ok, err := e.Cursor().Get(wsv.AccountDetailKey("test", "admin", GenesisCreator, "origin"), wsv.CanExist)
	require.Nil(t, err)
	assert.True(t, ok)
	assert.Equal(t, "boot", string(v))
}

func TestGrantRevokeRoundTrip(t *testing.T) {
	e := newGenesisExecutor(t)
	require.Nil(t, e.Execute(&ledgerpb.Command{
		CreateAccount: &ledgerpb.CreateAccount{AccountName: "bob", DomainID: "test", Pubkey: bobPubkey},
	}, adminID, "tx1", 0, true))

	grant := &ledgerpb.Command{GrantPermission: &ledgerpb.GrantPermission{
		AccountID: bobID, Permission: int32(permission.GrantableSetMyAccountDetail),
	}}
	require.Nil(t, e.Execute(grant, adminID, "tx2", 0, true))

	// double grant fails
	cerr := e.Execute(grant, adminID, "tx3", 0, true)
	require.NotNil(t, cerr)
	assert.Equal(t, CodePermissionIsAlreadySet, cerr.Code)

	// bob can now write admin's details
	require.Nil(t, e.Execute(&ledgerpb.Command{
		SetAccountDetail: &ledgerpb.SetAccountDetail{AccountID: adminID, Key: "note", Value: "hi"},
	}, bobID, "tx4", 0, true))

	require.Nil(t, e.Execute(&ledgerpb.Command{
		RevokePermission: &ledgerpb.RevokePermission{
			AccountID: bobID, Permission: int32(permission.GrantableSetMyAccountDetail),
		},
	}, adminID, "tx5", 0, true))

	// grant bitstring is back to empty: a second revoke fails
	cerr = e.Execute(&ledgerpb.Command{
		RevokePermission: &ledgerpb.RevokePermission{
			AccountID: bobID, Permission: int32(permission.GrantableSetMyAccountDetail),
		},
	}, adminID, "tx6", 0, true)
	require.NotNil(t, cerr)
	assert.Equal(t, CodeNoPermissions, cerr.Code)
}

func TestCreateRoleEscalationDenied(t *testing.T) {
	e := newGenesisExecutor(t)
	require.Nil(t, e.Execute(&ledgerpb.Command{
		CreateAccount: &ledgerpb.CreateAccount{AccountName: "bob", DomainID: "test", Pubkey: bobPubkey},
	}, adminID, "tx1", 0, true))

	cerr := e.Execute(&ledgerpb.Command{
		CreateRole: &ledgerpb.CreateRole{
			RoleName:    "power",
			Permissions: []int32{int32(permission.RoleAddPeer)},
		},
	}, bobID, "tx2", 0, true)
	require.NotNil(t, cerr)
	assert.Equal(t, CodeNoPermissions, cerr.Code)
}

func TestCreateRoleRootExpansion(t *testing.T) {
	e := newGenesisExecutor(t)

	require.Nil(t, e.Execute(&ledgerpb.Command{
		CreateRole: &ledgerpb.CreateRole{
			RoleName:    "super",
			Permissions: []int32{int32(permission.RoleRoot)},
		},
	}, adminID, "tx1", 0, true))

	bits, _, err := e.Cursor().Get(wsv.RoleKey("super"), wsv.CanExist)
	require.Nil(t, err)
	set := permission.ParseRoleSet(string(bits))
	for i := permission.Role(0); i < permission.RoleCount; i++ {
		assert.True(t, set.IsSet(i))
	}
}

func TestCallEngineNotImplemented(t *testing.T) {
	e := newGenesisExecutor(t)
	cerr := e.Execute(&ledgerpb.Command{
		CallEngine: &ledgerpb.CallEngine{Caller: adminID, Callee: "0x0", Input: ""},
	}, adminID, "tx1", 0, true)
	require.NotNil(t, cerr)
	assert.Equal(t, CodeNoImplementation, cerr.Code)
}

func TestDuplicateRoleRejected(t *testing.T) {
	e := newGenesisExecutor(t)
	cerr := e.Execute(&ledgerpb.Command{
		CreateRole: &ledgerpb.CreateRole{RoleName: "admin", Permissions: []int32{int32(permission.RoleReceive)}},
	}, adminID, "tx1", 0, true)
	require.NotNil(t, cerr)
	assert.Equal(t, CodeRoleAlreadyExists, cerr.Code)
}
