package executor

import (
	"github.com/ryjones/iroha/ledgerpb"
	"github.com/ryjones/iroha/permission"
	"github.com/ryjones/iroha/wsv"
)

// assetPrecision reads the asset entry, which stores the precision.
func (e *Executor) assetPrecision(assetID string) (uint32, *CommandError) {
	name, domain := splitAssetID(assetID)
	v, _, err := e.cursor.Get(wsv.AssetKey(domain, name), wsv.MustExist)
	if err != nil {
		return 0, makeError(CodeNoAccount, "asset %s does not exist", assetID)
	}
	p, perr := wsv.DecodeUint(v)
	if perr != nil {
		return 0, makeError(CodeException, "decode asset precision failed: %v", perr)
	}
	return uint32(p), nil
}

// accountBalance reads the stored balance, or the zero amount at the
// asset precision when the account never held the asset.
func (e *Executor) accountBalance(domain, name, assetID string, precision uint32) (*wsv.Amount, bool, *CommandError) {
	v, ok, err := e.cursor.Get(wsv.AccountAssetKey(domain, name, assetID), wsv.CanExist)
	if err != nil {
		return nil, false, makeError(CodeException, "read balance failed: %v", err)
	}
	if !ok {
		return wsv.NewAmount(precision), false, nil
	}
	bal, perr := wsv.ParseAmount(string(v))
	if perr != nil {
		return nil, true, makeError(CodeException, "stored balance corrupt: %v", perr)
	}
	return bal, true, nil
}

func (e *Executor) applyAddAssetQuantity(cmd *ledgerpb.AddAssetQuantity, creatorID string, doValidation bool, creatorPerms permission.RoleSet) *CommandError {
	creatorName, creatorDomain := splitAccountID(creatorID)
	_, assetDomain := splitAssetID(cmd.AssetID)

	if doValidation {
		if !permission.CheckDomain(assetDomain, creatorDomain, creatorPerms,
			permission.RoleAddAssetQty, permission.RoleAddDomainAssetQty) {
			return makeError(CodeNoPermissions, "not enough permissions")
		}
	}

	precision, cerr := e.assetPrecision(cmd.AssetID)
	if cerr != nil {
		return cerr
	}

	amount, perr := wsv.ParseAmount(cmd.Amount)
	if perr != nil {
		return makeError(CodeInvalidAssetAmount, "invalid amount %q", cmd.Amount)
	}

	assetsCount, _, cerr := e.getUint(wsv.AccountAssetsCountKey(creatorDomain, creatorName))
	if cerr != nil {
		return cerr
	}

	balance, held, cerr := e.accountBalance(creatorDomain, creatorName, cmd.AssetID, precision)
	if cerr != nil {
		return cerr
	}
	if !held {
		assetsCount++
	}

	result := balance.Add(amount)
	repr := result.StringRepr()
	if repr[0] == 'N' {
		return makeError(CodeInvalidAssetAmount, "invalid asset %s amount %s", cmd.AssetID, cmd.Amount)
	}

	if err := e.cursor.PutString(wsv.AccountAssetKey(creatorDomain, creatorName, cmd.AssetID), repr); err != nil {
		return makeError(CodeException, "store balance failed: %v", err)
	}
	if err := e.cursor.Put(wsv.AccountAssetsCountKey(creatorDomain, creatorName), wsv.EncodeUint(assetsCount)); err != nil {
		return makeError(CodeException, "store assets count failed: %v", err)
	}
	return nil
}

func (e *Executor) applySubtractAssetQuantity(cmd *ledgerpb.SubtractAssetQuantity, creatorID string, doValidation bool, creatorPerms permission.RoleSet) *CommandError {
	creatorName, creatorDomain := splitAccountID(creatorID)
	_, assetDomain := splitAssetID(cmd.AssetID)

	if doValidation {
		if !permission.CheckDomain(assetDomain, creatorDomain, creatorPerms,
			permission.RoleSubtractAssetQty, permission.RoleSubtractDomainAssetQty) {
			return makeError(CodeNoPermissions, "not enough permissions")
		}
	}

	precision, cerr := e.assetPrecision(cmd.AssetID)
	if cerr != nil {
		return cerr
	}

	amount, perr := wsv.ParseAmount(cmd.Amount)
	if perr != nil {
		return makeError(CodeInvalidAmount, "invalid amount %q", cmd.Amount)
	}
	if amount.Precision() > precision {
		return makeError(CodeInvalidAmount,
			"invalid precision of asset %s: expected at most %d, got %d",
			cmd.AssetID, precision, amount.Precision())
	}

	balance, _, cerr := e.accountBalance(creatorDomain, creatorName, cmd.AssetID, precision)
	if cerr != nil {
		return cerr
	}

	result := balance.Sub(amount)
	repr := result.StringRepr()
	if repr[0] == 'N' {
		return makeError(CodeInvalidAmount, "invalid %s amount %s from %s", cmd.AssetID, cmd.Amount, creatorID)
	}

	if err := e.cursor.PutString(wsv.AccountAssetKey(creatorDomain, creatorName, cmd.AssetID), repr); err != nil {
		return makeError(CodeException, "store balance failed: %v", err)
	}
	return nil
}

func (e *Executor) applyTransferAsset(cmd *ledgerpb.TransferAsset, creatorID string, doValidation bool, creatorPerms permission.RoleSet) *CommandError {
	srcName, srcDomain := splitAccountID(cmd.SrcAccountID)
	dstName, dstDomain := splitAccountID(cmd.DestAccountID)
	assetName, assetDomain := splitAssetID(cmd.AssetID)

	if _, _, err := e.cursor.Get(wsv.AccountKey(dstDomain, dstName), wsv.MustExist); err != nil {
		return makeError(CodeNoAccount, "destination account %s does not exist", cmd.DestAccountID)
	}
	if _, _, err := e.cursor.Get(wsv.AccountKey(srcDomain, srcName), wsv.MustExist); err != nil {
		return makeError(CodeNoAccount, "source account %s does not exist", cmd.SrcAccountID)
	}

	if doValidation {
		dstPerms, cerr := e.accountPermissions(cmd.DestAccountID)
		if cerr != nil {
			return cerr
		}
		if !permission.Check(dstPerms, permission.RoleReceive) {
			return makeError(CodeNoPermissions, "destination cannot receive")
		}

		if cmd.SrcAccountID != creatorID {
			grants, cerr := e.grantsFor(creatorID, cmd.SrcAccountID)
			if cerr != nil {
				return cerr
			}
			if !permission.CheckGrantable(creatorPerms, grants,
				permission.RoleTransfer, permission.GrantableTransferMyAssets) {
				return makeError(CodeNoPermissions, "not enough permissions")
			}
		} else if !permission.Check(creatorPerms, permission.RoleTransfer) {
			return makeError(CodeNoPermissions, "not enough permissions")
		}

		if _, _, err := e.cursor.Get(wsv.AssetKey(assetDomain, assetName), wsv.MustExist); err != nil {
			return makeError(CodeNoAccount, "asset %s does not exist", cmd.AssetID)
		}

		if max, ok, cerr := e.getUint(wsv.SettingKey(wsv.MaxDescriptionSizeKey)); cerr != nil {
			return cerr
		} else if ok && uint64(len(cmd.Description)) > max {
			return makeError(CodeInvalidFieldSize, "too big description")
		}
	}

	amount, perr := wsv.ParseAmount(cmd.Amount)
	if perr != nil {
		return makeError(CodeInvalidAmount, "invalid amount %q", cmd.Amount)
	}

	srcVal, _, err := e.cursor.Get(wsv.AccountAssetKey(srcDomain, srcName, cmd.AssetID), wsv.MustExist)
	if err != nil {
		return makeError(CodeNotEnoughAssets, "not enough assets")
	}
	srcBalance, perr := wsv.ParseAmount(string(srcVal))
	if perr != nil {
		return makeError(CodeException, "stored balance corrupt: %v", perr)
	}

	srcBalance = srcBalance.Sub(amount)
	if srcBalance.StringRepr()[0] == 'N' {
		return makeError(CodeNotEnoughAssets, "not enough assets")
	}

	dstAssetsCount, _, cerr := e.getUint(wsv.AccountAssetsCountKey(dstDomain, dstName))
	if cerr != nil {
		return cerr
	}
	dstBalance, held, cerr := e.accountBalance(dstDomain, dstName, cmd.AssetID, srcBalance.Precision())
	if cerr != nil {
		return cerr
	}
	if !held {
		dstAssetsCount++
	}

	dstBalance = dstBalance.Add(amount)
	if dstBalance.StringRepr()[0] == 'N' {
		return makeError(CodeIncorrectBalance, "incorrect balance")
	}

	if err := e.cursor.PutString(wsv.AccountAssetKey(srcDomain, srcName, cmd.AssetID), srcBalance.StringRepr()); err != nil {
		return makeError(CodeException, "store source balance failed: %v", err)
	}
	if err := e.cursor.PutString(wsv.AccountAssetKey(dstDomain, dstName, cmd.AssetID), dstBalance.StringRepr()); err != nil {
		return makeError(CodeException, "store destination balance failed: %v", err)
	}
	if err := e.cursor.Put(wsv.AccountAssetsCountKey(dstDomain, dstName), wsv.EncodeUint(dstAssetsCount)); err != nil {
		return makeError(CodeException, "store assets count failed: %v", err)
	}
	return nil
}

func (e *Executor) applyCreateAsset(cmd *ledgerpb.CreateAsset, doValidation bool, creatorPerms permission.RoleSet) *CommandError {
	if doValidation {
		if !permission.Check(creatorPerms, permission.RoleCreateAsset) {
			return makeError(CodeNoPermissions, "not enough permissions")
		}
		if _, _, err := e.cursor.Get(wsv.AssetKey(cmd.DomainID, cmd.AssetName), wsv.MustNotExist); err != nil {
			return makeError(CodeInvalidAmount, "asset %s#%s already exists", cmd.AssetName, cmd.DomainID)
		}
		if _, _, err := e.cursor.Get(wsv.DomainKey(cmd.DomainID), wsv.MustExist); err != nil {
			return makeError(CodeNoAccount, "domain %s does not exist", cmd.DomainID)
		}
	}
	if err := e.cursor.Put(wsv.AssetKey(cmd.DomainID, cmd.AssetName), wsv.EncodeUint(uint64(cmd.Precision))); err != nil {
		return makeError(CodeException, "store asset failed: %v", err)
	}
	return nil
}
