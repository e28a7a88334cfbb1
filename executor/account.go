package executor

import (
	"strings"

	"github.com/ryjones/iroha/ledgerpb"
	"github.com/ryjones/iroha/permission"
	"github.com/ryjones/iroha/wsv"
)

func (e *Executor) applyAddSignatory(cmd *ledgerpb.AddSignatory, creatorID string, doValidation bool, creatorPerms permission.RoleSet) *CommandError {
	name, domain := splitAccountID(cmd.AccountID)

	if doValidation {
		if creatorID == cmd.AccountID {
			if !permission.Check(creatorPerms, permission.RoleAddSignatory) {
				return makeError(CodeNoPermissions, "not enough permissions")
			}
		} else {
			grants, cerr := e.grantsFor(creatorID, cmd.AccountID)
			if cerr != nil {
				return cerr
			}
			if !grants.IsSet(permission.GrantableAddMySignatory) {
				return makeError(CodeNoPermissions, "not enough permissions")
			}
		}
	}

	if _, _, err := e.cursor.Get(wsv.AccountKey(domain, name), wsv.MustExist); err != nil {
		return makeError(CodeNoAccount, "account %s does not exist", cmd.AccountID)
	}

	pubkey := strings.ToLower(cmd.Pubkey)
	if _, _, err := e.cursor.Get(wsv.SignatoryKey(domain, name, pubkey), wsv.MustNotExist); err != nil {
		return makeError(CodeNoSignatory, "signatory already exists")
	}

	if err := e.cursor.PutString(wsv.SignatoryKey(domain, name, pubkey), ""); err != nil {
		return makeError(CodeException, "store signatory failed: %v", err)
	}
	if err := e.cursor.PutString(wsv.SignatoryUniqueKey(pubkey), ""); err != nil {
		return makeError(CodeException, "store signatory marker failed: %v", err)
	}
	return nil
}

func (e *Executor) applyRemoveSignatory(cmd *ledgerpb.RemoveSignatory, creatorID string, doValidation bool, creatorPerms permission.RoleSet) *CommandError {
	name, domain := splitAccountID(cmd.AccountID)
	pubkey := strings.ToLower(cmd.Pubkey)

	if doValidation {
		qv, _, err := e.cursor.Get(wsv.QuorumKey(domain, name), wsv.MustExist)
		if err != nil {
			return makeError(CodeNoAccount, "account %s does not exist", cmd.AccountID)
		}
		quorum, perr := wsv.DecodeUint(qv)
		if perr != nil {
			return makeError(CodeException, "decode quorum failed: %v", perr)
		}

		if creatorID == cmd.AccountID {
			if !permission.Check(creatorPerms, permission.RoleRemoveSignatory) {
				return makeError(CodeNoPermissions, "not enough permissions")
			}
		} else {
			grants, cerr := e.grantsFor(creatorID, cmd.AccountID)
			if cerr != nil {
				return cerr
			}
			if !grants.IsSet(permission.GrantableRemoveMySignatory) {
				return makeError(CodeNoPermissions, "not enough permissions")
			}
		}

		if _, _, err := e.cursor.Get(wsv.SignatoryKey(domain, name, pubkey), wsv.MustExist); err != nil {
			return makeError(CodeNoSignatory, "no such signatory")
		}

		counter, cerr := e.signatoryCount(domain, name)
		if cerr != nil {
			return cerr
		}
		if counter <= quorum {
			return makeError(CodeCountNotEnough,
				"remove signatory %s for account %s with quorum %d failed", pubkey, cmd.AccountID, quorum)
		}
	}

	if err := e.cursor.Delete(wsv.SignatoryKey(domain, name, pubkey)); err != nil {
		return makeError(CodeException, "delete signatory failed: %v", err)
	}
	return nil
}

func (e *Executor) applySetQuorum(cmd *ledgerpb.SetQuorum, creatorID string, doValidation bool, creatorPerms permission.RoleSet) *CommandError {
	name, domain := splitAccountID(cmd.AccountID)

	if doValidation {
		if _, _, err := e.cursor.Get(wsv.AccountKey(domain, name), wsv.MustExist); err != nil {
			return makeError(CodeNoAccount, "account %s does not exist", cmd.AccountID)
		}
		grants, cerr := e.grantsFor(creatorID, cmd.AccountID)
		if cerr != nil {
			return cerr
		}
		if creatorID == cmd.AccountID {
			if !permission.Check(creatorPerms, permission.RoleSetQuorum) {
				return makeError(CodeNoPermissions, "not enough permissions")
			}
		} else if !permission.CheckGrantable(creatorPerms, grants,
			permission.RoleSetQuorum, permission.GrantableSetMyQuorum) {
			return makeError(CodeNoPermissions, "not enough permissions")
		}
	}

	counter, cerr := e.signatoryCount(domain, name)
	if cerr != nil {
		return cerr
	}
	if uint64(cmd.Quorum) > counter {
		return makeError(CodeCountNotEnough, "quorum value more than signatories")
	}

	if err := e.cursor.Put(wsv.QuorumKey(domain, name), wsv.EncodeUint(uint64(cmd.Quorum))); err != nil {
		return makeError(CodeException, "store quorum failed: %v", err)
	}
	return nil
}

func (e *Executor) applySetAccountDetail(cmd *ledgerpb.SetAccountDetail, creatorID string, doValidation bool, creatorPerms permission.RoleSet) *CommandError {
	name, domain := splitAccountID(cmd.AccountID)

	if doValidation {
		if cmd.AccountID != creatorID {
			grants, cerr := e.grantsFor(creatorID, cmd.AccountID)
			if cerr != nil {
				return cerr
			}
			if !permission.CheckGrantable(creatorPerms, grants,
				permission.RoleSetDetail, permission.GrantableSetMyAccountDetail) {
				return makeError(CodeNoPermissions, "not enough permissions")
			}
		}
		if _, _, err := e.cursor.Get(wsv.AccountKey(domain, name), wsv.MustExist); err != nil {
			return makeError(CodeNoAccount, "account %s does not exist", cmd.AccountID)
		}
	}

	writer := creatorID
	if writer == "" {
		writer = GenesisCreator
	}

	_, existed, err := e.cursor.Get(wsv.AccountDetailKey(domain, name, writer, cmd.Key), wsv.CanExist)
	if err != nil {
		return makeError(CodeException, "read detail failed: %v", err)
	}

	if perr := e.cursor.PutString(wsv.AccountDetailKey(domain, name, writer, cmd.Key), cmd.Value); perr != nil {
		return makeError(CodeException, "store detail failed: %v", perr)
	}

	if !existed {
		count, _, cerr := e.getUint(wsv.AccountDetailsCountKey(domain, name))
		if cerr != nil {
			return cerr
		}
		if perr := e.cursor.Put(wsv.AccountDetailsCountKey(domain, name), wsv.EncodeUint(count+1)); perr != nil {
			return makeError(CodeException, "store details count failed: %v", perr)
		}
	}
	return nil
}

func (e *Executor) applyCompareAndSetAccountDetail(cmd *ledgerpb.CompareAndSetAccountDetail, creatorID string, doValidation bool, creatorPerms permission.RoleSet) *CommandError {
	name, domain := splitAccountID(cmd.AccountID)

	if doValidation {
		grants, cerr := e.grantsFor(creatorID, cmd.AccountID)
		if cerr != nil {
			return cerr
		}
		if !permission.CheckGrantable(creatorPerms, grants,
			permission.RoleGetMyAccDetail, permission.GrantableSetMyAccountDetail) {
			return makeError(CodeNoPermissions, "not enough permissions")
		}
	}

	writer := creatorID
	if writer == "" {
		writer = GenesisCreator
	}

	if _, _, err := e.cursor.Get(wsv.AccountKey(domain, name), wsv.MustExist); err != nil {
		return makeError(CodeNoAccount, "account %s does not exist", cmd.AccountID)
	}

	stored, exists, err := e.cursor.Get(wsv.AccountDetailKey(domain, name, writer, cmd.Key), wsv.CanExist)
	if err != nil {
		return makeError(CodeException, "read detail failed: %v", err)
	}

	eq := cmd.OldValue != nil && exists && string(stored) == *cmd.OldValue
	var same bool
	if cmd.CheckEmpty {
		same = cmd.OldValue == nil && !exists
	} else {
		same = !exists
	}

	if !eq && !same {
		return makeError(CodeIncorrectOldValue, "old value incorrect")
	}

	if perr := e.cursor.PutString(wsv.AccountDetailKey(domain, name, writer, cmd.Key), cmd.Value); perr != nil {
		return makeError(CodeException, "store detail failed: %v", perr)
	}
	if !exists {
		count, _, cerr := e.getUint(wsv.AccountDetailsCountKey(domain, name))
		if cerr != nil {
			return cerr
		}
		if perr := e.cursor.Put(wsv.AccountDetailsCountKey(domain, name), wsv.EncodeUint(count+1)); perr != nil {
			return makeError(CodeException, "store details count failed: %v", perr)
		}
	}
	return nil
}

func (e *Executor) applyCreateAccount(cmd *ledgerpb.CreateAccount, doValidation bool, creatorPerms permission.RoleSet) *CommandError {
	pubkey := strings.ToLower(cmd.Pubkey)
	if pubkey == "" {
		return makeError(CodePublicKeyIsEmpty, "pubkey empty")
	}

	if doValidation {
		if !permission.Check(creatorPerms, permission.RoleCreateAccount) {
			return makeError(CodeNoPermissions, "not enough permissions")
		}
	}

	drv, _, err := e.cursor.Get(wsv.DomainKey(cmd.DomainID), wsv.MustExist)
	if err != nil {
		return makeError(CodeNoAccount, "domain %s does not exist", cmd.DomainID)
	}
	defaultRole := string(drv)

	bits, _, err := e.cursor.Get(wsv.RoleKey(defaultRole), wsv.MustExist)
	if err != nil {
		return makeError(CodeNoAccount, "default role %s does not exist", defaultRole)
	}
	rolePerms := permission.ParseRoleSet(string(bits))

	// default role must not escalate above the creator
	if doValidation && !rolePerms.IsSubsetOf(creatorPerms) {
		return makeError(CodeNoPermissions, "not enough permissions")
	}

	if doValidation {
		if _, _, err := e.cursor.Get(wsv.AccountKey(cmd.DomainID, cmd.AccountName), wsv.MustNotExist); err != nil {
			return makeError(CodeNoAccount, "account %s@%s already exists", cmd.AccountName, cmd.DomainID)
		}
	}

	if perr := e.cursor.PutString(wsv.AccountKey(cmd.DomainID, cmd.AccountName), ""); perr != nil {
		return makeError(CodeException, "store account failed: %v", perr)
	}
	if perr := e.cursor.PutString(wsv.AccountRoleKey(cmd.DomainID, cmd.AccountName, defaultRole), ""); perr != nil {
		return makeError(CodeException, "store account role failed: %v", perr)
	}
	if perr := e.cursor.PutString(wsv.SignatoryKey(cmd.DomainID, cmd.AccountName, pubkey), ""); perr != nil {
		return makeError(CodeException, "store signatory failed: %v", perr)
	}
	if perr := e.cursor.PutString(wsv.SignatoryUniqueKey(pubkey), ""); perr != nil {
		return makeError(CodeException, "store signatory marker failed: %v", perr)
	}
	if perr := e.cursor.Put(wsv.QuorumKey(cmd.DomainID, cmd.AccountName), wsv.EncodeUint(1)); perr != nil {
		return makeError(CodeException, "store quorum failed: %v", perr)
	}
	return nil
}
