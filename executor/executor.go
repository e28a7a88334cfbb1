// Package executor applies commands to the world state view under the
// active cursor, enforcing role- and grant-based permission rules.
package executor

import (
	"strings"

	"github.com/ryjones/iroha/ledgerpb"
	"github.com/ryjones/iroha/permission"
	"github.com/ryjones/iroha/wsv"
)

// GenesisCreator is the attribution id used when the creator account
// id is empty, which only happens in genesis blocks.
const GenesisCreator = "genesis"

// Executor applies one transaction's commands to the cursor it holds.
// It is single threaded: exactly one executor may hold a cursor.
type Executor struct {
	cursor *wsv.Cursor
}

func New(cursor *wsv.Cursor) *Executor {
	return &Executor{cursor: cursor}
}

// Cursor exposes the underlying cursor so callers can manage the
// transaction boundary (savepoints per transaction, commit per block).
func (e *Executor) Cursor() *wsv.Cursor {
	return e.cursor
}

// Execute applies a single command. With doValidation false (genesis,
// replay) permission checks are skipped but structural invariants
// still hold. Any panic is caught and reported as an exception so a
// malformed command can never take the block apply down.
func (e *Executor) Execute(cmd *ledgerpb.Command, creatorID, txHash string, cmdIndex int, doValidation bool) (cmdErr *CommandError) {
	name := commandName(cmd)
	defer func() {
		if r := recover(); r != nil {
			cmdErr = &CommandError{Command: name, Code: CodeException, Description: "unexpected failure"}
		}
		if cmdErr != nil {
			cmdErr.Command = name
		}
	}()

	var creatorPerms permission.RoleSet
	if doValidation {
		var err *CommandError
		creatorPerms, err = e.accountPermissions(creatorID)
		if err != nil {
			return err
		}
	}

	switch {
	case cmd.AddAssetQuantity != nil:
		return e.applyAddAssetQuantity(cmd.AddAssetQuantity, creatorID, doValidation, creatorPerms)
	case cmd.SubtractAssetQuantity != nil:
		return e.applySubtractAssetQuantity(cmd.SubtractAssetQuantity, creatorID, doValidation, creatorPerms)
	case cmd.TransferAsset != nil:
		return e.applyTransferAsset(cmd.TransferAsset, creatorID, doValidation, creatorPerms)
	case cmd.AddPeer != nil:
		return e.applyAddPeer(cmd.AddPeer, doValidation, creatorPerms)
	case cmd.RemovePeer != nil:
		return e.applyRemovePeer(cmd.RemovePeer, doValidation, creatorPerms)
	case cmd.AddSignatory != nil:
		return e.applyAddSignatory(cmd.AddSignatory, creatorID, doValidation, creatorPerms)
	case cmd.RemoveSignatory != nil:
		return e.applyRemoveSignatory(cmd.RemoveSignatory, creatorID, doValidation, creatorPerms)
	case cmd.SetQuorum != nil:
		return e.applySetQuorum(cmd.SetQuorum, creatorID, doValidation, creatorPerms)
	case cmd.SetAccountDetail != nil:
		return e.applySetAccountDetail(cmd.SetAccountDetail, creatorID, doValidation, creatorPerms)
	case cmd.CompareAndSetAccountDetail != nil:
		return e.applyCompareAndSetAccountDetail(cmd.CompareAndSetAccountDetail, creatorID, doValidation, creatorPerms)
	case cmd.CreateAccount != nil:
		return e.applyCreateAccount(cmd.CreateAccount, doValidation, creatorPerms)
	case cmd.CreateAsset != nil:
		return e.applyCreateAsset(cmd.CreateAsset, doValidation, creatorPerms)
	case cmd.CreateDomain != nil:
		return e.applyCreateDomain(cmd.CreateDomain, doValidation, creatorPerms)
	case cmd.CreateRole != nil:
		return e.applyCreateRole(cmd.CreateRole, doValidation, creatorPerms)
	case cmd.AppendRole != nil:
		return e.applyAppendRole(cmd.AppendRole, doValidation, creatorPerms)
	case cmd.DetachRole != nil:
		return e.applyDetachRole(cmd.DetachRole, doValidation, creatorPerms)
	case cmd.GrantPermission != nil:
		return e.applyGrantPermission(cmd.GrantPermission, creatorID, doValidation, creatorPerms)
	case cmd.RevokePermission != nil:
		return e.applyRevokePermission(cmd.RevokePermission, creatorID, doValidation, creatorPerms)
	case cmd.SetSettingValue != nil:
		return e.applySetSettingValue(cmd.SetSettingValue)
	case cmd.CallEngine != nil:
		return makeError(CodeNoImplementation, "not implemented")
	}
	return makeError(CodeException, "empty command")
}

func commandName(cmd *ledgerpb.Command) string {
	switch {
	case cmd.AddAssetQuantity != nil:
		return "AddAssetQuantity"
	case cmd.SubtractAssetQuantity != nil:
		return "SubtractAssetQuantity"
	case cmd.TransferAsset != nil:
		return "TransferAsset"
	case cmd.AddPeer != nil:
		return "AddPeer"
	case cmd.RemovePeer != nil:
		return "RemovePeer"
	case cmd.AddSignatory != nil:
		return "AddSignatory"
	case cmd.RemoveSignatory != nil:
		return "RemoveSignatory"
	case cmd.SetQuorum != nil:
		return "SetQuorum"
	case cmd.SetAccountDetail != nil:
		return "SetAccountDetail"
	case cmd.CompareAndSetAccountDetail != nil:
		return "CompareAndSetAccountDetail"
	case cmd.CreateAccount != nil:
		return "CreateAccount"
	case cmd.CreateAsset != nil:
		return "CreateAsset"
	case cmd.CreateDomain != nil:
		return "CreateDomain"
	case cmd.CreateRole != nil:
		return "CreateRole"
	case cmd.AppendRole != nil:
		return "AppendRole"
	case cmd.DetachRole != nil:
		return "DetachRole"
	case cmd.GrantPermission != nil:
		return "GrantPermission"
	case cmd.RevokePermission != nil:
		return "RevokePermission"
	case cmd.SetSettingValue != nil:
		return "SetSettingValue"
	case cmd.CallEngine != nil:
		return "CallEngine"
	}
	return "Unknown"
}

// splitAccountID splits name@domain. A missing delimiter leaves the
// whole id as the name with an empty domain.
func splitAccountID(id string) (name, domain string) {
	if i := strings.IndexByte(id, '@'); i >= 0 {
		return id[:i], id[i+1:]
	}
	return id, ""
}

// splitAssetID splits name#domain.
func splitAssetID(id string) (name, domain string) {
	if i := strings.IndexByte(id, '#'); i >= 0 {
		return id[:i], id[i+1:]
	}
	return id, ""
}

// accountPermissions resolves the union of the creator's role
// permissions, read once per command.
func (e *Executor) accountPermissions(accountID string) (permission.RoleSet, *CommandError) {
	name, domain := splitAccountID(accountID)
	var set permission.RoleSet
	found := false
	prefix := wsv.AccountRolePrefix(domain, name)
	err := e.cursor.Enumerate(prefix, func(key string, value []byte) bool {
		role := strings.TrimPrefix(key, prefix)
		bits, ok, gerr := e.cursor.Get(wsv.RoleKey(role), wsv.CanExist)
		if gerr != nil || !ok {
			return true
		}
		set |= permission.ParseRoleSet(string(bits))
		found = true
		return true
	})
	if err != nil {
		return 0, makeError(CodeException, "enumerate roles failed: %v", err)
	}
	if !found {
		return 0, makeError(CodeNoAccount, "no roles for account %s", accountID)
	}
	return set, nil
}

// grantsFor reads the grantable permissions the holder account carries
// from the grantor account.
func (e *Executor) grantsFor(holderID, grantorID string) (permission.GrantSet, *CommandError) {
	name, domain := splitAccountID(holderID)
	bits, ok, err := e.cursor.Get(wsv.GrantKey(domain, name, grantorID), wsv.CanExist)
	if err != nil {
		return 0, makeError(CodeException, "read grants failed: %v", err)
	}
	if !ok {
		return 0, nil
	}
	return permission.ParseGrantSet(string(bits)), nil
}

// signatoryCount counts the account's signatories via prefix scan.
func (e *Executor) signatoryCount(domain, name string) (uint64, *CommandError) {
	var counter uint64
	err := e.cursor.Enumerate(wsv.SignatoryPrefix(domain, name), func(key string, value []byte) bool {
		counter++
		return true
	})
	if err != nil {
		return 0, makeError(CodeException, "enumerate signatories failed: %v", err)
	}
	return counter, nil
}

// getUint reads a decimal counter, defaulting to 0 when absent.
func (e *Executor) getUint(key string) (uint64, bool, *CommandError) {
	v, ok, err := e.cursor.Get(key, wsv.CanExist)
	if err != nil {
		return 0, false, makeError(CodeException, "read %s failed: %v", key, err)
	}
	if !ok {
		return 0, false, nil
	}
	n, perr := wsv.DecodeUint(v)
	if perr != nil {
		return 0, true, makeError(CodeException, "decode %s failed: %v", key, perr)
	}
	return n, true, nil
}
