package executor

import (
	"strings"

	"github.com/ryjones/iroha/ledgerpb"
	"github.com/ryjones/iroha/permission"
	"github.com/ryjones/iroha/wsv"
)

func (e *Executor) applyAddPeer(cmd *ledgerpb.AddPeer, doValidation bool, creatorPerms permission.RoleSet) *CommandError {
	if cmd.Peer == nil || cmd.Peer.Pubkey == "" {
		return makeError(CodePublicKeyIsEmpty, "pubkey empty")
	}
	pubkey := strings.ToLower(cmd.Peer.Pubkey)

	if doValidation {
		if !permission.Check(creatorPerms, permission.RoleAddPeer) {
			return makeError(CodeNoPermissions, "not enough permissions")
		}
	}

	if _, _, err := e.cursor.Get(wsv.PeerAddressKey(pubkey), wsv.MustNotExist); err != nil {
		return makeError(CodeNoAccount, "peer %s already exists", pubkey)
	}

	count, _, cerr := e.getUint(wsv.PeersCountKey())
	if cerr != nil {
		return cerr
	}
	if err := e.cursor.Put(wsv.PeersCountKey(), wsv.EncodeUint(count+1)); err != nil {
		return makeError(CodeException, "store peers count failed: %v", err)
	}
	if err := e.cursor.PutString(wsv.PeerAddressKey(pubkey), cmd.Peer.Address); err != nil {
		return makeError(CodeException, "store peer address failed: %v", err)
	}
	if cmd.Peer.TLSCertificate != "" {
		if err := e.cursor.PutString(wsv.PeerTLSKey(pubkey), cmd.Peer.TLSCertificate); err != nil {
			return makeError(CodeException, "store peer tls failed: %v", err)
		}
	}
	return nil
}

func (e *Executor) applyRemovePeer(cmd *ledgerpb.RemovePeer, doValidation bool, creatorPerms permission.RoleSet) *CommandError {
	if cmd.Pubkey == "" {
		return makeError(CodePublicKeyIsEmpty, "pubkey empty")
	}
	pubkey := strings.ToLower(cmd.Pubkey)

	if doValidation {
		if !permission.Check(creatorPerms, permission.RoleRemovePeer) {
			return makeError(CodeNoPermissions, "not enough permissions")
		}
	}

	if _, _, err := e.cursor.Get(wsv.PeerAddressKey(pubkey), wsv.MustExist); err != nil {
		return makeError(CodeNoAccount, "peer %s does not exist", pubkey)
	}

	count, ok, cerr := e.getUint(wsv.PeersCountKey())
	if cerr != nil {
		return cerr
	}
	if !ok {
		return makeError(CodeException, "peers count missing")
	}
	if count == 1 {
		return makeError(CodePeersCountIsNotEnough, "can not remove last peer %s", pubkey)
	}

	if err := e.cursor.Put(wsv.PeersCountKey(), wsv.EncodeUint(count-1)); err != nil {
		return makeError(CodeException, "store peers count failed: %v", err)
	}
	if err := e.cursor.Delete(wsv.PeerAddressKey(pubkey)); err != nil {
		return makeError(CodeException, "delete peer address failed: %v", err)
	}
	if err := e.cursor.Delete(wsv.PeerTLSKey(pubkey)); err != nil {
		return makeError(CodeException, "delete peer tls failed: %v", err)
	}
	return nil
}

func (e *Executor) applyCreateDomain(cmd *ledgerpb.CreateDomain, doValidation bool, creatorPerms permission.RoleSet) *CommandError {
	if doValidation {
		// no privilege escalation check here
		if !permission.Check(creatorPerms, permission.RoleCreateDomain) {
			return makeError(CodeNoPermissions, "not enough permissions")
		}
		if _, _, err := e.cursor.Get(wsv.DomainKey(cmd.DomainID), wsv.MustNotExist); err != nil {
			return makeError(CodeNoAccount, "domain %s already exists", cmd.DomainID)
		}
		if _, _, err := e.cursor.Get(wsv.RoleKey(cmd.DefaultRole), wsv.MustExist); err != nil {
			return makeError(CodeNoAccount, "role %s does not exist", cmd.DefaultRole)
		}
	}

	count, _, cerr := e.getUint(wsv.DomainsCountKey())
	if cerr != nil {
		return cerr
	}
	if err := e.cursor.Put(wsv.DomainsCountKey(), wsv.EncodeUint(count+1)); err != nil {
		return makeError(CodeException, "store domains count failed: %v", err)
	}
	if err := e.cursor.PutString(wsv.DomainKey(cmd.DomainID), cmd.DefaultRole); err != nil {
		return makeError(CodeException, "store domain failed: %v", err)
	}
	return nil
}

func (e *Executor) applyCreateRole(cmd *ledgerpb.CreateRole, doValidation bool, creatorPerms permission.RoleSet) *CommandError {
	var rolePerms permission.RoleSet
	for _, p := range cmd.Permissions {
		rolePerms = rolePerms.Set(permission.Role(p))
	}
	if rolePerms.IsSet(permission.RoleRoot) {
		rolePerms = rolePerms.SetAll()
	}

	if doValidation {
		if !permission.Check(creatorPerms, permission.RoleCreateRole) {
			return makeError(CodeNoPermissions, "not enough permissions")
		}
		if !rolePerms.IsSubsetOf(creatorPerms) {
			return makeError(CodeNoPermissions, "not enough permissions")
		}
	}

	if _, _, err := e.cursor.Get(wsv.RoleKey(cmd.RoleName), wsv.MustNotExist); err != nil {
		return makeError(CodeRoleAlreadyExists, "role already exists")
	}

	if err := e.cursor.PutString(wsv.RoleKey(cmd.RoleName), rolePerms.Bitstring()); err != nil {
		return makeError(CodeException, "store role failed: %v", err)
	}
	return nil
}

func (e *Executor) applyAppendRole(cmd *ledgerpb.AppendRole, doValidation bool, creatorPerms permission.RoleSet) *CommandError {
	name, domain := splitAccountID(cmd.AccountID)

	if doValidation {
		if !permission.Check(creatorPerms, permission.RoleAppendRole) {
			return makeError(CodeNoPermissions, "not enough permissions")
		}
		bits, _, err := e.cursor.Get(wsv.RoleKey(cmd.RoleName), wsv.MustExist)
		if err != nil {
			return makeError(CodeNoAccount, "role %s does not exist", cmd.RoleName)
		}
		if !permission.ParseRoleSet(string(bits)).IsSubsetOf(creatorPerms) {
			return makeError(CodeNoPermissions, "not enough permissions")
		}
	}

	if _, _, err := e.cursor.Get(wsv.AccountKey(domain, name), wsv.MustExist); err != nil {
		return makeError(CodeNoAccount, "account %s does not exist", cmd.AccountID)
	}
	if _, _, err := e.cursor.Get(wsv.AccountRoleKey(domain, name, cmd.RoleName), wsv.MustNotExist); err != nil {
		return makeError(CodeNoAccount, "account already has role %s", cmd.RoleName)
	}

	if err := e.cursor.PutString(wsv.AccountRoleKey(domain, name, cmd.RoleName), ""); err != nil {
		return makeError(CodeException, "store account role failed: %v", err)
	}
	return nil
}

func (e *Executor) applyDetachRole(cmd *ledgerpb.DetachRole, doValidation bool, creatorPerms permission.RoleSet) *CommandError {
	name, domain := splitAccountID(cmd.AccountID)

	if doValidation {
		if !permission.Check(creatorPerms, permission.RoleDetachRole) {
			return makeError(CodeNoPermissions, "not enough permissions")
		}
	}

	if _, _, err := e.cursor.Get(wsv.RoleKey(cmd.RoleName), wsv.MustExist); err != nil {
		return makeError(CodeNoAccount, "role %s does not exist", cmd.RoleName)
	}
	if doValidation {
		if _, _, err := e.cursor.Get(wsv.AccountRoleKey(domain, name, cmd.RoleName), wsv.MustExist); err != nil {
			return makeError(CodeNoAccount, "account does not have role %s", cmd.RoleName)
		}
	}

	if err := e.cursor.Delete(wsv.AccountRoleKey(domain, name, cmd.RoleName)); err != nil {
		return makeError(CodeException, "delete account role failed: %v", err)
	}
	return nil
}

func (e *Executor) applyGrantPermission(cmd *ledgerpb.GrantPermission, creatorID string, doValidation bool, creatorPerms permission.RoleSet) *CommandError {
	granted := permission.Grantable(cmd.Permission)
	name, domain := splitAccountID(cmd.AccountID)

	if doValidation {
		if !permission.Check(creatorPerms, permission.PermissionFor(granted)) {
			return makeError(CodeNoPermissions, "not enough permissions")
		}
		if _, _, err := e.cursor.Get(wsv.AccountKey(domain, name), wsv.MustExist); err != nil {
			return makeError(CodeNoAccount, "account %s does not exist", cmd.AccountID)
		}
	}

	// the grantee (command target) holds permissions granted by the creator
	grants, cerr := e.grantsFor(cmd.AccountID, creatorID)
	if cerr != nil {
		return cerr
	}
	if grants.IsSet(granted) {
		return makeError(CodePermissionIsAlreadySet, "permission is already set")
	}

	grants = grants.Set(granted)
	if err := e.cursor.PutString(wsv.GrantKey(domain, name, creatorID), grants.Bitstring()); err != nil {
		return makeError(CodeException, "store grants failed: %v", err)
	}
	return nil
}

func (e *Executor) applyRevokePermission(cmd *ledgerpb.RevokePermission, creatorID string, doValidation bool, creatorPerms permission.RoleSet) *CommandError {
	revoked := permission.Grantable(cmd.Permission)
	name, domain := splitAccountID(cmd.AccountID)

	if doValidation {
		if !permission.Check(creatorPerms, permission.PermissionFor(revoked)) {
			return makeError(CodeNoPermissions, "not enough permissions")
		}
		if _, _, err := e.cursor.Get(wsv.AccountKey(domain, name), wsv.MustExist); err != nil {
			return makeError(CodeNoAccount, "account %s does not exist", cmd.AccountID)
		}
	}

	grants, cerr := e.grantsFor(cmd.AccountID, creatorID)
	if cerr != nil {
		return cerr
	}
	if !grants.IsSet(revoked) {
		return makeError(CodeNoPermissions, "permission not set")
	}

	grants = grants.Unset(revoked)
	if err := e.cursor.PutString(wsv.GrantKey(domain, name, creatorID), grants.Bitstring()); err != nil {
		return makeError(CodeException, "store grants failed: %v", err)
	}
	return nil
}

func (e *Executor) applySetSettingValue(cmd *ledgerpb.SetSettingValue) *CommandError {
	if err := e.cursor.PutString(wsv.SettingKey(cmd.Key), cmd.Value); err != nil {
		return makeError(CodeException, "store setting failed: %v", err)
	}
	return nil
}
