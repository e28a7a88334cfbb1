package ledgerpb

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

var errTruncated = fmt.Errorf("truncated message")

func consumeString(b []byte) (string, int, error) {
	v, n := protowire.ConsumeString(b)
	if n < 0 {
		return "", 0, errTruncated
	}
	return v, n, nil
}

func consumeUint(b []byte) (uint64, int, error) {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, errTruncated
	}
	return v, n, nil
}

func consumeBytes(b []byte) ([]byte, int, error) {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, errTruncated
	}
	return v, n, nil
}

// walk iterates the fields of a message buffer, dispatching each to fn
// and skipping fields fn does not consume (it returns 0).
func walk(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errTruncated
		}
		b = b[n:]
		used, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if used == 0 {
			used = protowire.ConsumeFieldValue(num, typ, b)
			if used < 0 {
				return errTruncated
			}
		}
		b = b[used:]
	}
	return nil
}

func (p *Peer) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var err error
		var n int
		switch num {
		case 1:
			p.Address, n, err = consumeString(b)
		case 2:
			p.Pubkey, n, err = consumeString(b)
		case 3:
			p.TLSCertificate, n, err = consumeString(b)
		}
		return n, err
	})
}

func (s *Signature) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var err error
		var n int
		switch num {
		case 1:
			s.Pubkey, n, err = consumeString(b)
		case 2:
			s.Signature, n, err = consumeString(b)
		}
		return n, err
	})
}

func unmarshalTwoStrings(b []byte, first, second *string) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var err error
		var n int
		switch num {
		case 1:
			*first, n, err = consumeString(b)
		case 2:
			*second, n, err = consumeString(b)
		}
		return n, err
	})
}

func (c *AddAssetQuantity) Unmarshal(b []byte) error {
	return unmarshalTwoStrings(b, &c.AssetID, &c.Amount)
}

func (c *SubtractAssetQuantity) Unmarshal(b []byte) error {
	return unmarshalTwoStrings(b, &c.AssetID, &c.Amount)
}

func (c *TransferAsset) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var err error
		var n int
		switch num {
		case 1:
			c.SrcAccountID, n, err = consumeString(b)
		case 2:
			c.DestAccountID, n, err = consumeString(b)
		case 3:
			c.AssetID, n, err = consumeString(b)
		case 4:
			c.Description, n, err = consumeString(b)
		case 5:
			c.Amount, n, err = consumeString(b)
		}
		return n, err
	})
}

func (c *AddPeer) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			body, n, err := consumeBytes(b)
			if err != nil {
				return 0, err
			}
			c.Peer = &Peer{}
			return n, c.Peer.Unmarshal(body)
		}
		return 0, nil
	})
}

func (c *RemovePeer) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			v, n, err := consumeString(b)
			c.Pubkey = v
			return n, err
		}
		return 0, nil
	})
}

func (c *AddSignatory) Unmarshal(b []byte) error {
	return unmarshalTwoStrings(b, &c.AccountID, &c.Pubkey)
}

func (c *RemoveSignatory) Unmarshal(b []byte) error {
	return unmarshalTwoStrings(b, &c.AccountID, &c.Pubkey)
}

func (c *SetQuorum) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var err error
		var n int
		switch num {
		case 1:
			c.AccountID, n, err = consumeString(b)
		case 2:
			var v uint64
			v, n, err = consumeUint(b)
			c.Quorum = uint32(v)
		}
		return n, err
	})
}

func (c *SetAccountDetail) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var err error
		var n int
		switch num {
		case 1:
			c.AccountID, n, err = consumeString(b)
		case 2:
			c.Key, n, err = consumeString(b)
		case 3:
			c.Value, n, err = consumeString(b)
		}
		return n, err
	})
}

func (c *CompareAndSetAccountDetail) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var err error
		var n int
		switch num {
		case 1:
			c.AccountID, n, err = consumeString(b)
		case 2:
			c.Key, n, err = consumeString(b)
		case 3:
			c.Value, n, err = consumeString(b)
		case 4:
			var v string
			v, n, err = consumeString(b)
			c.OldValue = &v
		case 5:
			var v uint64
			v, n, err = consumeUint(b)
			c.CheckEmpty = v != 0
		}
		return n, err
	})
}

func (c *CreateAccount) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var err error
		var n int
		switch num {
		case 1:
			c.AccountName, n, err = consumeString(b)
		case 2:
			c.DomainID, n, err = consumeString(b)
		case 3:
			c.Pubkey, n, err = consumeString(b)
		}
		return n, err
	})
}

func (c *CreateAsset) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var err error
		var n int
		switch num {
		case 1:
			c.AssetName, n, err = consumeString(b)
		case 2:
			c.DomainID, n, err = consumeString(b)
		case 3:
			var v uint64
			v, n, err = consumeUint(b)
			c.Precision = uint32(v)
		}
		return n, err
	})
}

func (c *CreateDomain) Unmarshal(b []byte) error {
	return unmarshalTwoStrings(b, &c.DomainID, &c.DefaultRole)
}

func (c *CreateRole) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var err error
		var n int
		switch num {
		case 1:
			c.RoleName, n, err = consumeString(b)
		case 2:
			if typ == protowire.VarintType {
				var v uint64
				v, n, err = consumeUint(b)
				c.Permissions = append(c.Permissions, int32(v))
				return n, err
			}
			var packed []byte
			packed, n, err = consumeBytes(b)
			if err != nil {
				return 0, err
			}
			for len(packed) > 0 {
				v, m := protowire.ConsumeVarint(packed)
				if m < 0 {
					return 0, errTruncated
				}
				c.Permissions = append(c.Permissions, int32(v))
				packed = packed[m:]
			}
		}
		return n, err
	})
}

func (c *AppendRole) Unmarshal(b []byte) error {
	return unmarshalTwoStrings(b, &c.AccountID, &c.RoleName)
}

func (c *DetachRole) Unmarshal(b []byte) error {
	return unmarshalTwoStrings(b, &c.AccountID, &c.RoleName)
}

func unmarshalPermissionEdge(b []byte, account *string, perm *int32) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var err error
		var n int
		switch num {
		case 1:
			*account, n, err = consumeString(b)
		case 2:
			var v uint64
			v, n, err = consumeUint(b)
			*perm = int32(v)
		}
		return n, err
	})
}

func (c *GrantPermission) Unmarshal(b []byte) error {
	return unmarshalPermissionEdge(b, &c.AccountID, &c.Permission)
}

func (c *RevokePermission) Unmarshal(b []byte) error {
	return unmarshalPermissionEdge(b, &c.AccountID, &c.Permission)
}

func (c *SetSettingValue) Unmarshal(b []byte) error {
	return unmarshalTwoStrings(b, &c.Key, &c.Value)
}

func (c *CallEngine) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var err error
		var n int
		switch num {
		case 1:
			c.Caller, n, err = consumeString(b)
		case 2:
			c.Callee, n, err = consumeString(b)
		case 3:
			c.Input, n, err = consumeString(b)
		}
		return n, err
	})
}

func (c *Command) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.BytesType {
			return 0, nil
		}
		body, n, err := consumeBytes(b)
		if err != nil {
			return 0, err
		}
		var sub Unmarshaler
		switch num {
		case 1:
			c.AddAssetQuantity = &AddAssetQuantity{}
			sub = c.AddAssetQuantity
		case 2:
			c.AddPeer = &AddPeer{}
			sub = c.AddPeer
		case 3:
			c.AddSignatory = &AddSignatory{}
			sub = c.AddSignatory
		case 4:
			c.AppendRole = &AppendRole{}
			sub = c.AppendRole
		case 5:
			c.CreateAccount = &CreateAccount{}
			sub = c.CreateAccount
		case 6:
			c.CreateAsset = &CreateAsset{}
			sub = c.CreateAsset
		case 7:
			c.CreateDomain = &CreateDomain{}
			sub = c.CreateDomain
		case 8:
			c.CreateRole = &CreateRole{}
			sub = c.CreateRole
		case 9:
			c.DetachRole = &DetachRole{}
			sub = c.DetachRole
		case 10:
			c.GrantPermission = &GrantPermission{}
			sub = c.GrantPermission
		case 11:
			c.RemoveSignatory = &RemoveSignatory{}
			sub = c.RemoveSignatory
		case 12:
			c.RevokePermission = &RevokePermission{}
			sub = c.RevokePermission
		case 13:
			c.SetAccountDetail = &SetAccountDetail{}
			sub = c.SetAccountDetail
		case 14:
			c.SetQuorum = &SetQuorum{}
			sub = c.SetQuorum
		case 15:
			c.SubtractAssetQuantity = &SubtractAssetQuantity{}
			sub = c.SubtractAssetQuantity
		case 16:
			c.TransferAsset = &TransferAsset{}
			sub = c.TransferAsset
		case 17:
			c.RemovePeer = &RemovePeer{}
			sub = c.RemovePeer
		case 18:
			c.CompareAndSetAccountDetail = &CompareAndSetAccountDetail{}
			sub = c.CompareAndSetAccountDetail
		case 19:
			c.SetSettingValue = &SetSettingValue{}
			sub = c.SetSettingValue
		case 20:
			c.CallEngine = &CallEngine{}
			sub = c.CallEngine
		default:
			return 0, nil
		}
		return n, sub.Unmarshal(body)
	})
}

func (t *Transaction) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var err error
		var n int
		switch num {
		case 1:
			t.CreatorAccountID, n, err = consumeString(b)
		case 2:
			t.CreatedTime, n, err = consumeUint(b)
		case 3:
			var v uint64
			v, n, err = consumeUint(b)
			t.Quorum = uint32(v)
		case 4:
			var body []byte
			body, n, err = consumeBytes(b)
			if err != nil {
				return 0, err
			}
			cmd := &Command{}
			if err = cmd.Unmarshal(body); err != nil {
				return 0, err
			}
			t.Commands = append(t.Commands, cmd)
		case 5:
			var body []byte
			body, n, err = consumeBytes(b)
			if err != nil {
				return 0, err
			}
			sig := &Signature{}
			if err = sig.Unmarshal(body); err != nil {
				return 0, err
			}
			t.Signatures = append(t.Signatures, sig)
		}
		return n, err
	})
}

func (bt *Batch) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			body, n, err := consumeBytes(b)
			if err != nil {
				return 0, err
			}
			tx := &Transaction{}
			if err = tx.Unmarshal(body); err != nil {
				return 0, err
			}
			bt.Transactions = append(bt.Transactions, tx)
			return n, nil
		case 2:
			v, n, err := consumeUint(b)
			bt.Type = BatchType(v)
			return n, err
		}
		return 0, nil
	})
}

func (p *Proposal) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var err error
		var n int
		switch num {
		case 1:
			p.Height, n, err = consumeUint(b)
		case 2:
			p.CreatedTime, n, err = consumeUint(b)
		case 3:
			var body []byte
			body, n, err = consumeBytes(b)
			if err != nil {
				return 0, err
			}
			tx := &Transaction{}
			if err = tx.Unmarshal(body); err != nil {
				return 0, err
			}
			p.Transactions = append(p.Transactions, tx)
		}
		return n, err
	})
}

func (blk *Block) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var err error
		var n int
		switch num {
		case 1:
			blk.Height, n, err = consumeUint(b)
		case 2:
			blk.PrevBlockHash, n, err = consumeString(b)
		case 3:
			blk.CreatedTime, n, err = consumeUint(b)
		case 4:
			var body []byte
			body, n, err = consumeBytes(b)
			if err != nil {
				return 0, err
			}
			tx := &Transaction{}
			if err = tx.Unmarshal(body); err != nil {
				return 0, err
			}
			blk.Transactions = append(blk.Transactions, tx)
		case 5:
			var h string
			h, n, err = consumeString(b)
			blk.RejectedHashes = append(blk.RejectedHashes, h)
		case 6:
			var body []byte
			body, n, err = consumeBytes(b)
			if err != nil {
				return 0, err
			}
			sig := &Signature{}
			if err = sig.Unmarshal(body); err != nil {
				return 0, err
			}
			blk.Signatures = append(blk.Signatures, sig)
		}
		return n, err
	})
}

func (y *YacHash) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var err error
		var n int
		switch num {
		case 1:
			y.BlockRound, n, err = consumeUint(b)
		case 2:
			y.RejectRound, n, err = consumeUint(b)
		case 3:
			y.ProposalHash, n, err = consumeString(b)
		case 4:
			y.BlockHash, n, err = consumeString(b)
		}
		return n, err
	})
}

func (v *Vote) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.BytesType {
			return 0, nil
		}
		body, n, err := consumeBytes(b)
		if err != nil {
			return 0, err
		}
		switch num {
		case 1:
			v.Hash = &YacHash{}
			return n, v.Hash.Unmarshal(body)
		case 2:
			v.Signature = &Signature{}
			return n, v.Signature.Unmarshal(body)
		}
		return 0, nil
	})
}

func (s *State) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			body, n, err := consumeBytes(b)
			if err != nil {
				return 0, err
			}
			v := &Vote{}
			if err = v.Unmarshal(body); err != nil {
				return 0, err
			}
			s.Votes = append(s.Votes, v)
			return n, nil
		}
		return 0, nil
	})
}

func (r *BatchRequest) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			body, n, err := consumeBytes(b)
			if err != nil {
				return 0, err
			}
			bt := &Batch{}
			if err = bt.Unmarshal(body); err != nil {
				return 0, err
			}
			r.Batches = append(r.Batches, bt)
			return n, nil
		}
		return 0, nil
	})
}

func (r *ProposalRequest) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var err error
		var n int
		switch num {
		case 1:
			r.BlockRound, n, err = consumeUint(b)
		case 2:
			r.RejectRound, n, err = consumeUint(b)
		}
		return n, err
	})
}

func (r *ProposalResponse) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			body, n, err := consumeBytes(b)
			if err != nil {
				return 0, err
			}
			r.Proposal = &Proposal{}
			return n, r.Proposal.Unmarshal(body)
		}
		return 0, nil
	})
}

func (r *BlockRequest) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			v, n, err := consumeString(b)
			r.Hash = v
			return n, err
		}
		return 0, nil
	})
}

func (r *BlockResponse) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			body, n, err := consumeBytes(b)
			if err != nil {
				return 0, err
			}
			r.Block = &Block{}
			return n, r.Block.Unmarshal(body)
		}
		return 0, nil
	})
}

func (r *ToriiResponse) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var err error
		var n int
		switch num {
		case 1:
			var h string
			h, n, err = consumeString(b)
			r.TxHashes = append(r.TxHashes, h)
		case 2:
			r.Status, n, err = consumeString(b)
		}
		return n, err
	})
}

func (e *Empty) Unmarshal(b []byte) error {
	return nil
}

// DecodeBlock decodes wire bytes into a Block.
func DecodeBlock(b []byte) (*Block, error) {
	blk := &Block{}
	if err := blk.Unmarshal(b); err != nil {
		return nil, err
	}
	return blk, nil
}

// DecodeTransaction decodes wire bytes into a Transaction.
func DecodeTransaction(b []byte) (*Transaction, error) {
	tx := &Transaction{}
	if err := tx.Unmarshal(b); err != nil {
		return nil, err
	}
	return tx, nil
}

// DecodeProposal decodes wire bytes into a Proposal.
func DecodeProposal(b []byte) (*Proposal, error) {
	p := &Proposal{}
	if err := p.Unmarshal(b); err != nil {
		return nil, err
	}
	return p, nil
}
