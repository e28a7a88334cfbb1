package ledgerpb

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Message is anything with a canonical wire form.
type Message interface {
	Marshal() []byte
}

// Unmarshaler is anything that can be decoded from the wire form.
type Unmarshaler interface {
	Unmarshal(b []byte) error
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendUint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, 1)
}

func appendMessage(b []byte, num protowire.Number, enc []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, enc)
}

func (p *Peer) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, p.Address)
	b = appendString(b, 2, p.Pubkey)
	b = appendString(b, 3, p.TLSCertificate)
	return b
}

func (s *Signature) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, s.Pubkey)
	b = appendString(b, 2, s.Signature)
	return b
}

func (c *AddAssetQuantity) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, c.AssetID)
	b = appendString(b, 2, c.Amount)
	return b
}

func (c *SubtractAssetQuantity) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, c.AssetID)
	b = appendString(b, 2, c.Amount)
	return b
}

func (c *TransferAsset) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, c.SrcAccountID)
	b = appendString(b, 2, c.DestAccountID)
	b = appendString(b, 3, c.AssetID)
	b = appendString(b, 4, c.Description)
	b = appendString(b, 5, c.Amount)
	return b
}

func (c *AddPeer) Marshal() []byte {
	var b []byte
	if c.Peer != nil {
		b = appendMessage(b, 1, c.Peer.Marshal())
	}
	return b
}

func (c *RemovePeer) Marshal() []byte {
	return appendString(nil, 1, c.Pubkey)
}

func (c *AddSignatory) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, c.AccountID)
	b = appendString(b, 2, c.Pubkey)
	return b
}

func (c *RemoveSignatory) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, c.AccountID)
	b = appendString(b, 2, c.Pubkey)
	return b
}

func (c *SetQuorum) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, c.AccountID)
	b = appendUint(b, 2, uint64(c.Quorum))
	return b
}

func (c *SetAccountDetail) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, c.AccountID)
	b = appendString(b, 2, c.Key)
	b = appendString(b, 3, c.Value)
	return b
}

func (c *CompareAndSetAccountDetail) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, c.AccountID)
	b = appendString(b, 2, c.Key)
	b = appendString(b, 3, c.Value)
	if c.OldValue != nil {
		// presence matters, emit even when empty
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendString(b, *c.OldValue)
	}
	b = appendBool(b, 5, c.CheckEmpty)
	return b
}

func (c *CreateAccount) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, c.AccountName)
	b = appendString(b, 2, c.DomainID)
	b = appendString(b, 3, c.Pubkey)
	return b
}

func (c *CreateAsset) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, c.AssetName)
	b = appendString(b, 2, c.DomainID)
	b = appendUint(b, 3, uint64(c.Precision))
	return b
}

func (c *CreateDomain) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, c.DomainID)
	b = appendString(b, 2, c.DefaultRole)
	return b
}

func (c *CreateRole) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, c.RoleName)
	if len(c.Permissions) > 0 {
		var packed []byte
		for _, p := range c.Permissions {
			packed = protowire.AppendVarint(packed, uint64(uint32(p)))
		}
		b = appendMessage(b, 2, packed)
	}
	return b
}

func (c *AppendRole) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, c.AccountID)
	b = appendString(b, 2, c.RoleName)
	return b
}

func (c *DetachRole) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, c.AccountID)
	b = appendString(b, 2, c.RoleName)
	return b
}

func (c *GrantPermission) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, c.AccountID)
	b = appendUint(b, 2, uint64(uint32(c.Permission)))
	return b
}

func (c *RevokePermission) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, c.AccountID)
	b = appendUint(b, 2, uint64(uint32(c.Permission)))
	return b
}

func (c *SetSettingValue) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, c.Key)
	b = appendString(b, 2, c.Value)
	return b
}

func (c *CallEngine) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, c.Caller)
	b = appendString(b, 2, c.Callee)
	b = appendString(b, 3, c.Input)
	return b
}

func (c *Command) Marshal() []byte {
	var b []byte
	switch {
	case c.AddAssetQuantity != nil:
		b = appendMessage(b, 1, c.AddAssetQuantity.Marshal())
	case c.AddPeer != nil:
		b = appendMessage(b, 2, c.AddPeer.Marshal())
	case c.AddSignatory != nil:
		b = appendMessage(b, 3, c.AddSignatory.Marshal())
	case c.AppendRole != nil:
		b = appendMessage(b, 4, c.AppendRole.Marshal())
	case c.CreateAccount != nil:
		b = appendMessage(b, 5, c.CreateAccount.Marshal())
	case c.CreateAsset != nil:
		b = appendMessage(b, 6, c.CreateAsset.Marshal())
	case c.CreateDomain != nil:
		b = appendMessage(b, 7, c.CreateDomain.Marshal())
	case c.CreateRole != nil:
		b = appendMessage(b, 8, c.CreateRole.Marshal())
	case c.DetachRole != nil:
		b = appendMessage(b, 9, c.DetachRole.Marshal())
	case c.GrantPermission != nil:
		b = appendMessage(b, 10, c.GrantPermission.Marshal())
	case c.RemoveSignatory != nil:
		b = appendMessage(b, 11, c.RemoveSignatory.Marshal())
	case c.RevokePermission != nil:
		b = appendMessage(b, 12, c.RevokePermission.Marshal())
	case c.SetAccountDetail != nil:
		b = appendMessage(b, 13, c.SetAccountDetail.Marshal())
	case c.SetQuorum != nil:
		b = appendMessage(b, 14, c.SetQuorum.Marshal())
	case c.SubtractAssetQuantity != nil:
		b = appendMessage(b, 15, c.SubtractAssetQuantity.Marshal())
	case c.TransferAsset != nil:
		b = appendMessage(b, 16, c.TransferAsset.Marshal())
	case c.RemovePeer != nil:
		b = appendMessage(b, 17, c.RemovePeer.Marshal())
	case c.CompareAndSetAccountDetail != nil:
		b = appendMessage(b, 18, c.CompareAndSetAccountDetail.Marshal())
	case c.SetSettingValue != nil:
		b = appendMessage(b, 19, c.SetSettingValue.Marshal())
	case c.CallEngine != nil:
		b = appendMessage(b, 20, c.CallEngine.Marshal())
	}
	return b
}

// PayloadBytes returns the signable portion of the transaction: all
// fields except the signatures.
func (t *Transaction) PayloadBytes() []byte {
	var b []byte
	b = appendString(b, 1, t.CreatorAccountID)
	b = appendUint(b, 2, t.CreatedTime)
	b = appendUint(b, 3, uint64(t.Quorum))
	for _, c := range t.Commands {
		b = appendMessage(b, 4, c.Marshal())
	}
	return b
}

func (t *Transaction) Marshal() []byte {
	b := t.PayloadBytes()
	for _, s := range t.Signatures {
		b = appendMessage(b, 5, s.Marshal())
	}
	return b
}

func (bt *Batch) Marshal() []byte {
	var b []byte
	for _, t := range bt.Transactions {
		b = appendMessage(b, 1, t.Marshal())
	}
	b = appendUint(b, 2, uint64(bt.Type))
	return b
}

func (p *Proposal) Marshal() []byte {
	var b []byte
	b = appendUint(b, 1, p.Height)
	b = appendUint(b, 2, p.CreatedTime)
	for _, t := range p.Transactions {
		b = appendMessage(b, 3, t.Marshal())
	}
	return b
}

// PayloadBytes returns the signable portion of the block: all fields
// except the signatures.
func (blk *Block) PayloadBytes() []byte {
	var b []byte
	b = appendUint(b, 1, blk.Height)
	b = appendString(b, 2, blk.PrevBlockHash)
	b = appendUint(b, 3, blk.CreatedTime)
	for _, t := range blk.Transactions {
		b = appendMessage(b, 4, t.Marshal())
	}
	for _, h := range blk.RejectedHashes {
		b = appendString(b, 5, h)
	}
	return b
}

func (blk *Block) Marshal() []byte {
	b := blk.PayloadBytes()
	for _, s := range blk.Signatures {
		b = appendMessage(b, 6, s.Marshal())
	}
	return b
}

func (y *YacHash) Marshal() []byte {
	var b []byte
	b = appendUint(b, 1, y.BlockRound)
	b = appendUint(b, 2, y.RejectRound)
	b = appendString(b, 3, y.ProposalHash)
	b = appendString(b, 4, y.BlockHash)
	return b
}

func (v *Vote) Marshal() []byte {
	var b []byte
	if v.Hash != nil {
		b = appendMessage(b, 1, v.Hash.Marshal())
	}
	if v.Signature != nil {
		b = appendMessage(b, 2, v.Signature.Marshal())
	}
	return b
}

func (s *State) Marshal() []byte {
	var b []byte
	for _, v := range s.Votes {
		b = appendMessage(b, 1, v.Marshal())
	}
	return b
}

func (r *BatchRequest) Marshal() []byte {
	var b []byte
	for _, bt := range r.Batches {
		b = appendMessage(b, 1, bt.Marshal())
	}
	return b
}

func (r *ProposalRequest) Marshal() []byte {
	var b []byte
	b = appendUint(b, 1, r.BlockRound)
	b = appendUint(b, 2, r.RejectRound)
	return b
}

func (r *ProposalResponse) Marshal() []byte {
	var b []byte
	if r.Proposal != nil {
		b = appendMessage(b, 1, r.Proposal.Marshal())
	}
	return b
}

func (r *BlockRequest) Marshal() []byte {
	return appendString(nil, 1, r.Hash)
}

func (r *BlockResponse) Marshal() []byte {
	var b []byte
	if r.Block != nil {
		b = appendMessage(b, 1, r.Block.Marshal())
	}
	return b
}

func (r *ToriiResponse) Marshal() []byte {
	var b []byte
	for _, h := range r.TxHashes {
		b = appendString(b, 1, h)
	}
	b = appendString(b, 2, r.Status)
	return b
}

func (e *Empty) Marshal() []byte {
	return nil
}
