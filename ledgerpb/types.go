// Package ledgerpb holds the wire-level message types of the ledger
// and their canonical protobuf encoding. The encoding is hand-written
// over protowire so that payload bytes are stable across versions:
// fields are emitted in ascending field-number order with defaults
// omitted, which makes the SHA3 payload hashes reproducible.
package ledgerpb

// Peer describes a cluster member.
type Peer struct {
	Address        string // field 1
	Pubkey         string // field 2, lowercase hex, optional multihash prefix
	TLSCertificate string // field 3, optional
}

// Signature is a pubkey plus the hex signature over a payload.
type Signature struct {
	Pubkey    string // field 1
	Signature string // field 2
}

// Command is the tagged union of all state-mutating commands. Exactly
// one member is non-nil.
type Command struct {
	AddAssetQuantity           *AddAssetQuantity           // field 1
	AddPeer                    *AddPeer                    // field 2
	AddSignatory               *AddSignatory               // field 3
	AppendRole                 *AppendRole                 // field 4
	CreateAccount              *CreateAccount              // field 5
	CreateAsset                *CreateAsset                // field 6
	CreateDomain               *CreateDomain               // field 7
	CreateRole                 *CreateRole                 // field 8
	DetachRole                 *DetachRole                 // field 9
	GrantPermission            *GrantPermission            // field 10
	RemoveSignatory            *RemoveSignatory            // field 11
	RevokePermission           *RevokePermission           // field 12
	SetAccountDetail           *SetAccountDetail           // field 13
	SetQuorum                  *SetQuorum                  // field 14
	SubtractAssetQuantity      *SubtractAssetQuantity      // field 15
	TransferAsset              *TransferAsset              // field 16
	RemovePeer                 *RemovePeer                 // field 17
	CompareAndSetAccountDetail *CompareAndSetAccountDetail // field 18
	SetSettingValue            *SetSettingValue            // field 19
	CallEngine                 *CallEngine                 // field 20
}

type AddAssetQuantity struct {
	AssetID string // field 1, name#domain
	Amount  string // field 2, decimal string
}

type SubtractAssetQuantity struct {
	AssetID string // field 1
	Amount  string // field 2
}

type TransferAsset struct {
	SrcAccountID  string // field 1
	DestAccountID string // field 2
	AssetID       string // field 3
	Description   string // field 4
	Amount        string // field 5
}

type AddPeer struct {
	Peer *Peer // field 1
}

type RemovePeer struct {
	Pubkey string // field 1
}

type AddSignatory struct {
	AccountID string // field 1
	Pubkey    string // field 2
}

type RemoveSignatory struct {
	AccountID string // field 1
	Pubkey    string // field 2
}

type SetQuorum struct {
	AccountID string // field 1
	Quorum    uint32 // field 2
}

type SetAccountDetail struct {
	AccountID string // field 1
	Key       string // field 2
	Value     string // field 3
}

type CompareAndSetAccountDetail struct {
	AccountID  string  // field 1
	Key        string  // field 2
	Value      string  // field 3
	OldValue   *string // field 4, absent means "expect no previous value"
	CheckEmpty bool    // field 5
}

type CreateAccount struct {
	AccountName string // field 1
	DomainID    string // field 2
	Pubkey      string // field 3
}

type CreateAsset struct {
	AssetName string // field 1
	DomainID  string // field 2
	Precision uint32 // field 3
}

type CreateDomain struct {
	DomainID    string // field 1
	DefaultRole string // field 2
}

type CreateRole struct {
	RoleName    string  // field 1
	Permissions []int32 // field 2, packed, permission.Role values
}

type AppendRole struct {
	AccountID string // field 1
	RoleName  string // field 2
}

type DetachRole struct {
	AccountID string // field 1
	RoleName  string // field 2
}

type GrantPermission struct {
	AccountID  string // field 1
	Permission int32  // field 2, permission.Grantable value
}

type RevokePermission struct {
	AccountID  string // field 1
	Permission int32  // field 2
}

type SetSettingValue struct {
	Key   string // field 1
	Value string // field 2
}

type CallEngine struct {
	Caller string // field 1
	Callee string // field 2
	Input  string // field 3
}

// Transaction is an ordered command list under one creator. Signatures
// cover the payload fields only (1..4).
type Transaction struct {
	CreatorAccountID string       // field 1
	CreatedTime      uint64       // field 2, ms since epoch
	Quorum           uint32       // field 3
	Commands         []*Command   // field 4
	Signatures       []*Signature // field 5, excluded from the payload hash
}

// BatchType selects the commit semantics of a batch.
type BatchType int32

const (
	BatchOrderedSequence BatchType = 0
	BatchAtomic          BatchType = 1
)

// Batch is an ordered set of transactions sharing commit semantics.
type Batch struct {
	Transactions []*Transaction // field 1
	Type         BatchType      // field 2
}

// Proposal is the per-round transaction list emitted by the ordering
// service.
type Proposal struct {
	Height       uint64         // field 1
	CreatedTime  uint64         // field 2
	Transactions []*Transaction // field 3
}

// Block is a committed unit of the chain. Signatures cover the payload
// fields only (1..5).
type Block struct {
	Height         uint64         // field 1
	PrevBlockHash  string         // field 2
	CreatedTime    uint64         // field 3
	Transactions   []*Transaction // field 4
	RejectedHashes []string       // field 5, hashes of transactions dropped by stateful validation
	Signatures     []*Signature   // field 6, excluded from the payload hash
}

// YacHash carries the identity a peer votes on: the round plus the
// proposal and block hashes produced for it. Empty hashes mean the
// peer votes "no proposal" for the round.
type YacHash struct {
	BlockRound   uint64 // field 1
	RejectRound  uint64 // field 2
	ProposalHash string // field 3
	BlockHash    string // field 4
}

// Vote is one peer's signed YacHash.
type Vote struct {
	Hash      *YacHash   // field 1
	Signature *Signature // field 2, over the YacHash payload
}

// State is the consensus wire envelope: a bundle of votes.
type State struct {
	Votes []*Vote // field 1
}

// BatchRequest is the ordering ingress envelope.
type BatchRequest struct {
	Batches []*Batch // field 1
}

// ProposalRequest asks the round issuer for its proposal.
type ProposalRequest struct {
	BlockRound  uint64 // field 1
	RejectRound uint64 // field 2
}

// ProposalResponse returns the proposal when one exists.
type ProposalResponse struct {
	Proposal *Proposal // field 1, optional
}

// BlockRequest asks any voter for a committed block by hash.
type BlockRequest struct {
	Hash string // field 1
}

// BlockResponse carries the requested block.
type BlockResponse struct {
	Block *Block // field 1, optional
}

// ToriiResponse reports ingress acceptance per transaction hash.
type ToriiResponse struct {
	TxHashes []string // field 1
	Status   string   // field 2
}

// Empty is the zero-field reply message.
type Empty struct{}
