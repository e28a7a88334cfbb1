package consensus

import (
	"sync"

	"github.com/ryjones/iroha/event"
	"github.com/ryjones/iroha/ledgerpb"
	"github.com/ryjones/iroha/log"
)

// GateState is the per-round phase of the consensus gate.
type GateState int

const (
	StateProposing GateState = iota
	StateVoting
	StateCommitted
	StateRejected
)

// CommitMessage is published on event.OnCommit when a round settles on
// a hash, carrying the vote proof.
type CommitMessage struct {
	Round Round
	Hash  *ledgerpb.YacHash
	Votes []*ledgerpb.Vote
}

// RejectMessage is published on event.OnCommit when a round can no
// longer settle; the gate advances the reject round.
type RejectMessage struct {
	Round Round
}

// CryptoProvider signs our votes and verifies incoming ones.
type CryptoProvider interface {
	Sign(hash *ledgerpb.YacHash) (*ledgerpb.Signature, error)
	Verify(vote *ledgerpb.Vote) bool
}

// StateNetwork delivers vote bundles to peers.
type StateNetwork interface {
	SendState(peer *ledgerpb.Peer, votes []*ledgerpb.Vote) error
}

// Yac drives one consensus round at a time: sign and broadcast a vote
// on the round's proposal hash, accumulate cluster votes, and emit the
// outcome when the storage reaches a verdict. Terminal states are
// transient; the node advances the round on every outcome.
type Yac struct {
	mu sync.Mutex

	state GateState
	round Round
	order *ClusterOrdering

	storage *VoteStorage
	crypto  CryptoProvider
	network StateNetwork
	timer   *Timer
	bus     *event.Bus
}

// YacContext carries the gate dependencies.
type YacContext struct {
	Storage *VoteStorage
	Crypto  CryptoProvider
	Network StateNetwork
	Timer   *Timer
	Bus     *event.Bus
}

func NewYac(ctx *YacContext) *Yac {
	return &Yac{
		state:   StateProposing,
		storage: ctx.Storage,
		crypto:  ctx.Crypto,
		network: ctx.Network,
		timer:   ctx.Timer,
		bus:     ctx.Bus,
	}
}

// StartRound enters Proposing for the round over the given cluster
// order. The proposal timer arms so a silent issuer cannot stall the
// round: expiry votes NoProposal.
func (y *Yac) StartRound(round Round, order *ClusterOrdering) {
	y.mu.Lock()
	y.round = round
	y.order = order
	y.state = StateProposing
	y.storage.SetPeersCount(order.Size())
	y.mu.Unlock()

	y.timer.Invoke(func() {
		y.mu.Lock()
		expired := y.state == StateProposing && y.round == round
		y.mu.Unlock()
		if expired {
			log.Warnw("proposal timer expired, voting no proposal", "round", round.String())
			y.Vote(&ledgerpb.YacHash{BlockRound: round.BlockRound, RejectRound: round.RejectRound})
		}
	})
}

// Round returns the active round.
func (y *Yac) Round() Round {
	y.mu.Lock()
	defer y.mu.Unlock()
	return y.round
}

// State returns the gate phase.
func (y *Yac) State() GateState {
	y.mu.Lock()
	defer y.mu.Unlock()
	return y.state
}

// Vote signs the hash, moves to Voting and propagates the vote to the
// whole cluster, ourselves included.
func (y *Yac) Vote(hash *ledgerpb.YacHash) {
	y.mu.Lock()
	if y.state != StateProposing {
		y.mu.Unlock()
		return
	}
	y.state = StateVoting
	order := y.order
	y.mu.Unlock()

	y.timer.Deny()

	sig, err := y.crypto.Sign(hash)
	if err != nil {
		log.Errorf("sign vote failed: %v", err)
		return
	}
	vote := &ledgerpb.Vote{Hash: hash, Signature: sig}
	votes := []*ledgerpb.Vote{vote}

	for _, peer := range order.Peers() {
		if err := y.network.SendState(peer, votes); err != nil {
			log.Warnw("send vote failed", "peer", peer.Address, "err", err)
		}
	}

	y.OnState(votes)
}

// OnState ingests a vote bundle from the network. Unverifiable votes
// are dropped; verdicts publish on the bus.
func (y *Yac) OnState(votes []*ledgerpb.Vote) {
	var valid []*ledgerpb.Vote
	for _, v := range votes {
		if v.Hash == nil || v.Signature == nil {
			continue
		}
		if !y.crypto.Verify(v) {
			log.Warnw("vote signature rejected", "voter", safeVoter(v))
			continue
		}
		valid = append(valid, v)
	}
	if len(valid) == 0 {
		return
	}

	for _, answer := range y.storage.Insert(valid) {
		switch answer.Outcome {
		case OutcomeCommitted:
			y.finishRound(answer.Round, StateCommitted)
			y.bus.Publish(event.OnCommit, CommitMessage{
				Round: answer.Round,
				Hash:  answer.Hash,
				Votes: answer.Votes,
			})
		case OutcomeRejected:
			y.finishRound(answer.Round, StateRejected)
			y.bus.Publish(event.OnCommit, RejectMessage{Round: answer.Round})
		}
	}
}

func (y *Yac) finishRound(round Round, state GateState) {
	y.mu.Lock()
	if y.round == round {
		y.state = state
	}
	y.mu.Unlock()
	y.timer.Deny()
}

func safeVoter(v *ledgerpb.Vote) string {
	if v.Signature == nil {
		return ""
	}
	return v.Signature.Pubkey
}
