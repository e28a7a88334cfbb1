package ordering

import (
	"encoding/hex"
	"sync"

	"github.com/ryjones/iroha/consensus"
	"github.com/ryjones/iroha/ledgerpb"
	"github.com/ryjones/iroha/log"
)

// FirstRejectRound is the reject round every commit resets to.
const FirstRejectRound = 0

// NextCommitRound is the round following a committed block.
func NextCommitRound(r consensus.Round) consensus.Round {
	return consensus.Round{BlockRound: r.BlockRound + 1, RejectRound: FirstRejectRound}
}

// NextRejectRound is the round following a reject or an empty round.
func NextRejectRound(r consensus.Round) consensus.Round {
	return consensus.Round{BlockRound: r.BlockRound, RejectRound: r.RejectRound + 1}
}

// SyncOutcome is the synchronizer's verdict on the previous round.
type SyncOutcome int

const (
	SyncCommit SyncOutcome = iota
	SyncReject
	SyncNothing
)

// PeerRole indexes the ordering roles a peer plays for a round.
type PeerRole int

const (
	RoleIssuer PeerRole = iota
	RoleRejectConsumer
	RoleCommitConsumer
	roleCount
)

// CurrentPeers are the peers serving each role for the active round.
type CurrentPeers [roleCount]*ledgerpb.Peer

// NextRound advances the round per the synchronization outcome.
func NextRound(outcome SyncOutcome, round consensus.Round) consensus.Round {
	if outcome == SyncCommit {
		return NextCommitRound(round)
	}
	return NextRejectRound(round)
}

// SelectPeers deterministically picks the issuer and the two consumers
// for the new round. The current-round permutation is seeded by the
// previous block hash, the next-round permutation by the current one.
//
// Batches go to the current and the two possible next rounds:
//
//	   0 1         0 1         0 1
//	 0 o .       0 o x       0 o .
//	 1 . .       1 . .       1 x .
//	Issuer      Reject      Commit
func SelectPeers(peers []*ledgerpb.Peer, prevHash, currentHash string, next consensus.Round) CurrentPeers {
	decode := func(h string) []byte {
		b, err := hex.DecodeString(h)
		if err != nil {
			return []byte(h)
		}
		return b
	}
	currentPerm := GeneratePermutation(MakeSeededPrng(decode(prevHash)), len(peers))
	nextPerm := GeneratePermutation(MakeSeededPrng(decode(currentHash)), len(peers))

	pick := func(perm []int, rejectRound uint64) *ledgerpb.Peer {
		// the reject round can exceed the peer count, wrap it
		return peers[perm[rejectRound%uint64(len(perm))]]
	}

	var selected CurrentPeers
	selected[RoleRejectConsumer] = pick(currentPerm, NextRejectRound(next).RejectRound)
	selected[RoleCommitConsumer] = pick(nextPerm, NextCommitRound(next).RejectRound)
	selected[RoleIssuer] = pick(currentPerm, next.RejectRound)
	return selected
}

// OdOsNotification is one peer's ordering-service endpoint.
type OdOsNotification interface {
	OnBatches(batches []*ledgerpb.Batch) error
	OnRequestProposal(round consensus.Round) (*ledgerpb.Proposal, error)
}

// NotificationFactory opens endpoints to peers.
type NotificationFactory interface {
	Create(peer *ledgerpb.Peer) (OdOsNotification, error)
}

// ConnectionManager routes batch and proposal traffic to the peers of
// the active round. Handlers take shared access; Stop takes exclusive
// access and drains.
type ConnectionManager struct {
	factory NotificationFactory

	mu          sync.RWMutex
	stopped     bool
	connections [roleCount]OdOsNotification
}

func NewConnectionManager(factory NotificationFactory) *ConnectionManager {
	return &ConnectionManager{factory: factory}
}

// InitializeConnections opens the endpoints for the round's peers.
func (cm *ConnectionManager) InitializeConnections(peers CurrentPeers) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.stopped {
		return
	}
	for role, peer := range peers {
		if peer == nil {
			cm.connections[role] = nil
			continue
		}
		conn, err := cm.factory.Create(peer)
		if err != nil {
			log.Warnw("create ordering connection failed", "peer", peer.Address, "err", err)
			cm.connections[role] = nil
			continue
		}
		cm.connections[role] = conn
	}
}

// OnBatches propagates batches to the issuer and both consumers.
func (cm *ConnectionManager) OnBatches(batches []*ledgerpb.Batch) {
	propagate := func(role PeerRole) {
		cm.mu.RLock()
		defer cm.mu.RUnlock()
		if cm.stopped || cm.connections[role] == nil {
			return
		}
		if err := cm.connections[role].OnBatches(batches); err != nil {
			log.Warnw("propagate batches failed", "role", int(role), "err", err)
		}
	}
	propagate(RoleIssuer)
	propagate(RoleRejectConsumer)
	propagate(RoleCommitConsumer)
}

// OnRequestProposal asks the round issuer for its proposal.
func (cm *ConnectionManager) OnRequestProposal(round consensus.Round) (*ledgerpb.Proposal, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if cm.stopped || cm.connections[RoleIssuer] == nil {
		return nil, nil
	}
	return cm.connections[RoleIssuer].OnRequestProposal(round)
}

// Stop blocks new traffic and drains in-flight handlers.
func (cm *ConnectionManager) Stop() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.stopped = true
}
