package ordering

import (
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryjones/iroha/consensus"
	"github.com/ryjones/iroha/ledgerpb"
)

func fourPeers() []*ledgerpb.Peer {
	var peers []*ledgerpb.Peer
	for i := 0; i < 4; i++ {
		peers = append(peers, &ledgerpb.Peer{
			Address: fmt.Sprintf("localhost:%d", 10001+i),
			Pubkey:  fmt.Sprintf("%064d", i),
		})
	}
	return peers
}

func TestRoundAdvance(t *testing.T) {
	r := consensus.Round{BlockRound: 5, RejectRound: 2}

	assert.Equal(t, consensus.Round{BlockRound: 6, RejectRound: FirstRejectRound}, NextRound(SyncCommit, r))
	assert.Equal(t, consensus.Round{BlockRound: 5, RejectRound: 3}, NextRound(SyncReject, r))
	assert.Equal(t, consensus.Round{BlockRound: 5, RejectRound: 3}, NextRound(SyncNothing, r))
}

func TestSelectPeersMatchesPermutationFormula(t *testing.T) {
	peers := fourPeers()
	prevHash := hex.EncodeToString([]byte("previous-block-hash-000000000000"))
	currentHash := hex.EncodeToString([]byte("current-block-hash-0000000000000"))

	// commit of round (5,0) leads to round (6,0)
	next := NextRound(SyncCommit, consensus.Round{BlockRound: 5, RejectRound: 0})
	require.Equal(t, consensus.Round{BlockRound: 6, RejectRound: 0}, next)

	selected := SelectPeers(peers, prevHash, currentHash, next)

	prevBytes, _ := hex.DecodeString(prevHash)
	currBytes, _ := hex.DecodeString(currentHash)
	perm0 := GeneratePermutation(MakeSeededPrng(prevBytes), 4)
	perm1 := GeneratePermutation(MakeSeededPrng(currBytes), 4)

	assert.Equal(t, peers[perm0[0]], selected[RoleIssuer])
	assert.Equal(t, peers[perm0[1]], selected[RoleRejectConsumer])
	assert.Equal(t, peers[perm1[0]], selected[RoleCommitConsumer])
}

func TestSelectPeersDeterministic(t *testing.T) {
	peers := fourPeers()
	next := consensus.Round{BlockRound: 9, RejectRound: 7}

	a := SelectPeers(peers, "aa01", "bb02", next)
	b := SelectPeers(peers, "aa01", "bb02", next)
	assert.Equal(t, a, b)

	// the reject round wraps around the peer count
	far := consensus.Round{BlockRound: 9, RejectRound: 7 + 4}
	c := SelectPeers(peers, "aa01", "bb02", far)
	assert.Equal(t, a[RoleIssuer], c[RoleIssuer])
}

type recordingNotification struct {
	peer     *ledgerpb.Peer
	batches  int
	requests []consensus.Round
	proposal *ledgerpb.Proposal
}

func (r *recordingNotification) OnBatches(batches []*ledgerpb.Batch) error {
	r.batches += len(batches)
	return nil
}

func (r *recordingNotification) OnRequestProposal(round consensus.Round) (*ledgerpb.Proposal, error) {
	r.requests = append(r.requests, round)
	return r.proposal, nil
}

type recordingFactory struct {
	created map[string]*recordingNotification
}

func (f *recordingFactory) Create(peer *ledgerpb.Peer) (OdOsNotification, error) {
	n := &recordingNotification{peer: peer}
	f.created[peer.Pubkey] = n
	return n, nil
}

func TestConnectionManagerRouting(t *testing.T) {
	peers := fourPeers()
	factory := &recordingFactory{created: make(map[string]*recordingNotification)}
	cm := NewConnectionManager(factory)

	var current CurrentPeers
	current[RoleIssuer] = peers[0]
	current[RoleRejectConsumer] = peers[1]
	current[RoleCommitConsumer] = peers[2]
	cm.InitializeConnections(current)

	cm.OnBatches([]*ledgerpb.Batch{{}})
	assert.Equal(t, 1, factory.created[peers[0].Pubkey].batches)
	assert.Equal(t, 1, factory.created[peers[1].Pubkey].batches)
	assert.Equal(t, 1, factory.created[peers[2].Pubkey].batches)

	round := consensus.Round{BlockRound: 1, RejectRound: 0}
	_, err := cm.OnRequestProposal(round)
	require.Nil(t, err)
	assert.Equal(t, []consensus.Round{round}, factory.created[peers[0].Pubkey].requests)
	assert.Empty(t, factory.created[peers[1].Pubkey].requests)

	cm.Stop()
	cm.OnBatches([]*ledgerpb.Batch{{}})
	assert.Equal(t, 1, factory.created[peers[0].Pubkey].batches)
}
