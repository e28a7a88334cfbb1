package consensus

import (
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set"

	"github.com/ryjones/iroha/ledgerpb"
	"github.com/ryjones/iroha/log"
)

// DefaultCleanupDepth is how many terminal rounds stay in storage.
const DefaultCleanupDepth = 3

// Answer is the verdict of vote storage after an insert.
type Answer struct {
	Round   Round
	Outcome Outcome
	// Hash is the winning hash on commit.
	Hash *ledgerpb.YacHash
	// Votes are the supporting votes on commit (the proof).
	Votes []*ledgerpb.Vote
}

// tallyKey folds the voted-on identity into a map key; the zero hash
// pair is the NoProposal vote.
func tallyKey(h *ledgerpb.YacHash) string {
	return h.ProposalHash + "\x00" + h.BlockHash
}

// roundStorage accumulates one round's votes.
type roundStorage struct {
	round    Round
	voters   mapset.Set
	byKey    map[string][]*ledgerpb.Vote
	outcome  Outcome
	winner   string
	answered bool
}

func newRoundStorage(round Round) *roundStorage {
	return &roundStorage{
		round:  round,
		voters: mapset.NewSet(),
		byKey:  make(map[string][]*ledgerpb.Vote),
	}
}

// VoteStorage keeps per-round vote state and detects quorum. Votes for
// rounds at or below the last erased terminal round are rejected as
// out of order.
type VoteStorage struct {
	mu      sync.Mutex
	checker SupermajorityChecker
	peers   int

	rounds map[Round]*roundStorage

	// terminal rounds in commit order, newest last
	terminal     []Round
	cleanupDepth int
	floor        *Round
}

// VoteStorageContext carries the storage parameters.
type VoteStorageContext struct {
	Model        ConsistencyModel
	PeersCount   int
	CleanupDepth int
}

func NewVoteStorage(ctx *VoteStorageContext) *VoteStorage {
	depth := ctx.CleanupDepth
	if depth == 0 {
		depth = DefaultCleanupDepth
	}
	return &VoteStorage{
		checker:      NewSupermajorityChecker(ctx.Model),
		peers:        ctx.PeersCount,
		rounds:       make(map[Round]*roundStorage),
		cleanupDepth: depth,
	}
}

// SetPeersCount follows cluster membership changes between rounds.
func (vs *VoteStorage) SetPeersCount(n int) {
	vs.mu.Lock()
	vs.peers = n
	vs.mu.Unlock()
}

// Insert feeds votes in and returns one answer per affected round.
// The outcome of a round is idempotent under reordering of its votes:
// duplicates by (voter, round) are dropped and a terminal verdict is
// only reported once.
func (vs *VoteStorage) Insert(votes []*ledgerpb.Vote) []Answer {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	touched := make(map[Round]bool)
	for _, v := range votes {
		if v.Hash == nil || v.Signature == nil {
			continue
		}
		round := Round{BlockRound: v.Hash.BlockRound, RejectRound: v.Hash.RejectRound}
		if vs.floor != nil && !vs.floor.Less(round) {
			log.Debugw("out-of-order vote dropped", "round", round.String())
			continue
		}
		rs, ok := vs.rounds[round]
		if !ok {
			rs = newRoundStorage(round)
			vs.rounds[round] = rs
		}
		if rs.voters.Contains(v.Signature.Pubkey) {
			continue
		}
		rs.voters.Add(v.Signature.Pubkey)
		key := tallyKey(v.Hash)
		rs.byKey[key] = append(rs.byKey[key], v)
		touched[round] = true
	}

	var answers []Answer
	rounds := make([]Round, 0, len(touched))
	for r := range touched {
		rounds = append(rounds, r)
	}
	sort.Slice(rounds, func(i, j int) bool { return rounds[i].Less(rounds[j]) })
	for _, r := range rounds {
		answers = append(answers, vs.examine(vs.rounds[r]))
	}
	return answers
}

// examine recomputes the round verdict. Callers hold vs.mu.
func (vs *VoteStorage) examine(rs *roundStorage) Answer {
	if rs.answered {
		// verdict already delivered, stay silent on late votes
		return Answer{Round: rs.round, Outcome: OutcomePending}
	}

	tallies := make(map[string]int, len(rs.byKey))
	for k, votes := range rs.byKey {
		tallies[k] = len(votes)
	}
	outcome, winner := vs.checker.Outcome(tallies, rs.voters.Cardinality(), vs.peers)
	if outcome == OutcomePending {
		return Answer{Round: rs.round, Outcome: OutcomePending}
	}

	rs.outcome = outcome
	rs.winner = winner
	rs.answered = true
	vs.recordTerminal(rs.round)

	answer := Answer{Round: rs.round, Outcome: outcome}
	if outcome == OutcomeCommitted {
		proof := rs.byKey[winner]
		answer.Hash = proof[0].Hash
		answer.Votes = proof
	}
	return answer
}

// recordTerminal applies the buffered cleanup strategy: the last
// cleanupDepth terminal rounds stay, older round state goes, and the
// floor refuses their late votes. Callers hold vs.mu.
func (vs *VoteStorage) recordTerminal(r Round) {
	vs.terminal = append(vs.terminal, r)
	if len(vs.terminal) <= vs.cleanupDepth {
		return
	}
	drop := vs.terminal[0]
	vs.terminal = vs.terminal[1:]
	for round := range vs.rounds {
		if !drop.Less(round) {
			delete(vs.rounds, round)
		}
	}
	vs.floor = &drop
}
