package consensus

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryjones/iroha/ledgerpb"
)

func testVote(peer int, round Round, proposalHash, blockHash string) *ledgerpb.Vote {
	return &ledgerpb.Vote{
		Hash: &ledgerpb.YacHash{
			BlockRound:   round.BlockRound,
			RejectRound:  round.RejectRound,
			ProposalHash: proposalHash,
			BlockHash:    blockHash,
		},
		Signature: &ledgerpb.Signature{
			Pubkey:    fmt.Sprintf("peer-%d", peer),
			Signature: "sig",
		},
	}
}

func newBftStorage(peers int) *VoteStorage {
	return NewVoteStorage(&VoteStorageContext{Model: ModelBFT, PeersCount: peers})
}

func TestBftThresholds(t *testing.T) {
	c := NewSupermajorityChecker(ModelBFT)
	assert.Equal(t, 3, c.Threshold(4))
	assert.Equal(t, 1, c.Threshold(1))
	assert.Equal(t, 5, c.Threshold(7))
}

func TestConflictingVotesPendingThenCommit(t *testing.T) {
	vs := newBftStorage(4)
	round := Round{BlockRound: 5, RejectRound: 0}

	answers := vs.Insert([]*ledgerpb.Vote{
		testVote(0, round, "proposal-a", "block-a"),
		testVote(1, round, "proposal-b", "block-b"),
	})
	require.Equal(t, 1, len(answers))
	assert.Equal(t, OutcomePending, answers[0].Outcome)

	answers = vs.Insert([]*ledgerpb.Vote{
		testVote(2, round, "proposal-a", "block-a"),
	})
	require.Equal(t, 1, len(answers))
	assert.Equal(t, OutcomeCommitted, answers[0].Outcome)
	assert.Equal(t, "proposal-a", answers[0].Hash.ProposalHash)
	assert.Equal(t, 2, len(answers[0].Votes))
}

func TestOutcomeIdempotentUnderReordering(t *testing.T) {
	round := Round{BlockRound: 2, RejectRound: 1}
	votes := []*ledgerpb.Vote{
		testVote(0, round, "p", "b"),
		testVote(1, round, "p", "b"),
		testVote(2, round, "p", "b"),
		testVote(3, round, "q", "c"),
	}

	terminalOf := func(order []int) Outcome {
		vs := newBftStorage(4)
		final := OutcomePending
		for _, i := range order {
			for _, a := range vs.Insert([]*ledgerpb.Vote{votes[i]}) {
				if a.Outcome != OutcomePending {
					final = a.Outcome
				}
			}
		}
		return final
	}

	expected := terminalOf([]int{0, 1, 2, 3})
	assert.Equal(t, OutcomeCommitted, expected)
	assert.Equal(t, expected, terminalOf([]int{3, 2, 1, 0}))
	assert.Equal(t, expected, terminalOf([]int{1, 3, 0, 2}))
}

func TestDuplicateVoterIgnored(t *testing.T) {
	vs := newBftStorage(4)
	round := Round{BlockRound: 1, RejectRound: 0}

	vs.Insert([]*ledgerpb.Vote{testVote(0, round, "p", "b")})
	answers := vs.Insert([]*ledgerpb.Vote{
		testVote(0, round, "p", "b"),
		testVote(0, round, "x", "y"),
	})
	// the duplicate voter adds nothing, tally stays at one
	for _, a := range answers {
		assert.Equal(t, OutcomePending, a.Outcome)
	}
}

func TestAllConflictingRejects(t *testing.T) {
	vs := newBftStorage(4)
	round := Round{BlockRound: 3, RejectRound: 0}

	var last Outcome
	for i := 0; i < 4; i++ {
		for _, a := range vs.Insert([]*ledgerpb.Vote{
			testVote(i, round, fmt.Sprintf("p%d", i), fmt.Sprintf("b%d", i)),
		}) {
			if a.Outcome != OutcomePending {
				last = a.Outcome
			}
		}
	}
	assert.Equal(t, OutcomeRejected, last)
}

func TestTerminalAnswerDeliveredOnce(t *testing.T) {
	vs := newBftStorage(4)
	round := Round{BlockRound: 1, RejectRound: 0}

	vs.Insert([]*ledgerpb.Vote{
		testVote(0, round, "p", "b"),
		testVote(1, round, "p", "b"),
		testVote(2, round, "p", "b"),
	})
	answers := vs.Insert([]*ledgerpb.Vote{testVote(3, round, "p", "b")})
	for _, a := range answers {
		assert.Equal(t, OutcomePending, a.Outcome)
	}
}

func TestCleanupDropsOldRounds(t *testing.T) {
	vs := NewVoteStorage(&VoteStorageContext{Model: ModelBFT, PeersCount: 1, CleanupDepth: 2})

	commitRound := func(br uint64) {
		round := Round{BlockRound: br, RejectRound: 0}
		answers := vs.Insert([]*ledgerpb.Vote{testVote(0, round, "p", "b")})
		require.Equal(t, 1, len(answers))
		require.Equal(t, OutcomeCommitted, answers[0].Outcome)
	}
	commitRound(1)
	commitRound(2)
	commitRound(3)

	// votes at or below the erased terminal round are out of order
	old := Round{BlockRound: 1, RejectRound: 0}
	answers := vs.Insert([]*ledgerpb.Vote{testVote(0, old, "late", "late")})
	assert.Empty(t, answers)
}

func TestLexicographicTieBreak(t *testing.T) {
	// two-peer BFT cluster: threshold 2, blocking 1; two hashes that
	// both qualify form a hypothetical tie, and the earliest key wins
	c := NewSupermajorityChecker(ModelBFT)
	outcome, key := c.Outcome(map[string]int{"c\x00c": 2, "b\x00b": 2}, 2, 2)
	assert.Equal(t, OutcomeCommitted, outcome)
	assert.Equal(t, "b\x00b", key)
}
