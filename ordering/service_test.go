package ordering

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryjones/iroha/consensus"
	"github.com/ryjones/iroha/ledgerpb"
)

func testBatch(creator string, txCount int) *ledgerpb.Batch {
	b := &ledgerpb.Batch{}
	for i := 0; i < txCount; i++ {
		b.Transactions = append(b.Transactions, &ledgerpb.Transaction{
			CreatorAccountID: creator,
			CreatedTime:      uint64(1000 + i),
			Quorum:           1,
			Commands: []*ledgerpb.Command{
				{SetAccountDetail: &ledgerpb.SetAccountDetail{
					AccountID: creator, Key: fmt.Sprintf("k%d", i), Value: "v",
				}},
			},
		})
	}
	return b
}

type stubPresence struct {
	processed map[string]bool
}

func (s *stubPresence) AlreadyProcessed(batch *ledgerpb.Batch) bool {
	if len(batch.Transactions) == 0 {
		return false
	}
	return s.processed[ledgerpb.TxHash(batch.Transactions[0])]
}

func newTestService(limit int) (*Service, *stubPresence) {
	presence := &stubPresence{processed: make(map[string]bool)}
	svc := NewService(&ServiceContext{
		TransactionLimit: limit,
		Cache:            NewBatchCache(),
		Presence:         presence,
	})
	svc.now = func() uint64 { return 1234 }
	return svc, presence
}

func TestBatchCacheInsertIdempotent(t *testing.T) {
	bc := NewBatchCache()
	b := testBatch("alice@test", 2)

	assert.True(t, bc.Insert(b))
	assert.False(t, bc.Insert(b))
	assert.Equal(t, 2, bc.TxCount())
}

func TestBatchCacheDrainRespectsLimit(t *testing.T) {
	bc := NewBatchCache()
	require.True(t, bc.Insert(testBatch("a@test", 2)))
	require.True(t, bc.Insert(testBatch("b@test", 2)))
	require.True(t, bc.Insert(testBatch("c@test", 3)))

	txs := bc.Drain(5)
	assert.Equal(t, 4, len(txs))

	// draining does not remove
	assert.Equal(t, 7, bc.TxCount())
}

func TestBatchCacheRemoveByTxHash(t *testing.T) {
	bc := NewBatchCache()
	b1 := testBatch("a@test", 2)
	b2 := testBatch("b@test", 1)
	require.True(t, bc.Insert(b1))
	require.True(t, bc.Insert(b2))

	hashes := map[string]struct{}{
		ledgerpb.TxHash(b1.Transactions[0]): {},
	}
	bc.Remove(hashes)

	assert.Equal(t, 1, bc.TxCount())
	assert.False(t, bc.Contains(ledgerpb.TxHash(b1.Transactions[1])))
	assert.True(t, bc.Contains(ledgerpb.TxHash(b2.Transactions[0])))
}

func TestServiceFiltersProcessedBatches(t *testing.T) {
	svc, presence := newTestService(10)

	replayed := testBatch("replay@test", 1)
	presence.processed[ledgerpb.TxHash(replayed.Transactions[0])] = true

	svc.OnBatches([]*ledgerpb.Batch{replayed, testBatch("fresh@test", 1)})
	assert.Equal(t, 1, svc.Cache().TxCount())
}

func TestServiceProposalPerRound(t *testing.T) {
	svc, _ := newTestService(10)
	svc.OnBatches([]*ledgerpb.Batch{testBatch("a@test", 2)})

	round := consensus.Round{BlockRound: 0, RejectRound: 0}
	p := svc.OnRequestProposal(round)
	require.NotNil(t, p)
	assert.Equal(t, uint64(1), p.Height)
	assert.Equal(t, 2, len(p.Transactions))

	// same round yields the identical stored proposal
	again := svc.OnRequestProposal(round)
	assert.Equal(t, p, again)

	// far-future rounds are refused
	assert.Nil(t, svc.OnRequestProposal(consensus.Round{BlockRound: 5, RejectRound: 0}))
}

func TestServiceEmptyCacheMeansNoProposal(t *testing.T) {
	svc, _ := newTestService(10)
	p := svc.OnRequestProposal(consensus.Round{BlockRound: 0, RejectRound: 1})
	assert.Nil(t, p)
}

func TestServiceWindowEviction(t *testing.T) {
	svc, _ := newTestService(10)

	for i := uint64(0); i < 6; i++ {
		svc.OnBatches([]*ledgerpb.Batch{testBatch(fmt.Sprintf("u%d@test", i), 1)})
		round := consensus.Round{BlockRound: i, RejectRound: 0}
		svc.OnRequestProposal(round)
		svc.OnCollaborationOutcome(consensus.Round{BlockRound: i + 1, RejectRound: 0})
	}

	// only the window of recent rounds survives
	svc.mu.Lock()
	count := len(svc.proposals)
	svc.mu.Unlock()
	assert.LessOrEqual(t, count, DefaultProposalWindow+1)
}

func TestServiceCommittedTxsLeaveCache(t *testing.T) {
	svc, _ := newTestService(10)
	b := testBatch("a@test", 1)
	svc.OnBatches([]*ledgerpb.Batch{b})

	svc.OnTxsCommitted(map[string]struct{}{
		ledgerpb.TxHash(b.Transactions[0]): {},
	})
	assert.True(t, svc.Cache().Empty())
}
