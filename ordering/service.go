package ordering

import (
	"sort"
	"sync"
	"time"

	"github.com/ryjones/iroha/consensus"
	"github.com/ryjones/iroha/ledgerpb"
	"github.com/ryjones/iroha/log"
)

// DefaultProposalWindow is how many past-round proposals stay cached.
const DefaultProposalWindow = 3

// TxPresenceChecker answers whether a batch was already committed or
// rejected, to short-circuit replays.
type TxPresenceChecker interface {
	AlreadyProcessed(batch *ledgerpb.Batch) bool
}

// Service assembles proposals on demand, one per round, over a sliding
// window of recent rounds.
type Service struct {
	txLimit    int
	windowSize int

	cache    *BatchCache
	presence TxPresenceChecker

	mu           sync.Mutex
	proposals    map[consensus.Round]*ledgerpb.Proposal
	currentRound consensus.Round

	now func() uint64
}

// ServiceContext carries the service dependencies.
type ServiceContext struct {
	TransactionLimit int
	ProposalWindow   int
	Cache            *BatchCache
	Presence         TxPresenceChecker
}

func NewService(ctx *ServiceContext) *Service {
	window := ctx.ProposalWindow
	if window == 0 {
		window = DefaultProposalWindow
	}
	return &Service{
		txLimit:    ctx.TransactionLimit,
		windowSize: window,
		cache:      ctx.Cache,
		presence:   ctx.Presence,
		proposals:  make(map[consensus.Round]*ledgerpb.Proposal),
		now:        func() uint64 { return uint64(time.Now().UnixMilli()) },
	}
}

// Cache exposes the batch cache for commit-time removal.
func (s *Service) Cache() *BatchCache {
	return s.cache
}

// OnBatches filters replayed batches and caches the rest.
func (s *Service) OnBatches(batches []*ledgerpb.Batch) {
	inserted := 0
	for _, b := range batches {
		if s.presence != nil && s.presence.AlreadyProcessed(b) {
			log.Warnw("duplicate batch dropped", "hash", ledgerpb.BatchHash(b))
			continue
		}
		if s.cache.Insert(b) {
			inserted++
		}
	}
	log.Infow("onBatches", "received", len(batches), "inserted", inserted)
}

// OnRequestProposal returns the proposal for the round, assembling one
// from the batch cache when the round is current or near-future. A nil
// return means no proposal exists for the round.
func (s *Service) OnRequestProposal(round consensus.Round) *ledgerpb.Proposal {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.proposals[round]; ok {
		return p
	}

	var distance uint64
	if round.BlockRound == s.currentRound.BlockRound {
		distance = round.RejectRound - s.currentRound.RejectRound
	} else {
		distance = round.BlockRound - s.currentRound.BlockRound
	}
	if distance > 2 {
		return nil
	}
	return s.packProposal(round)
}

// packProposal drains the cache into a new proposal for the round.
// Rounds with no pending transactions record an explicit absence so
// repeat requests stay cheap. Callers hold s.mu.
func (s *Service) packProposal(round consensus.Round) *ledgerpb.Proposal {
	var proposal *ledgerpb.Proposal
	txs := s.cache.Drain(s.txLimit)
	if len(txs) > 0 {
		proposal = &ledgerpb.Proposal{
			Height:       round.BlockRound + 1,
			CreatedTime:  s.now(),
			Transactions: txs,
		}
		log.Debugw("packed proposal", "round", round.String(), "txs", len(txs))
	} else {
		log.Debugw("no transactions for proposal", "round", round.String())
	}
	s.proposals[round] = proposal
	return proposal
}

// OnCollaborationOutcome advances the current round, assembles the
// next proposal speculatively and enforces the window.
func (s *Service) OnCollaborationOutcome(round consensus.Round) {
	log.Infow("onCollaborationOutcome", "round", round.String())
	s.mu.Lock()
	s.currentRound = round
	if _, ok := s.proposals[round]; !ok {
		s.packProposal(round)
	}
	s.mu.Unlock()
	s.tryErase(round)
}

// OnTxsCommitted removes batches whose transactions were committed or
// rejected in a block.
func (s *Service) OnTxsCommitted(hashes map[string]struct{}) {
	s.cache.Remove(hashes)
}

// HasProposal reports whether the round already has an entry.
func (s *Service) HasProposal(round consensus.Round) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[round]
	return ok && p != nil
}

// tryErase drops proposal entries older than the retention window:
// the most recent windowSize rounds below the current one survive,
// everything older goes.
func (s *Service) tryErase(current consensus.Round) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var older []consensus.Round
	for r := range s.proposals {
		if r.Less(current) {
			older = append(older, r)
		}
	}
	if len(older) <= s.windowSize {
		return
	}
	sort.Slice(older, func(i, j int) bool { return older[i].Less(older[j]) })
	for _, r := range older[:len(older)-s.windowSize] {
		delete(s.proposals, r)
		log.Debugw("erased proposal", "round", r.String())
	}
}
