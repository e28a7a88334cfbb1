package ordering

import (
	"sync"
	"time"

	"github.com/ryjones/iroha/consensus"
	"github.com/ryjones/iroha/event"
	"github.com/ryjones/iroha/ledgerpb"
	"github.com/ryjones/iroha/log"
)

// ProposalEvent is published on event.OnProposalResponse for every
// round, with a nil proposal when the issuer had nothing or timed out.
type ProposalEvent struct {
	Round    consensus.Round
	Proposal *ledgerpb.Proposal
}

// RoundSwitch tells the gate a new round started, with the peer
// assignments already computed.
type RoundSwitch struct {
	Round consensus.Round
	Peers CurrentPeers
}

// Gate drives the ordering side of a round: it routes client batches
// into the fabric and requests the round proposal from the issuer,
// emitting the outcome on the bus. Handlers take shared access to the
// stop lock; Stop takes it exclusively and drains.
type Gate struct {
	manager *ConnectionManager
	bus     *event.Bus

	requestTimeout time.Duration

	stopMu  sync.RWMutex
	stopped bool
}

// GateContext carries the gate dependencies.
type GateContext struct {
	Manager        *ConnectionManager
	Bus            *event.Bus
	RequestTimeout time.Duration
}

func NewGate(ctx *GateContext) *Gate {
	return &Gate{
		manager:        ctx.Manager,
		bus:            ctx.Bus,
		requestTimeout: ctx.RequestTimeout,
	}
}

// PropagateBatch sends a client batch into the ordering fabric.
func (g *Gate) PropagateBatch(batch *ledgerpb.Batch) {
	g.stopMu.RLock()
	defer g.stopMu.RUnlock()
	if g.stopped {
		return
	}
	g.manager.OnBatches([]*ledgerpb.Batch{batch})
}

// ProcessRoundSwitch points the fabric at the new round's peers and
// requests the proposal. The proposal request blocks on a bounded
// timer: expiration emits an empty ProposalEvent so consensus can
// proceed with a NoProposal vote.
func (g *Gate) ProcessRoundSwitch(sw RoundSwitch) {
	g.stopMu.RLock()
	defer g.stopMu.RUnlock()
	if g.stopped {
		return
	}

	g.manager.InitializeConnections(sw.Peers)

	type result struct {
		proposal *ledgerpb.Proposal
		err      error
	}
	done := make(chan result, 1)
	go func() {
		p, err := g.manager.OnRequestProposal(sw.Round)
		done <- result{proposal: p, err: err}
	}()

	var proposal *ledgerpb.Proposal
	select {
	case r := <-done:
		if r.err != nil {
			log.Warnw("proposal request failed", "round", sw.Round.String(), "err", r.err)
		} else {
			proposal = r.proposal
		}
	case <-time.After(g.requestTimeout):
		log.Warnw("proposal request timed out", "round", sw.Round.String())
	}

	g.bus.Publish(event.OnProposalResponse, ProposalEvent{Round: sw.Round, Proposal: proposal})
}

// Stop blocks the gate and drains running handlers.
func (g *Gate) Stop() {
	g.stopMu.Lock()
	defer g.stopMu.Unlock()
	g.stopped = true
}
