package rpc

import (
	"context"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/ryjones/iroha/consensus"
	"github.com/ryjones/iroha/ledgerpb"
	"github.com/ryjones/iroha/ordering"
)

// defaultCallTimeout bounds every peer RPC.
const defaultCallTimeout = 5 * time.Second

// connPool caches one connection per peer address. close closes all of
// them, cancelling pending calls.
type connPool struct {
	mu    sync.Mutex
	conns map[string]*grpc.ClientConn
}

func newConnPool() *connPool {
	return &connPool{conns: make(map[string]*grpc.ClientConn)}
}

func (p *connPool) get(addr string) (*grpc.ClientConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if conn, ok := p.conns[addr]; ok {
		return conn, nil
	}
	conn, err := grpc.Dial(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
	if err != nil {
		return nil, err
	}
	p.conns[addr] = conn
	return conn, nil
}

func (p *connPool) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for addr, conn := range p.conns {
		conn.Close()
		delete(p.conns, addr)
	}
}

// ClientFactory hands out per-peer clients for every service the
// fabric calls.
type ClientFactory struct {
	pool    *connPool
	timeout time.Duration
}

func NewClientFactory() *ClientFactory {
	return &ClientFactory{pool: newConnPool(), timeout: defaultCallTimeout}
}

// Close drops every pooled connection.
func (f *ClientFactory) Close() {
	f.pool.close()
}

// orderingClient is a peer's on-demand ordering endpoint.
type orderingClient struct {
	conn    *grpc.ClientConn
	timeout time.Duration
}

// Create opens the ordering endpoint of a peer, satisfying
// ordering.NotificationFactory.
func (f *ClientFactory) Create(peer *ledgerpb.Peer) (ordering.OdOsNotification, error) {
	conn, err := f.pool.get(peer.Address)
	if err != nil {
		return nil, err
	}
	return &orderingClient{conn: conn, timeout: f.timeout}, nil
}

func (c *orderingClient) OnBatches(batches []*ledgerpb.Batch) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	out := &ledgerpb.Empty{}
	return c.conn.Invoke(ctx, "/"+orderingServiceName+"/SendBatches",
		&ledgerpb.BatchRequest{Batches: batches}, out)
}

func (c *orderingClient) OnRequestProposal(round consensus.Round) (*ledgerpb.Proposal, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	out := &ledgerpb.ProposalResponse{}
	err := c.conn.Invoke(ctx, "/"+orderingServiceName+"/RequestProposal",
		&ledgerpb.ProposalRequest{BlockRound: round.BlockRound, RejectRound: round.RejectRound}, out)
	if err != nil {
		return nil, err
	}
	return out.Proposal, nil
}

// SendState delivers a vote bundle to a peer, satisfying
// consensus.StateNetwork.
func (f *ClientFactory) SendState(peer *ledgerpb.Peer, votes []*ledgerpb.Vote) error {
	conn, err := f.pool.get(peer.Address)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()
	out := &ledgerpb.Empty{}
	return conn.Invoke(ctx, "/"+consensusServiceName+"/SendState",
		&ledgerpb.State{Votes: votes}, out)
}

// RequestBlock fetches a committed block from a peer by hash.
func (f *ClientFactory) RequestBlock(peer *ledgerpb.Peer, hash string) (*ledgerpb.Block, error) {
	conn, err := f.pool.get(peer.Address)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()
	out := &ledgerpb.BlockResponse{}
	err = conn.Invoke(ctx, "/"+loaderServiceName+"/RequestBlock",
		&ledgerpb.BlockRequest{Hash: hash}, out)
	if err != nil {
		return nil, err
	}
	return out.Block, nil
}
