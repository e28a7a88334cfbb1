package rpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"

	"github.com/ryjones/iroha/consensus"
	"github.com/ryjones/iroha/future"
	"github.com/ryjones/iroha/ledgerpb"
	"github.com/ryjones/iroha/log"
)

// OrderingHandler is the local on-demand ordering service.
type OrderingHandler interface {
	OnBatches(batches []*ledgerpb.Batch)
	OnRequestProposal(round consensus.Round) *ledgerpb.Proposal
}

// ConsensusHandler ingests YAC vote bundles.
type ConsensusHandler interface {
	OnState(votes []*ledgerpb.Vote)
}

// BlockProvider serves committed blocks.
type BlockProvider interface {
	GetByHash(hash string) (*ledgerpb.Block, error)
}

// ServerContext carries the server dependencies. Torii requests are
// relayed to the node event loop as futures; ordering and consensus
// traffic dispatches straight into its handlers.
type ServerContext struct {
	Ordering  OrderingHandler
	Consensus ConsensusHandler
	Blocks    BlockProvider

	BatchFuture    chan *future.Batch
	TxStatusFuture chan *future.TxStatus
}

// Server implements every node-facing gRPC service.
type Server struct {
	ordering  OrderingHandler
	consensus ConsensusHandler
	blocks    BlockProvider

	batchFuture    chan *future.Batch
	txStatusFuture chan *future.TxStatus
}

func NewServer(ctx *ServerContext) *Server {
	return &Server{
		ordering:       ctx.Ordering,
		consensus:      ctx.Consensus,
		blocks:         ctx.Blocks,
		batchFuture:    ctx.BatchFuture,
		txStatusFuture: ctx.TxStatusFuture,
	}
}

// Register binds every service descriptor on the grpc server.
func (s *Server) Register(gs *grpc.Server) {
	gs.RegisterService(&orderingServiceDesc, s)
	gs.RegisterService(&consensusServiceDesc, s)
	gs.RegisterService(&loaderServiceDesc, s)
	gs.RegisterService(&commandServiceDesc, s)
}

func (s *Server) SendBatches(ctx context.Context, req *ledgerpb.BatchRequest) (*ledgerpb.Empty, error) {
	s.ordering.OnBatches(req.Batches)
	return &ledgerpb.Empty{}, nil
}

func (s *Server) RequestProposal(ctx context.Context, req *ledgerpb.ProposalRequest) (*ledgerpb.ProposalResponse, error) {
	round := consensus.Round{BlockRound: req.BlockRound, RejectRound: req.RejectRound}
	p := s.ordering.OnRequestProposal(round)
	return &ledgerpb.ProposalResponse{Proposal: p}, nil
}

func (s *Server) SendState(ctx context.Context, req *ledgerpb.State) (*ledgerpb.Empty, error) {
	s.consensus.OnState(req.Votes)
	return &ledgerpb.Empty{}, nil
}

func (s *Server) RequestBlock(ctx context.Context, req *ledgerpb.BlockRequest) (*ledgerpb.BlockResponse, error) {
	block, err := s.blocks.GetByHash(req.Hash)
	if err != nil {
		log.Debugw("block request missed", "hash", req.Hash)
		return &ledgerpb.BlockResponse{}, nil
	}
	return &ledgerpb.BlockResponse{Block: block}, nil
}

// Torii admits client batches into the node. Stateless checks run
// here; stateful admission happens on the node loop.
func (s *Server) Torii(ctx context.Context, req *ledgerpb.BatchRequest) (*ledgerpb.ToriiResponse, error) {
	resp := &ledgerpb.ToriiResponse{Status: "accepted"}
	for _, batch := range req.Batches {
		if err := validateBatch(batch); err != nil {
			return &ledgerpb.ToriiResponse{Status: err.Error()}, nil
		}
		f := &future.Batch{Batch: batch}
		f.Init()
		s.batchFuture <- f
		if err := f.Error(); err != nil {
			return &ledgerpb.ToriiResponse{Status: err.Error()}, nil
		}
		for _, tx := range batch.Transactions {
			resp.TxHashes = append(resp.TxHashes, ledgerpb.TxHash(tx))
		}
	}
	return resp, nil
}

// Status reports the terminal status of a transaction hash; pending
// or unknown transactions answer with an empty status.
func (s *Server) Status(ctx context.Context, req *ledgerpb.BlockRequest) (*ledgerpb.ToriiResponse, error) {
	f := &future.TxStatus{TxHash: req.Hash}
	f.Init()
	s.txStatusFuture <- f
	if err := f.Error(); err != nil {
		return &ledgerpb.ToriiResponse{Status: ""}, nil
	}
	return &ledgerpb.ToriiResponse{TxHashes: []string{req.Hash}, Status: f.Status}, nil
}

// validateBatch runs the stateless admission checks.
func validateBatch(batch *ledgerpb.Batch) error {
	if batch == nil || len(batch.Transactions) == 0 {
		return errors.New("empty batch")
	}
	for _, tx := range batch.Transactions {
		if len(tx.Commands) == 0 {
			return errors.New("transaction carries no commands")
		}
		if tx.Quorum == 0 {
			return errors.New("transaction quorum is zero")
		}
		if uint32(len(tx.Signatures)) < tx.Quorum {
			return errors.New("not enough signatures for quorum")
		}
	}
	return nil
}
