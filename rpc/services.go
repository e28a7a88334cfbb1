package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/ryjones/iroha/ledgerpb"
)

// Service and method names are the wire contract; they never change
// independently of the cluster.
const (
	orderingServiceName  = "iroha.ordering.OnDemandOrdering"
	consensusServiceName = "iroha.consensus.Consensus"
	loaderServiceName    = "iroha.network.BlockLoader"
	commandServiceName   = "iroha.torii.CommandService"
)

// OnDemandOrderingServer is the ordering endpoint of a peer.
type OnDemandOrderingServer interface {
	SendBatches(ctx context.Context, req *ledgerpb.BatchRequest) (*ledgerpb.Empty, error)
	RequestProposal(ctx context.Context, req *ledgerpb.ProposalRequest) (*ledgerpb.ProposalResponse, error)
}

// ConsensusServer receives YAC vote bundles.
type ConsensusServer interface {
	SendState(ctx context.Context, req *ledgerpb.State) (*ledgerpb.Empty, error)
}

// BlockLoaderServer serves committed blocks by hash.
type BlockLoaderServer interface {
	RequestBlock(ctx context.Context, req *ledgerpb.BlockRequest) (*ledgerpb.BlockResponse, error)
}

// CommandServiceServer is the client-facing transaction front door.
type CommandServiceServer interface {
	Torii(ctx context.Context, req *ledgerpb.BatchRequest) (*ledgerpb.ToriiResponse, error)
	Status(ctx context.Context, req *ledgerpb.BlockRequest) (*ledgerpb.ToriiResponse, error)
}

func unary(decode func(interface{}) error, in interface{}, call func() (interface{}, error), ctx context.Context, interceptor grpc.UnaryServerInterceptor, info *grpc.UnaryServerInfo) (interface{}, error) {
	if err := decode(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return call()
	}
	return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return call()
	})
}

func sendBatchesHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := &ledgerpb.BatchRequest{}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + orderingServiceName + "/SendBatches"}
	return unary(dec, in, func() (interface{}, error) {
		return srv.(OnDemandOrderingServer).SendBatches(ctx, in)
	}, ctx, interceptor, info)
}

func requestProposalHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := &ledgerpb.ProposalRequest{}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + orderingServiceName + "/RequestProposal"}
	return unary(dec, in, func() (interface{}, error) {
		return srv.(OnDemandOrderingServer).RequestProposal(ctx, in)
	}, ctx, interceptor, info)
}

func sendStateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := &ledgerpb.State{}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + consensusServiceName + "/SendState"}
	return unary(dec, in, func() (interface{}, error) {
		return srv.(ConsensusServer).SendState(ctx, in)
	}, ctx, interceptor, info)
}

func requestBlockHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := &ledgerpb.BlockRequest{}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + loaderServiceName + "/RequestBlock"}
	return unary(dec, in, func() (interface{}, error) {
		return srv.(BlockLoaderServer).RequestBlock(ctx, in)
	}, ctx, interceptor, info)
}

func toriiHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := &ledgerpb.BatchRequest{}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + commandServiceName + "/Torii"}
	return unary(dec, in, func() (interface{}, error) {
		return srv.(CommandServiceServer).Torii(ctx, in)
	}, ctx, interceptor, info)
}

func statusHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := &ledgerpb.BlockRequest{}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + commandServiceName + "/Status"}
	return unary(dec, in, func() (interface{}, error) {
		return srv.(CommandServiceServer).Status(ctx, in)
	}, ctx, interceptor, info)
}

var orderingServiceDesc = grpc.ServiceDesc{
	ServiceName: orderingServiceName,
	HandlerType: (*OnDemandOrderingServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SendBatches", Handler: sendBatchesHandler},
		{MethodName: "RequestProposal", Handler: requestProposalHandler},
	},
}

var consensusServiceDesc = grpc.ServiceDesc{
	ServiceName: consensusServiceName,
	HandlerType: (*ConsensusServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SendState", Handler: sendStateHandler},
	},
}

var loaderServiceDesc = grpc.ServiceDesc{
	ServiceName: loaderServiceName,
	HandlerType: (*BlockLoaderServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RequestBlock", Handler: requestBlockHandler},
	},
}

var commandServiceDesc = grpc.ServiceDesc{
	ServiceName: commandServiceName,
	HandlerType: (*CommandServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Torii", Handler: toriiHandler},
		{MethodName: "Status", Handler: statusHandler},
	},
}
