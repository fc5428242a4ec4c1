package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "auction.v1.AuctionService"

// AuctionServer is the server API for the AuctionService.
// Every method takes and returns a google.protobuf.Struct.
type AuctionServer interface {
	SelectNext(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PlaceBid(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FinalizeSale(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PassItem(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WithdrawItem(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResetAuction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddItem(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddBidder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListItems(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListBidders(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSummary(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetStatusBoard(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Audit(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(AuctionServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func methodDesc(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AuctionServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(name),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(AuctionServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// FullMethod returns the full RPC path of a method
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// ServiceDesc describes the AuctionService for grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuctionServer)(nil),
	Methods: []grpc.MethodDesc{
		methodDesc("SelectNext", AuctionServer.SelectNext),
		methodDesc("PlaceBid", AuctionServer.PlaceBid),
		methodDesc("FinalizeSale", AuctionServer.FinalizeSale),
		methodDesc("PassItem", AuctionServer.PassItem),
		methodDesc("WithdrawItem", AuctionServer.WithdrawItem),
		methodDesc("ResetAuction", AuctionServer.ResetAuction),
		methodDesc("AddItem", AuctionServer.AddItem),
		methodDesc("AddBidder", AuctionServer.AddBidder),
		methodDesc("ListItems", AuctionServer.ListItems),
		methodDesc("ListBidders", AuctionServer.ListBidders),
		methodDesc("GetSummary", AuctionServer.GetSummary),
		methodDesc("GetStatusBoard", AuctionServer.GetStatusBoard),
		methodDesc("Audit", AuctionServer.Audit),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "auction/v1/auction.proto",
}

// RegisterAuctionServer registers srv on s
func RegisterAuctionServer(s grpc.ServiceRegistrar, srv AuctionServer) {
	s.RegisterService(&ServiceDesc, srv)
}
