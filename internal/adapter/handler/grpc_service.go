package handler

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	ServiceName = "cartpick.v1.CartAllocation"
	CodecName   = "json"
)

// jsonCodec carries the wire messages as JSON so the service needs no generated code.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type CartAllocationServer interface {
	Claim(context.Context, *ClaimRequest) (*PickListResponse, error)
	Complete(context.Context, *AssignmentIDsRequest) (*AssignmentsResponse, error)
	Reopen(context.Context, *AssignmentIDsRequest) (*AssignmentsResponse, error)
	Delete(context.Context, *AssignmentIDsRequest) (*StatusResponse, error)
	CompleteShipments(context.Context, *ShipmentCodesRequest) (*AssignmentsResponse, error)
	RecordPicks(context.Context, *RecordPicksRequest) (*RecordPicksResponse, error)
	OutstandingQuantity(context.Context, *OutstandingRequest) (*OutstandingResponse, error)
}

var CartAllocationServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CartAllocationServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Claim", CartAllocationServer.Claim),
		unary("Complete", CartAllocationServer.Complete),
		unary("Reopen", CartAllocationServer.Reopen),
		unary("Delete", CartAllocationServer.Delete),
		unary("CompleteShipments", CartAllocationServer.CompleteShipments),
		unary("RecordPicks", CartAllocationServer.RecordPicks),
		unary("OutstandingQuantity", CartAllocationServer.OutstandingQuantity),
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterCartAllocationServer(s grpc.ServiceRegistrar, srv CartAllocationServer) {
	s.RegisterService(&CartAllocationServiceDesc, srv)
}

func unary[Req, Resp any](method string, call func(CartAllocationServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CartAllocationServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + method,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(CartAllocationServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// CartAllocationClient calls the service over a connection using the JSON codec.
type CartAllocationClient struct {
	cc grpc.ClientConnInterface
}

func NewCartAllocationClient(cc grpc.ClientConnInterface) *CartAllocationClient {
	return &CartAllocationClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CartAllocationClient) Claim(ctx context.Context, in *ClaimRequest, opts ...grpc.CallOption) (*PickListResponse, error) {
	return invoke[PickListResponse](ctx, c.cc, "Claim", in, opts)
}

func (c *CartAllocationClient) Complete(ctx context.Context, in *AssignmentIDsRequest, opts ...grpc.CallOption) (*AssignmentsResponse, error) {
	return invoke[AssignmentsResponse](ctx, c.cc, "Complete", in, opts)
}

func (c *CartAllocationClient) Reopen(ctx context.Context, in *AssignmentIDsRequest, opts ...grpc.CallOption) (*AssignmentsResponse, error) {
	return invoke[AssignmentsResponse](ctx, c.cc, "Reopen", in, opts)
}

func (c *CartAllocationClient) Delete(ctx context.Context, in *AssignmentIDsRequest, opts ...grpc.CallOption) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, "Delete", in, opts)
}

func (c *CartAllocationClient) CompleteShipments(ctx context.Context, in *ShipmentCodesRequest, opts ...grpc.CallOption) (*AssignmentsResponse, error) {
	return invoke[AssignmentsResponse](ctx, c.cc, "CompleteShipments", in, opts)
}

func (c *CartAllocationClient) RecordPicks(ctx context.Context, in *RecordPicksRequest, opts ...grpc.CallOption) (*RecordPicksResponse, error) {
	return invoke[RecordPicksResponse](ctx, c.cc, "RecordPicks", in, opts)
}

func (c *CartAllocationClient) OutstandingQuantity(ctx context.Context, in *OutstandingRequest, opts ...grpc.CallOption) (*OutstandingResponse, error) {
	return invoke[OutstandingResponse](ctx, c.cc, "OutstandingQuantity", in, opts)
}
