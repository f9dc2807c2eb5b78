package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "slotbook.v1.BookingService"

// BookingServiceServer exchanges google.protobuf.Struct messages shaped like the HTTP JSON bodies.
type BookingServiceServer interface {
	GetAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListRange(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Mutate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	FreeSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(srv BookingServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BookingServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BookingServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var BookingServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetAvailability",
			Handler:    unaryHandler("GetAvailability", BookingServiceServer.GetAvailability),
		},
		{
			MethodName: "ListRange",
			Handler:    unaryHandler("ListRange", BookingServiceServer.ListRange),
		},
		{
			MethodName: "Mutate",
			Handler:    unaryHandler("Mutate", BookingServiceServer.Mutate),
		},
		{
			MethodName: "FreeSlots",
			Handler:    unaryHandler("FreeSlots", BookingServiceServer.FreeSlots),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "slotbook/v1/booking.proto",
}

func RegisterBookingServiceServer(s grpc.ServiceRegistrar, srv BookingServiceServer) {
	s.RegisterService(&BookingServiceDesc, srv)
}

// BookingServiceClient is the client side of BookingServiceDesc.
type BookingServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewBookingServiceClient(cc grpc.ClientConnInterface) *BookingServiceClient {
	return &BookingServiceClient{cc: cc}
}

func (c *BookingServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BookingServiceClient) GetAvailability(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetAvailability", in, opts...)
}

func (c *BookingServiceClient) ListRange(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListRange", in, opts...)
}

func (c *BookingServiceClient) Mutate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Mutate", in, opts...)
}

func (c *BookingServiceClient) FreeSlots(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "FreeSlots", in, opts...)
}
