package transport

import (
	"context"

	"google.golang.org/grpc"
)

// DiscoveryServer is the interface a Discovery Registry implementation
// satisfies to be wired into DiscoveryServiceDesc. It is written by hand in
// the shape protoc-gen-go-grpc would have produced from a .proto file
// describing the same two unary RPCs.
type DiscoveryServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Lookup(context.Context, *LookupRequest) (*LookupResponse, error)
}

func _Discovery_Register_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RegisterRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DiscoveryServer).Register(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/fabric.Discovery/Register"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DiscoveryServer).Register(ctx, req.(*RegisterRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Discovery_Lookup_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(LookupRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DiscoveryServer).Lookup(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/fabric.Discovery/Lookup"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DiscoveryServer).Lookup(ctx, req.(*LookupRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// DiscoveryServiceDesc is the grpc.ServiceDesc for the Discovery Registry,
// registered with grpc.RegisterService the same way a generated
// "_grpc.pb.go" file's <Service>_ServiceDesc would be.
var DiscoveryServiceDesc = grpc.ServiceDesc{
	ServiceName: "fabric.Discovery",
	HandlerType: (*DiscoveryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: _Discovery_Register_Handler},
		{MethodName: "Lookup", Handler: _Discovery_Lookup_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fabric/discovery.proto",
}

// RegisterDiscoveryServer registers srv on s under DiscoveryServiceDesc.
func RegisterDiscoveryServer(s grpc.ServiceRegistrar, srv DiscoveryServer) {
	s.RegisterService(&DiscoveryServiceDesc, srv)
}
