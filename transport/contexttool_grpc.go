package transport

import (
	"context"

	"google.golang.org/grpc"
)

// ContextToolServer is the interface implemented by the ContextTool RPC
// handler set: one unary call (RequestContext), one server-streaming call
// (SubscribeTelemetry), one bidirectional-streaming call
// (MultiModalExchange), and one further unary call (InvokeTool).
type ContextToolServer interface {
	RequestContext(context.Context, *ContextRequest) (*ContextResponse, error)
	SubscribeTelemetry(*TelemetryRequest, ContextTool_SubscribeTelemetryServer) error
	MultiModalExchange(ContextTool_MultiModalExchangeServer) error
	InvokeTool(context.Context, *ToolRequest) (*ToolResponse, error)
}

// ContextTool_SubscribeTelemetryServer is the server-side stream handle for
// SubscribeTelemetry, mirroring the interface protoc-gen-go-grpc would
// generate for a server-streaming RPC.
type ContextTool_SubscribeTelemetryServer interface {
	Send(*TelemetryFrame) error
	grpc.ServerStream
}

type contextToolSubscribeTelemetryServer struct {
	grpc.ServerStream
}

func (s *contextToolSubscribeTelemetryServer) Send(frame *TelemetryFrame) error {
	return s.ServerStream.SendMsg(frame)
}

// ContextTool_MultiModalExchangeServer is the server-side stream handle for
// MultiModalExchange, a full bidirectional stream.
type ContextTool_MultiModalExchangeServer interface {
	Send(*MultiModalFrame) error
	Recv() (*MultiModalFrame, error)
	grpc.ServerStream
}

type contextToolMultiModalExchangeServer struct {
	grpc.ServerStream
}

func (s *contextToolMultiModalExchangeServer) Send(frame *MultiModalFrame) error {
	return s.ServerStream.SendMsg(frame)
}

func (s *contextToolMultiModalExchangeServer) Recv() (*MultiModalFrame, error) {
	frame := new(MultiModalFrame)
	if err := s.ServerStream.RecvMsg(frame); err != nil {
		return nil, err
	}
	return frame, nil
}

func _ContextTool_RequestContext_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ContextRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ContextToolServer).RequestContext(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/fabric.ContextTool/RequestContext"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ContextToolServer).RequestContext(ctx, req.(*ContextRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ContextTool_InvokeTool_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ToolRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ContextToolServer).InvokeTool(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/fabric.ContextTool/InvokeTool"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ContextToolServer).InvokeTool(ctx, req.(*ToolRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ContextTool_SubscribeTelemetry_Handler(srv any, stream grpc.ServerStream) error {
	in := new(TelemetryRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ContextToolServer).SubscribeTelemetry(in, &contextToolSubscribeTelemetryServer{stream})
}

func _ContextTool_MultiModalExchange_Handler(srv any, stream grpc.ServerStream) error {
	return srv.(ContextToolServer).MultiModalExchange(&contextToolMultiModalExchangeServer{stream})
}

// ContextToolServiceDesc is the grpc.ServiceDesc for ContextTool.
var ContextToolServiceDesc = grpc.ServiceDesc{
	ServiceName: "fabric.ContextTool",
	HandlerType: (*ContextToolServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RequestContext", Handler: _ContextTool_RequestContext_Handler},
		{MethodName: "InvokeTool", Handler: _ContextTool_InvokeTool_Handler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "SubscribeTelemetry",
			Handler:       _ContextTool_SubscribeTelemetry_Handler,
			ServerStreams: true,
		},
		{
			StreamName:    "MultiModalExchange",
			Handler:       _ContextTool_MultiModalExchange_Handler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "fabric/contexttool.proto",
}

// RegisterContextToolServer registers srv on s under ContextToolServiceDesc.
func RegisterContextToolServer(s grpc.ServiceRegistrar, srv ContextToolServer) {
	s.RegisterService(&ContextToolServiceDesc, srv)
}
