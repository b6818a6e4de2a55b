package transport

import (
	"context"

	"google.golang.org/grpc"
)

// EventBusServer is the interface implemented by the EventBus RPC handler
// set: one unary call (Publish) and one server-streaming call (Subscribe).
type EventBusServer interface {
	Publish(context.Context, *EventPublishRequest) (*EventPublishResponse, error)
	Subscribe(*EventSubscribeRequest, EventBus_SubscribeServer) error
}

// EventBus_SubscribeServer is the server-side stream handle for Subscribe.
type EventBus_SubscribeServer interface {
	Send(*EventEnvelope) error
	grpc.ServerStream
}

type eventBusSubscribeServer struct {
	grpc.ServerStream
}

func (s *eventBusSubscribeServer) Send(env *EventEnvelope) error {
	return s.ServerStream.SendMsg(env)
}

func _EventBus_Publish_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(EventPublishRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EventBusServer).Publish(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/fabric.EventBus/Publish"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EventBusServer).Publish(ctx, req.(*EventPublishRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _EventBus_Subscribe_Handler(srv any, stream grpc.ServerStream) error {
	in := new(EventSubscribeRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(EventBusServer).Subscribe(in, &eventBusSubscribeServer{stream})
}

// EventBusServiceDesc is the grpc.ServiceDesc for EventBus.
var EventBusServiceDesc = grpc.ServiceDesc{
	ServiceName: "fabric.EventBus",
	HandlerType: (*EventBusServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Publish", Handler: _EventBus_Publish_Handler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       _EventBus_Subscribe_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "fabric/eventbus.proto",
}

// RegisterEventBusServer registers srv on s under EventBusServiceDesc.
func RegisterEventBusServer(s grpc.ServiceRegistrar, srv EventBusServer) {
	s.RegisterService(&EventBusServiceDesc, srv)
}
