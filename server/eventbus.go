package server

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"goa.design/fabric/capability"
	"goa.design/fabric/eventbus"
	"goa.design/fabric/transport"
)

const audEventBusServer = "EventBusServer"

// EventBus adapts a *eventbus.Bus to transport.EventBusServer.
type EventBus struct {
	signer *capability.Signer
	bus    *eventbus.Bus
}

// NewEventBus returns an EventBus adapter.
func NewEventBus(signer *capability.Signer, bus *eventbus.Bus) *EventBus {
	return &EventBus{signer: signer, bus: bus}
}

func (e *EventBus) Publish(ctx context.Context, req *transport.EventPublishRequest) (*transport.EventPublishResponse, error) {
	claims, err := e.signer.Verify(req.PublisherToken)
	if err != nil {
		return nil, statusForTokenError(err)
	}
	if !capability.HasAudience(claims, audEventBusServer) {
		return nil, status.Error(codes.PermissionDenied, "token not audienced for EventBusServer")
	}

	if _, err := e.bus.Publish(ctx, claims, req.Topic, map[string]any{"raw": req.Payload}); err != nil {
		return nil, statusForBusError(err)
	}
	return &transport.EventPublishResponse{Success: true, Message: "published"}, nil
}

func (e *EventBus) Subscribe(req *transport.EventSubscribeRequest, stream transport.EventBus_SubscribeServer) error {
	claims, err := e.signer.Verify(req.SubscriberToken)
	if err != nil {
		return statusForTokenError(err)
	}
	if !capability.HasAudience(claims, audEventBusServer) {
		return status.Error(codes.PermissionDenied, "token not audienced for EventBusServer")
	}

	envelopes, cancel, err := e.bus.Subscribe(stream.Context(), claims, req.TopicFilter)
	if err != nil {
		return statusForBusError(err)
	}
	defer cancel()

	for {
		select {
		case <-stream.Context().Done():
			return nil
		case env, ok := <-envelopes:
			if !ok {
				return nil
			}
			payload, _ := env.Payload["raw"].([]byte)
			if err := stream.Send(&transport.EventEnvelope{Topic: env.Topic, Payload: payload, SequenceID: env.Sequence}); err != nil {
				return err
			}
		}
	}
}

func statusForBusError(err error) error {
	switch {
	case errors.Is(err, eventbus.ErrUnauthorized):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, eventbus.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
