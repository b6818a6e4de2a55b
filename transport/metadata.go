package transport

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// TransportAddressFromContext extracts the "grpc-url" metadata key Register
// callers must supply out-of-body: the caller's own externally reachable
// address, which is not necessarily what the accepting connection's peer
// address would show (NAT, load balancers, sidecars).
func TransportAddressFromContext(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.InvalidArgument, "missing request metadata")
	}
	vals := md.Get("grpc-url")
	if len(vals) == 0 || vals[0] == "" {
		return "", status.Error(codes.InvalidArgument, "missing grpc-url metadata")
	}
	return vals[0], nil
}

// CapabilityTokenFromContext extracts the "capability-token" metadata key.
// MultiModalExchange carries its authorizing token this way, as connection
// metadata sent with the stream header, rather than as a field on the
// first frame — a bidi stream's frames are a tagged union of modality
// payloads with no token field of their own.
func CapabilityTokenFromContext(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.InvalidArgument, "missing request metadata")
	}
	vals := md.Get("capability-token")
	if len(vals) == 0 || vals[0] == "" {
		return "", status.Error(codes.InvalidArgument, "missing capability-token metadata")
	}
	return vals[0], nil
}
