// Package server adapts the fabric's domain services (registry,
// contexttool, eventbus) to the grpc.ServiceDesc interfaces defined in
// transport: verifying tokens, mapping domain errors to grpc status codes,
// and translating between wire messages and domain calls.
package server

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"goa.design/fabric/capability"
	"goa.design/fabric/registry"
	"goa.design/fabric/transport"
)

const (
	capRegistryRegister = "registry:register"
	capRegistryLookup   = "registry:lookup"
	audRegistryServer   = "RegistryServer"
)

// Discovery adapts a *registry.Registry to transport.DiscoveryServer.
type Discovery struct {
	signer *capability.Signer
	reg    *registry.Registry
}

// NewDiscovery returns a Discovery adapter. signer verifies every incoming
// bearer token; reg holds the actual endpoint directory.
func NewDiscovery(signer *capability.Signer, reg *registry.Registry) *Discovery {
	return &Discovery{signer: signer, reg: reg}
}

func (d *Discovery) Register(ctx context.Context, req *transport.RegisterRequest) (*transport.RegisterResponse, error) {
	claims, err := d.signer.Verify(req.RegistrationToken)
	if err != nil {
		return nil, statusForTokenError(err)
	}
	if !capability.HasCapability(claims, capRegistryRegister) {
		return nil, status.Error(codes.PermissionDenied, "token lacks registry:register")
	}
	if !capability.HasAudience(claims, audRegistryServer) {
		return nil, status.Error(codes.PermissionDenied, "token not audienced for RegistryServer")
	}

	address, err := transport.TransportAddressFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := d.reg.Register(ctx, req.ServerName, address, req.Capabilities); err != nil {
		return nil, status.Errorf(codes.Internal, "register: %v", err)
	}
	return &transport.RegisterResponse{Success: true, Message: "registered"}, nil
}

func (d *Discovery) Lookup(ctx context.Context, req *transport.LookupRequest) (*transport.LookupResponse, error) {
	claims, err := d.signer.Verify(req.RequesterToken)
	if err != nil {
		return nil, statusForTokenError(err)
	}
	if !capability.HasCapability(claims, capRegistryLookup) {
		return nil, status.Error(codes.PermissionDenied, "token lacks registry:lookup")
	}

	var out []transport.EndpointDescriptor
	seen := map[string]struct{}{}
	for _, filter := range req.CapabilityFilter {
		matches, err := d.reg.Lookup(ctx, filter, claims.Audiences())
		if err != nil {
			return nil, status.Errorf(codes.Internal, "lookup: %v", err)
		}
		for _, m := range matches {
			if _, dup := seen[m.ServerName]; dup {
				continue
			}
			seen[m.ServerName] = struct{}{}
			out = append(out, transport.EndpointDescriptor{
				ServerName:   m.ServerName,
				GRPCURL:      m.TransportAddress,
				Capabilities: m.Capabilities,
			})
		}
	}
	return &transport.LookupResponse{Endpoints: out}, nil
}

func statusForTokenError(err error) error {
	if errors.Is(err, capability.ErrExpired) || errors.Is(err, capability.ErrInvalidSignature) || errors.Is(err, capability.ErrMalformed) {
		return status.Error(codes.Unauthenticated, err.Error())
	}
	return status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
}
