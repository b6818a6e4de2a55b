package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"goa.design/fabric/capability"
	"goa.design/fabric/contexttool"
	"goa.design/fabric/transport"
)

// ContextTool adapts a *contexttool.Service to transport.ContextToolServer.
type ContextTool struct {
	signer *capability.Signer
	svc    *contexttool.Service
}

// NewContextTool returns a ContextTool adapter.
func NewContextTool(signer *capability.Signer, svc *contexttool.Service) *ContextTool {
	return &ContextTool{signer: signer, svc: svc}
}

func (c *ContextTool) verify(token string) (*capability.Claims, error) {
	claims, err := c.signer.Verify(token)
	if err != nil {
		return nil, statusForTokenError(err)
	}
	return claims, nil
}

func (c *ContextTool) verifyProof(raw string, primary *capability.Claims) (*capability.DelegationClaims, error) {
	if raw == "" {
		return nil, nil
	}
	proof, err := c.signer.VerifyProof(raw, primary)
	if err != nil {
		if errors.Is(err, capability.ErrInvalidSignature) || errors.Is(err, capability.ErrDelegationExpired) {
			return nil, status.Errorf(codes.Unauthenticated, "delegation proof: %v", err)
		}
		return nil, status.Errorf(codes.PermissionDenied, "delegation proof: %v", err)
	}
	return proof, nil
}

func (c *ContextTool) RequestContext(ctx context.Context, req *transport.ContextRequest) (*transport.ContextResponse, error) {
	claims, err := c.verify(req.CapabilityToken)
	if err != nil {
		return nil, err
	}

	cv, err := c.svc.RequestContext(ctx, claims, req.ContextKey, req.Parameters)
	if err != nil {
		return nil, statusForContextError(err)
	}
	return &transport.ContextResponse{SerializedValue: cv.SerializedValue, Metadata: cv.Metadata}, nil
}

func (c *ContextTool) SubscribeTelemetry(req *transport.TelemetryRequest, stream transport.ContextTool_SubscribeTelemetryServer) error {
	claims, err := c.verify(req.CapabilityToken)
	if err != nil {
		return err
	}

	frames, cancel, err := c.svc.SubscribeTelemetry(stream.Context(), claims, req.StreamID)
	if err != nil {
		return statusForContextError(err)
	}
	defer cancel()

	for {
		select {
		case <-stream.Context().Done():
			return nil
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			payload := fmt.Sprintf("%v", frame.Fields)
			if err := stream.Send(&transport.TelemetryFrame{
				TimestampMs: time.Now().UTC().UnixMilli(),
				Payload:     []byte(payload),
			}); err != nil {
				return err
			}
		}
	}
}

func (c *ContextTool) MultiModalExchange(stream transport.ContextTool_MultiModalExchangeServer) error {
	token, err := transport.CapabilityTokenFromContext(stream.Context())
	if err != nil {
		return err
	}
	claims, err := c.verify(token)
	if err != nil {
		return err
	}
	exchange, err := c.svc.OpenExchange(stream.Context(), claims)
	if err != nil {
		return statusForContextError(err)
	}
	defer exchange.Close(c.svc)

	for {
		in, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		out := exchange.EchoFrame(toDomainFrame(in))
		if err := stream.Send(fromDomainFrame(out)); err != nil {
			return err
		}
	}
}

func (c *ContextTool) InvokeTool(ctx context.Context, req *transport.ToolRequest) (*transport.ToolResponse, error) {
	claims, err := c.verify(req.CapabilityToken)
	if err != nil {
		return nil, err
	}
	proof, err := c.verifyProof(req.AgentDelegationProof, claims)
	if err != nil {
		return nil, err
	}

	args := make(map[string]any, len(req.Arguments))
	for k, v := range req.Arguments {
		args[k] = v
	}

	result, err := c.svc.InvokeTool(ctx, claims, proof, req.ToolName, args)
	if err != nil {
		return nil, statusForContextError(err)
	}
	if result.Warning != "" {
		return &transport.ToolResponse{Success: true, Warnings: []string{result.Warning}}, nil
	}

	outputs := make(map[string][]byte, len(result.Output))
	for k, v := range result.Output {
		outputs[k] = []byte(fmt.Sprintf("%v", v))
	}
	return &transport.ToolResponse{Success: true, Outputs: outputs}, nil
}

func statusForContextError(err error) error {
	switch {
	case errors.Is(err, contexttool.ErrUnauthorized):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, contexttool.ErrUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, contexttool.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// toDomainFrame and fromDomainFrame convert between the wire tagged union
// and the domain one so MultiModalExchange's echo (and any future replace
// of it with a real transform) always runs against contexttool's own
// MultiModalFrame type rather than the transport struct directly.
func toDomainFrame(in *transport.MultiModalFrame) contexttool.MultiModalFrame {
	out := contexttool.MultiModalFrame{Kind: in.Kind, Raw: in.Raw}
	switch {
	case in.TextChunk != nil:
		out.Text = &contexttool.TextChunk{Content: in.TextChunk.Content, Sequence: in.TextChunk.Sequence}
	case in.ImageFrame != nil:
		out.Image = &contexttool.ImageFrame{
			JPEGData: in.ImageFrame.JPEGData,
			Width:    in.ImageFrame.Width,
			Height:   in.ImageFrame.Height,
			Sequence: in.ImageFrame.Sequence,
		}
	case in.AudioFrame != nil:
		out.Audio = &contexttool.AudioFrame{PCMData: in.AudioFrame.PCMData, TimestampMs: in.AudioFrame.TimestampMs}
	case in.BinaryBlob != nil:
		out.Blob = &contexttool.BinaryBlob{
			Data:     in.BinaryBlob.Data,
			MimeType: in.BinaryBlob.MimeType,
			Sequence: in.BinaryBlob.Sequence,
		}
	}
	return out
}

func fromDomainFrame(in contexttool.MultiModalFrame) *transport.MultiModalFrame {
	out := &transport.MultiModalFrame{Kind: in.Kind, Raw: in.Raw}
	switch {
	case in.Text != nil:
		out.TextChunk = &transport.TextChunk{Content: in.Text.Content, Sequence: in.Text.Sequence}
	case in.Image != nil:
		out.ImageFrame = &transport.ImageFrame{
			JPEGData: in.Image.JPEGData,
			Width:    in.Image.Width,
			Height:   in.Image.Height,
			Sequence: in.Image.Sequence,
		}
	case in.Audio != nil:
		out.AudioFrame = &transport.AudioFrame{PCMData: in.Audio.PCMData, TimestampMs: in.Audio.TimestampMs}
	case in.Blob != nil:
		out.BinaryBlob = &transport.BinaryBlob{
			Data:     in.Blob.Data,
			MimeType: in.Blob.MimeType,
			Sequence: in.Blob.Sequence,
		}
	}
	return out
}
