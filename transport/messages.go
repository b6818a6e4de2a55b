// Package transport defines the fabric's wire messages and a hand-rolled
// grpc.ServiceDesc per service, wired directly to gob-encoded Go structs
// rather than to code generated from a .proto file. Field shapes mirror the
// message contracts of the RPC surface exactly; encoding/gob supplies the
// actual binary framing through the grpc codec defined in codec.go.
package transport

// RegisterRequest is Discovery's Register input.
type RegisterRequest struct {
	ServerName        string
	Capabilities      []string
	RegistrationToken string
}

// RegisterResponse is Discovery's Register output.
type RegisterResponse struct {
	Success bool
	Message string
}

// LookupRequest is Discovery's Lookup input.
type LookupRequest struct {
	RequesterToken   string
	CapabilityFilter []string
}

// EndpointDescriptor describes one matching endpoint in a LookupResponse.
type EndpointDescriptor struct {
	ServerName   string
	GRPCURL      string
	Capabilities []string
}

// LookupResponse is Discovery's Lookup output.
type LookupResponse struct {
	Endpoints []EndpointDescriptor
}

// ContextRequest is ContextTool's RequestContext input.
type ContextRequest struct {
	ContextKey           string
	Parameters           map[string]string
	CapabilityToken      string
	AgentDelegationProof string
}

// ContextResponse is ContextTool's RequestContext output.
type ContextResponse struct {
	SerializedValue []byte
	Metadata        []string
}

// TelemetryRequest is ContextTool's SubscribeTelemetry input.
type TelemetryRequest struct {
	StreamID        string
	CapabilityToken string
}

// TelemetryFrame is one frame of a SubscribeTelemetry response stream.
type TelemetryFrame struct {
	TimestampMs int64
	Payload     []byte
}

// MultiModalFrame is a tagged union of the four multimodal frame variants.
// Kind selects which of the payload fields is meaningful; a frame kind the
// receiver does not recognize is preserved via Raw rather than dropped.
type MultiModalFrame struct {
	Kind string

	TextChunk  *TextChunk
	ImageFrame *ImageFrame
	AudioFrame *AudioFrame
	BinaryBlob *BinaryBlob

	Raw []byte
}

type TextChunk struct {
	Content  string
	Sequence int64
}

type ImageFrame struct {
	JPEGData []byte
	Width    int32
	Height   int32
	Sequence int64
}

type AudioFrame struct {
	PCMData     []byte
	TimestampMs int64
}

type BinaryBlob struct {
	Data     []byte
	MimeType string
	Sequence int64
}

// ToolRequest is ContextTool's InvokeTool input.
type ToolRequest struct {
	ToolName             string
	Arguments            map[string]string
	CapabilityToken      string
	AgentDelegationProof string
}

// ToolResponse is ContextTool's InvokeTool output.
type ToolResponse struct {
	Success  bool
	Outputs  map[string][]byte
	Warnings []string
}

// EventPublishRequest is EventBus's Publish input.
type EventPublishRequest struct {
	Topic          string
	Payload        []byte
	PublisherToken string
}

// EventPublishResponse is EventBus's Publish output.
type EventPublishResponse struct {
	Success bool
	Message string
}

// EventSubscribeRequest is EventBus's Subscribe input.
type EventSubscribeRequest struct {
	TopicFilter     string
	SubscriberToken string
}

// EventEnvelope is one frame of a Subscribe response stream.
type EventEnvelope struct {
	Topic      string
	Payload    []byte
	SequenceID uint64
}
