package contexttool

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"goa.design/fabric/capability"
)

const capMultiModalExchange = "tool:multimodal_exchange"

// MultiModalFrame is a tagged union of the four frame kinds the exchange
// carries, mirroring the wire schema's TextChunk/ImageFrame/AudioFrame/
// BinaryBlob variants field-for-field. Exactly one of Text, Image, Audio,
// or Blob is set per frame; Kind names which one. A Kind this service does
// not recognize carries its payload in Raw instead, so a forward-compatible
// client/server pair does not need to agree on every frame type ahead of
// time — EchoFrame passes an unrecognized variant through unexamined.
type MultiModalFrame struct {
	Kind string

	Text  *TextChunk
	Image *ImageFrame
	Audio *AudioFrame
	Blob  *BinaryBlob

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

const (
	FrameText  = "text"
	FrameImage = "image"
	FrameAudio = "audio"
	FrameBlob  = "blob"
)

type multimodalRegistry struct {
	mu       sync.Mutex
	sessions map[string]struct{}
}

func newMultimodalRegistry() *multimodalRegistry {
	return &multimodalRegistry{sessions: make(map[string]struct{})}
}

// Exchange represents one open bidirectional multimodal session. The first
// frame sent by the client must arrive on an already-authorized stream;
// EchoFrame is the reference server's behavior — it echoes each inbound
// frame back verbatim, which is enough to validate wire framing and
// interleaving of frame kinds without dictating any actual model inference
// path here.
type Exchange struct {
	id string
}

// OpenExchange authorizes and starts a new multimodal session. The
// capability check happens once, at open, not per frame: once a session is
// open every frame within it is trusted to belong to the same caller.
func (s *Service) OpenExchange(ctx context.Context, caller *capability.Claims) (*Exchange, error) {
	if !capability.HasCapability(caller, capMultiModalExchange) {
		return nil, ErrUnauthorized
	}
	id := uuid.NewString()
	s.multimodal.mu.Lock()
	s.multimodal.sessions[id] = struct{}{}
	s.multimodal.mu.Unlock()
	return &Exchange{id: id}, nil
}

// Close ends the session, freeing its bookkeeping entry.
func (e *Exchange) Close(s *Service) {
	s.multimodal.mu.Lock()
	delete(s.multimodal.sessions, e.id)
	s.multimodal.mu.Unlock()
}

// EchoFrame returns the frame the server sends in response to an inbound
// frame. It is the identity function on the frame's content; kept as a
// method rather than inlined at the transport layer so a future revision
// can replace echo with real dispatch without touching the transport code.
func (e *Exchange) EchoFrame(in MultiModalFrame) MultiModalFrame {
	return in
}
