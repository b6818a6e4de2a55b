package contexttool

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"goa.design/fabric/capability"
)

const capTelemetryRead = "telemetry:read"

// TelemetryFrame is one emitted telemetry record, fanned out to every
// subscriber of its stream_id.
type TelemetryFrame struct {
	StreamID  string
	Name      string
	Fields    map[string]any
}

type sink chan TelemetryFrame

type streamRegistry struct {
	mu   sync.Mutex
	subs map[string]map[string]sink // stream_id -> subscriber_id -> sink
}

func newStreamRegistry() *streamRegistry {
	return &streamRegistry{subs: make(map[string]map[string]sink)}
}

func (r *streamRegistry) subscribe(streamID string) (string, sink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	s := make(sink, 16)
	if r.subs[streamID] == nil {
		r.subs[streamID] = make(map[string]sink)
	}
	r.subs[streamID][id] = s
	return id, s
}

// unsubscribe removes subscriberID's sink from streamID. It does not close
// the channel: a concurrent PublishTelemetry may already have snapshotted
// this sink and be about to send on it, and a send on a closed channel
// panics. The reader side exits on its own request context instead of on
// channel closure.
func (r *streamRegistry) unsubscribe(streamID, subscriberID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sinks := r.subs[streamID]
	if sinks == nil {
		return
	}
	delete(sinks, subscriberID)
	if len(sinks) == 0 {
		delete(r.subs, streamID)
	}
}

// snapshot returns the current sinks for streamID without holding the lock
// during delivery, so a slow or blocked subscriber cannot stall Publish or
// a concurrent Subscribe/Unsubscribe.
func (r *streamRegistry) snapshot(streamID string) []sink {
	r.mu.Lock()
	defer r.mu.Unlock()
	sinks := r.subs[streamID]
	out := make([]sink, 0, len(sinks))
	for _, s := range sinks {
		out = append(out, s)
	}
	return out
}

// PublishTelemetry emits frame to every current subscriber of its
// stream_id. Delivery is best-effort: a subscriber whose channel is full is
// skipped rather than blocking the emitter, matching the fan-out semantics
// used across the fabric's other broadcast paths.
func (s *Service) PublishTelemetry(ctx context.Context, frame TelemetryFrame) {
	for _, sink := range s.streams.snapshot(frame.StreamID) {
		select {
		case sink <- frame:
		default:
			s.tel.Log.Warn(ctx, "telemetry subscriber slow, dropping frame", "stream_id", frame.StreamID)
		}
	}
}

// SubscribeTelemetry registers a new subscriber for streamID and returns a
// channel of frames along with an unsubscribe function the caller must run
// when the RPC stream ends (client cancellation or server shutdown), so the
// registry does not accumulate sinks for dead subscribers.
func (s *Service) SubscribeTelemetry(ctx context.Context, caller *capability.Claims, streamID string) (<-chan TelemetryFrame, func(), error) {
	if !capability.HasCapability(caller, capTelemetryRead) {
		return nil, nil, ErrUnauthorized
	}
	id, ch := s.streams.subscribe(streamID)
	cancel := func() { s.streams.unsubscribe(streamID, id) }
	return ch, cancel, nil
}
