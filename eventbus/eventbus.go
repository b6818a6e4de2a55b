// Package eventbus implements the fabric's topic-pattern publish/subscribe
// bus: per-topic monotonic sequencing, wildcard topic filters, and
// capability-gated publish/subscribe.
package eventbus

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"goa.design/fabric/capability"
	"goa.design/fabric/middleware"
)

// ErrUnauthorized is returned when the caller's token does not grant the
// publish or subscribe capability a call requires.
var ErrUnauthorized = errors.New("eventbus: unauthorized")

// ErrRateLimited is returned when a publisher exceeds its configured
// per-subject publish rate.
var ErrRateLimited = errors.New("eventbus: rate limited")

// Envelope is one published event as delivered to a subscriber: the topic
// it was published on, its per-topic sequence number, and its payload.
type Envelope struct {
	Topic    string
	Sequence uint64
	Payload  map[string]any
}

type subscription struct {
	id     string
	filter string
	sink   chan Envelope
}

// Bus is the EventBus RPC handler set: one shared instance per deployment,
// holding all topic sequence counters and all live subscriptions.
type Bus struct {
	mu   sync.Mutex
	seq  map[string]uint64
	subs []subscription

	tel     middleware.Telemetry
	limiter *middleware.PerCallerLimiter
}

// Option configures optional Bus behavior.
type Option func(*Bus)

// WithPublishLimiter caps how often a single token subject may successfully
// call Publish. Callers that exceed it receive ErrRateLimited instead of
// having their event delivered. Unset, Publish is unlimited.
func WithPublishLimiter(l *middleware.PerCallerLimiter) Option {
	return func(b *Bus) { b.limiter = l }
}

// New returns an empty Bus. If tel is the zero value, telemetry is a no-op.
func New(tel middleware.Telemetry, opts ...Option) *Bus {
	if tel.Log == nil {
		tel = middleware.Noop()
	}
	b := &Bus{seq: make(map[string]uint64), tel: tel}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish authorizes and delivers an event on topic. The caller must hold a
// capability matching "event:publish:<topic>" under the wildcard rule (a
// literal capability of exactly that string, or a capability containing
// "*" whose text up to the "*" is a prefix of "event:publish:<topic>");
// there is no separate topic-segment-aware fallback — a single wildcard
// match rule applies uniformly, the same one capability and audience
// checks use.
// Publish assigns the event the next sequence number for topic, creating
// the counter at 1 the first time the topic is published to, then fans the
// envelope out to every current subscriber whose filter matches topic.
func (b *Bus) Publish(ctx context.Context, caller *capability.Claims, topic string, payload map[string]any) (Envelope, error) {
	required := "event:publish:" + topic
	if !capability.HasCapability(caller, required) {
		return Envelope{}, ErrUnauthorized
	}
	if b.limiter != nil && !b.limiter.Allow(caller.Subject()) {
		return Envelope{}, ErrRateLimited
	}

	b.mu.Lock()
	b.seq[topic]++
	seq := b.seq[topic]
	matched := make([]chan Envelope, 0, len(b.subs))
	for _, s := range b.subs {
		if capability.MatchesFilter(s.filter, topic) {
			matched = append(matched, s.sink)
		}
	}
	b.mu.Unlock()

	env := Envelope{Topic: topic, Sequence: seq, Payload: payload}
	for _, sink := range matched {
		select {
		case sink <- env:
		default:
			b.tel.Log.Warn(ctx, "event subscriber slow, dropping envelope", "topic", topic)
		}
	}
	b.tel.Metrics.IncCounter(ctx, "eventbus.publish")
	return env, nil
}

// Subscribe authorizes and registers a subscription for topicFilter. The
// caller must hold a capability matching "event:subscribe:<topicFilter>"
// under the wildcard rule. It returns a channel of envelopes for every
// future Publish whose topic matches topicFilter, and an unsubscribe
// function the caller must run when done so the bus does not accumulate
// dead subscriptions.
func (b *Bus) Subscribe(ctx context.Context, caller *capability.Claims, topicFilter string) (<-chan Envelope, func(), error) {
	required := "event:subscribe:" + topicFilter
	if !capability.HasCapability(caller, required) {
		return nil, nil, ErrUnauthorized
	}

	sub := subscription{id: uuid.NewString(), filter: topicFilter, sink: make(chan Envelope, 32)}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	// cancel removes the subscription without closing its sink: Publish may
	// already have snapshotted this sink under the lock and be about to send
	// on it outside the lock, and a send on a closed channel panics. The
	// subscriber's reader exits on its own request context instead of on
	// channel closure.
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == sub.id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
	b.tel.Metrics.IncCounter(ctx, "eventbus.subscribe")
	return sub.sink, cancel, nil
}
