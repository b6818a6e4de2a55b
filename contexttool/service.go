// Package contexttool implements the ContextTool service: cached, breaker
// guarded context retrieval, telemetry stream fan-out, bidirectional
// multimodal exchange, and named tool invocation.
package contexttool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"goa.design/fabric/capability"
	"goa.design/fabric/middleware"
)

// ErrNotFound is returned when a Backend has no data for a context key.
var ErrNotFound = errors.New("contexttool: context not found")

// ErrUnauthorized is returned when the caller's claims do not grant the
// capability a given operation requires.
var ErrUnauthorized = errors.New("contexttool: unauthorized")

// ErrUnavailable is returned when the circuit breaker in front of the
// backend is open.
var ErrUnavailable = errors.New("contexttool: backend unavailable")

// Service is the ContextTool RPC handler set. One Service instance is
// shared across all connections; its cache and breaker are process-wide,
// matching the reference implementation's single shared SimpleCache and
// CircuitBreaker rather than one per caller.
type Service struct {
	backend        Backend
	cache          *middleware.TTLCache
	breaker        *middleware.CircuitBreaker
	tel            middleware.Telemetry
	readCapability string

	streams    *streamRegistry
	multimodal *multimodalRegistry
}

// Config controls the cache TTL, breaker parameters, and the capability
// scope RequestContext requires. Zero values fall back to the reference
// implementation's defaults: a 30 second cache TTL, tripping after 3
// consecutive failures, recovering after 30 seconds, and a required read
// scope of "db:context:read" — deployments serving a specific domain
// (inventory, pricing, ...) should set ReadCapability to that domain's own
// scope string (e.g. "db:inventory:read").
type Config struct {
	CacheTTL           time.Duration
	BreakerThreshold   int
	BreakerRecoverTime time.Duration
	ReadCapability     string
}

func (c Config) withDefaults() Config {
	if c.CacheTTL <= 0 {
		c.CacheTTL = 30 * time.Second
	}
	if c.BreakerThreshold <= 0 {
		c.BreakerThreshold = 3
	}
	if c.BreakerRecoverTime <= 0 {
		c.BreakerRecoverTime = 30 * time.Second
	}
	if c.ReadCapability == "" {
		c.ReadCapability = "db:context:read"
	}
	return c
}

// New returns a Service backed by backend. If tel is the zero value,
// telemetry is a no-op.
func New(backend Backend, cfg Config, tel middleware.Telemetry) *Service {
	cfg = cfg.withDefaults()
	if tel.Log == nil {
		tel = middleware.Noop()
	}
	return &Service{
		backend:        backend,
		cache:          middleware.NewTTLCache(cfg.CacheTTL),
		breaker:        middleware.NewCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerRecoverTime),
		tel:            tel,
		readCapability: cfg.ReadCapability,
		streams:        newStreamRegistry(),
		multimodal:     newMultimodalRegistry(),
	}
}

// ContextValue is what RequestContext returns: an opaque serialized value
// plus metadata entries, one of which is always the service's own
// "timestamp:<unix_ms>" stamp recording when the value was fetched from the
// backend; a value served from cache carries the stamp of that fetch.
type ContextValue struct {
	SerializedValue []byte
	Metadata        []string
}

// RequestContext returns the data backend has for (contextKey, params),
// serving from cache when available. caller must hold the service's
// configured ReadCapability; wildcard capabilities (e.g. "db:*") are
// honored via capability's standard matching rule. The cached entry is the
// full ContextValue including its timestamp, so a cache hit returns the
// same timestamp as the fetch that populated it, not the time of the hit.
func (s *Service) RequestContext(ctx context.Context, caller *capability.Claims, contextKey string, params map[string]string) (ContextValue, error) {
	if !capability.HasCapability(caller, s.readCapability) {
		return ContextValue{}, ErrUnauthorized
	}

	ctx, span := s.tel.Tracer.Start(ctx, "contexttool.RequestContext")
	defer span.End()

	key := middleware.CacheKey(contextKey, params)
	if v, ok := s.cache.Get(key); ok {
		s.tel.Metrics.IncCounter(ctx, "contexttool.cache_hit", attribute.String("context_key", contextKey))
		return v.(ContextValue), nil
	}

	if err := s.breaker.Allow(); err != nil {
		s.tel.Log.Warn(ctx, "context backend breaker open", "context_key", contextKey)
		return ContextValue{}, ErrUnavailable
	}

	value, meta, err := s.backend.Fetch(ctx, contextKey, params)
	if errors.Is(err, ErrNotFound) {
		// A miss is a property of the data, not the backend's health: it
		// must not count against the breaker the way a transient backend
		// failure does.
		s.breaker.Report(true)
		s.tel.Metrics.IncCounter(ctx, "contexttool.cache_miss", attribute.String("context_key", contextKey))
		return ContextValue{}, ErrNotFound
	}
	s.breaker.Report(err == nil)
	if err != nil {
		span.RecordError(err)
		s.tel.Metrics.IncCounter(ctx, "contexttool.fetch_error", attribute.String("context_key", contextKey))
		return ContextValue{}, fmt.Errorf("contexttool: fetch %s: %w", contextKey, err)
	}

	cv := ContextValue{
		SerializedValue: value,
		Metadata:        append(append([]string(nil), meta...), fmt.Sprintf("timestamp:%d", time.Now().UTC().UnixMilli())),
	}
	s.cache.Set(key, cv)
	s.tel.Metrics.IncCounter(ctx, "contexttool.cache_miss", attribute.String("context_key", contextKey))
	return cv, nil
}
