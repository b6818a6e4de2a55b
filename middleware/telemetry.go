// Package middleware provides the cross-cutting primitives every fabric
// service wraps its handlers in: telemetry emission, TTL response caching,
// and circuit breaking. None of the three depend on any particular RPC
// service; each is a small, independently testable piece of shared state.
package middleware

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"goa.design/clue/log"
)

// Logger is the fabric's structured logging surface. It intentionally
// mirrors clue's own key-value logging so that a Logger can be backed
// directly by a clue log.Context.
type Logger interface {
	Debug(ctx context.Context, msg string, keyvals ...any)
	Info(ctx context.Context, msg string, keyvals ...any)
	Warn(ctx context.Context, msg string, keyvals ...any)
	Error(ctx context.Context, msg string, err error, keyvals ...any)
}

// Metrics records counters and timers for RPC handlers. Implementations are
// expected to be safe for concurrent use.
type Metrics interface {
	IncCounter(ctx context.Context, name string, attrs ...attribute.KeyValue)
	RecordDuration(ctx context.Context, name string, d time.Duration, attrs ...attribute.KeyValue)
}

// Span is the fabric's minimal tracing span, wide enough to cover both
// request/response RPCs and long-lived streams.
type Span interface {
	AddEvent(name string, attrs ...attribute.KeyValue)
	RecordError(err error)
	End()
}

// Tracer starts spans. Handlers call Start once on entry and defer span.End.
type Tracer interface {
	Start(ctx context.Context, name string) (context.Context, Span)
}

// Telemetry bundles a Logger, Metrics, and Tracer behind the single value
// each service constructor takes, mirroring how the fabric's services wrap
// every RPC with the same three concerns regardless of transport.
type Telemetry struct {
	Log     Logger
	Metrics Metrics
	Tracer  Tracer
}

// ClueLogger adapts goa.design/clue/log's package-level functions, which key
// off the log.Context stored on ctx, to the Logger interface.
type ClueLogger struct{}

// NewClueLogger returns a Logger backed by clue. Callers must have already
// installed a log.Context on ctx (via log.Context at process start) for
// output to appear; ClueLogger performs no installation of its own.
func NewClueLogger() ClueLogger { return ClueLogger{} }

func (ClueLogger) Debug(ctx context.Context, msg string, keyvals ...any) {
	log.Debug(ctx, fielders(msg, keyvals)...)
}

func (ClueLogger) Info(ctx context.Context, msg string, keyvals ...any) {
	log.Info(ctx, fielders(msg, keyvals)...)
}

func (ClueLogger) Warn(ctx context.Context, msg string, keyvals ...any) {
	fields := append(fielders(msg, keyvals), log.KV{K: "severity", V: "warning"})
	log.Warn(ctx, fields...)
}

func (ClueLogger) Error(ctx context.Context, msg string, err error, keyvals ...any) {
	log.Error(ctx, err, fielders(msg, keyvals)...)
}

// fielders converts a message plus (key, value, key, value, ...) pairs into
// clue's log.Fielder slice.
func fielders(msg string, keyvals []any) []log.Fielder {
	out := []log.Fielder{log.KV{K: "msg", V: msg}}
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		out = append(out, log.KV{K: key, V: keyvals[i+1]})
	}
	return out
}

// NoopLogger discards everything. Useful for tests and for the fabric's
// libraries when embedded into a host process that supplies its own logging.
type NoopLogger struct{}

func (NoopLogger) Debug(context.Context, string, ...any)        {}
func (NoopLogger) Info(context.Context, string, ...any)         {}
func (NoopLogger) Warn(context.Context, string, ...any)         {}
func (NoopLogger) Error(context.Context, string, error, ...any) {}

// OTelMetrics implements Metrics against an OpenTelemetry meter. Counters
// and histograms are created lazily and cached by name since a meter's
// instrument constructors are not meant to be called on every request.
type OTelMetrics struct {
	meter metric.Meter

	mu         sync.Mutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
}

// NewOTelMetrics returns Metrics backed by the given meter, or the global
// meter for instrumentation name "goa.design/fabric" if meter is nil.
func NewOTelMetrics(meter metric.Meter) *OTelMetrics {
	if meter == nil {
		meter = otel.Meter("goa.design/fabric")
	}
	return &OTelMetrics{
		meter:      meter,
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

// IncCounter and RecordDuration are called from every concurrently running
// RPC handler sharing this instance, so the lazy instrument cache needs its
// own lock independent of the meter itself.
func (m *OTelMetrics) IncCounter(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	m.mu.Lock()
	c, ok := m.counters[name]
	if !ok {
		var err error
		c, err = m.meter.Int64Counter(name)
		if err != nil {
			m.mu.Unlock()
			return
		}
		m.counters[name] = c
	}
	m.mu.Unlock()
	c.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *OTelMetrics) RecordDuration(ctx context.Context, name string, d time.Duration, attrs ...attribute.KeyValue) {
	m.mu.Lock()
	h, ok := m.histograms[name]
	if !ok {
		var err error
		h, err = m.meter.Float64Histogram(name, metric.WithUnit("ms"))
		if err != nil {
			m.mu.Unlock()
			return
		}
		m.histograms[name] = h
	}
	m.mu.Unlock()
	h.Record(ctx, float64(d.Milliseconds()), metric.WithAttributes(attrs...))
}

// OTelTracer implements Tracer against an OpenTelemetry tracer.
type OTelTracer struct {
	tracer trace.Tracer
}

// NewOTelTracer returns a Tracer backed by the given tracer, or the global
// tracer for instrumentation name "goa.design/fabric" if tracer is nil.
func NewOTelTracer(tracer trace.Tracer) OTelTracer {
	if tracer == nil {
		tracer = otel.Tracer("goa.design/fabric")
	}
	return OTelTracer{tracer: tracer}
}

func (t OTelTracer) Start(ctx context.Context, name string) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, otelSpan{span}
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) AddEvent(name string, attrs ...attribute.KeyValue) {
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

func (s otelSpan) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func (s otelSpan) End() { s.span.End() }

// Noop is a Telemetry that discards logs, drops metrics, and starts no-op
// spans. Tests and standalone package use construct services with this
// rather than threading nils through every constructor.
func Noop() Telemetry {
	return Telemetry{Log: NoopLogger{}, Metrics: noopMetrics{}, Tracer: noopTracer{}}
}

type noopMetrics struct{}

func (noopMetrics) IncCounter(context.Context, string, ...attribute.KeyValue)               {}
func (noopMetrics) RecordDuration(context.Context, string, time.Duration, ...attribute.KeyValue) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, Span) { return ctx, noopSpan{} }

type noopSpan struct{}

func (noopSpan) AddEvent(string, ...attribute.KeyValue) {}
func (noopSpan) RecordError(error)                      {}
func (noopSpan) End()                                   {}
