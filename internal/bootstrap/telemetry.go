// Package bootstrap holds the small amount of process-wiring shared by the
// fabric's three command binaries: telemetry construction, kept out of
// cmd/ so each main.go stays focused on its own
// transport wiring.
package bootstrap

import "goa.design/fabric/middleware"

// Telemetry returns the fabric's standard Telemetry bundle: a clue-backed
// Logger, an OpenTelemetry Metrics recorder, and an OpenTelemetry Tracer.
// All three read their exporters/processors from whatever global OTel SDK
// providers the process installed (or the no-op providers if it installed
// none), so cmd/*/main.go do not need their own OTel wiring to get useful
// output during local development.
func Telemetry() middleware.Telemetry {
	return middleware.Telemetry{
		Log:     middleware.NewClueLogger(),
		Metrics: middleware.NewOTelMetrics(nil),
		Tracer:  middleware.NewOTelTracer(nil),
	}
}
