// Package registry implements the discovery registry: a capability-filtered
// directory of server_name -> transport endpoint, gated so a caller only
// ever sees endpoints its token is audienced for.
package registry

import (
	"context"
	"time"

	"goa.design/fabric/capability"
	"goa.design/fabric/middleware"
	"goa.design/fabric/registry/store"
)

// EndpointDescriptor is what Lookup returns to a caller: everything about a
// registered endpoint except its internal bookkeeping.
type EndpointDescriptor struct {
	ServerName       string
	TransportAddress string
	Capabilities     []string
}

// Registry serves Register and Lookup against a backing store.Store,
// wrapped in the fabric's standard telemetry.
type Registry struct {
	store store.Store
	tel   middleware.Telemetry
}

// New returns a Registry backed by st. If tel is the zero value, telemetry
// is a no-op.
func New(st store.Store, tel middleware.Telemetry) *Registry {
	if tel.Log == nil {
		tel = middleware.Noop()
	}
	return &Registry{store: st, tel: tel}
}

// Register upserts an endpoint record. It is idempotent: registering the
// same server_name again replaces the prior record in full, including its
// capability list and address — there is no merge semantics.
func (r *Registry) Register(ctx context.Context, serverName, transportAddress string, capabilities []string) error {
	ctx, span := r.tel.Tracer.Start(ctx, "registry.Register")
	defer span.End()

	rec := store.EndpointRecord{
		ServerName:       serverName,
		TransportAddress: transportAddress,
		Capabilities:     append([]string(nil), capabilities...),
		RegisteredAt:     time.Now().UTC(),
	}
	if err := r.store.Register(ctx, rec); err != nil {
		span.RecordError(err)
		return err
	}
	r.tel.Log.Info(ctx, "endpoint registered", "server_name", serverName, "address", transportAddress)
	r.tel.Metrics.IncCounter(ctx, "registry.register")
	return nil
}

// Lookup returns every registered endpoint whose capability list contains
// at least one entry matching capabilityFilter (wildcard-aware), among the
// endpoints the caller's token is audienced for. callerAudiences is the
// caller's token audience list, checked with capability.MatchesFilter
// against each candidate endpoint's server_name: an endpoint that fails the
// audience check is excluded from the result entirely, not merely masked,
// so unauthorized callers cannot learn of its existence via Lookup.
func (r *Registry) Lookup(ctx context.Context, capabilityFilter string, callerAudiences []string) ([]EndpointDescriptor, error) {
	ctx, span := r.tel.Tracer.Start(ctx, "registry.Lookup")
	defer span.End()

	all, err := r.store.List(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var out []EndpointDescriptor
	for _, rec := range all {
		if !audienceAllows(callerAudiences, rec.ServerName) {
			continue
		}
		if !hasMatchingCapability(rec.Capabilities, capabilityFilter) {
			continue
		}
		out = append(out, EndpointDescriptor{
			ServerName:       rec.ServerName,
			TransportAddress: rec.TransportAddress,
			Capabilities:     rec.Capabilities,
		})
	}
	r.tel.Metrics.IncCounter(ctx, "registry.lookup")
	return out, nil
}

func audienceAllows(callerAudiences []string, serverName string) bool {
	for _, aud := range callerAudiences {
		if capability.MatchesFilter(aud, serverName) {
			return true
		}
	}
	return false
}

// hasMatchingCapability matches wildcards on the registered endpoint's
// capability, not on the caller's filter: an endpoint declaring
// "db:inventory:*" matches a lookup filter of "db:inventory:read", but a
// caller cannot pass a wildcard filter to sweep up unrelated exact
// capabilities.
func hasMatchingCapability(capabilities []string, filter string) bool {
	for _, c := range capabilities {
		if capability.MatchesFilter(c, filter) {
			return true
		}
	}
	return false
}
