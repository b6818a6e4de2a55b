package contexttool

import (
	"context"
	"fmt"
	"strconv"

	"goa.design/fabric/capability"
)

// ToolResult is what InvokeTool returns: either Output on success, or
// Warning set (with Output left nil) for the soft-failure case of an
// unrecognized tool name, which the reference implementation treats as a
// no-op rather than an error so a caller probing for tool availability
// does not need special-case error handling.
type ToolResult struct {
	Output  map[string]any
	Warning string
}

type toolFunc func(ctx context.Context, params map[string]any) (map[string]any, error)

var tools = map[string]toolFunc{
	"compute_pricing": computePricing,
}

// computePricing is the fabric's one built-in tool: a deliberately trivial
// pricing heuristic used to exercise the InvokeTool path end to end.
// recommended_price = max(0, 100 - 0.1*stock_count). Wire arguments arrive
// as strings (transport.ToolRequest.Arguments is map[string]string), so
// stock_count is accepted either as a numeric string or, for callers of the
// domain API directly, as a float64.
func computePricing(_ context.Context, params map[string]any) (map[string]any, error) {
	stock, err := stockCount(params["stock_count"])
	if err != nil {
		return nil, err
	}
	price := 100.0 - 0.1*stock
	if price < 0 {
		price = 0
	}
	return map[string]any{"recommended_price": price}, nil
}

func stockCount(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("compute_pricing: invalid stock_count %q: %w", n, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("compute_pricing: missing stock_count argument")
	}
}

// InvokeTool dispatches to a named tool. Authorization is capability-first:
// the caller must hold "tool:<name>" directly, or present a delegation
// proof whose GrantsCapability("tool:<name>") holds once VerifyProof has
// confirmed the proof was issued by the caller's own token subject. An
// unrecognized tool name is not an error: InvokeTool returns a ToolResult
// with Warning set so callers can treat tool discovery failures softly.
func (s *Service) InvokeTool(ctx context.Context, caller *capability.Claims, proof *capability.DelegationClaims, name string, params map[string]any) (ToolResult, error) {
	required := "tool:" + name

	authorized := capability.HasCapability(caller, required)
	if !authorized && proof != nil {
		authorized = proof.GrantsCapability(required)
	}
	if !authorized {
		return ToolResult{}, ErrUnauthorized
	}

	if err := s.breaker.Allow(); err != nil {
		return ToolResult{}, ErrUnavailable
	}

	fn, ok := tools[name]
	if !ok {
		s.breaker.Report(true)
		s.tel.Log.Info(ctx, "invoke unknown tool", "tool", name)
		return ToolResult{Warning: "unknown tool: " + name}, nil
	}

	out, err := fn(ctx, params)
	s.breaker.Report(err == nil)
	if err != nil {
		return ToolResult{}, err
	}
	return ToolResult{Output: out}, nil
}
