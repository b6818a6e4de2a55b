package contexttool_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"goa.design/fabric/capability"
	"goa.design/fabric/contexttool"
	"goa.design/fabric/middleware"
)

func issueClaims(t *testing.T, signer *capability.Signer, caps ...string) *capability.Claims {
	t.Helper()
	raw, err := signer.Issue("caller-1", caps, []string{"ContextToolServer"}, time.Minute)
	require.NoError(t, err)
	claims, err := signer.Verify(raw)
	require.NoError(t, err)
	return claims
}

func TestRequestContextServesFromBackendThenCache(t *testing.T) {
	signer := capability.NewSigner([]byte("s"))
	claims := issueClaims(t, signer, "db:context:read")

	calls := 0
	backend := contexttool.BackendFunc(func(_ context.Context, key string, params map[string]string) ([]byte, []string, error) {
		calls++
		return []byte("42"), nil, nil
	})
	svc := contexttool.New(backend, contexttool.Config{}, middleware.Noop())

	got, err := svc.RequestContext(context.Background(), claims, "stock_count", map[string]string{"product_id": "prod_12345"})
	require.NoError(t, err)
	require.Equal(t, "42", string(got.SerializedValue))
	require.Equal(t, 1, calls)
	firstMeta := got.Metadata

	got, err = svc.RequestContext(context.Background(), claims, "stock_count", map[string]string{"product_id": "prod_12345"})
	require.NoError(t, err)
	require.Equal(t, "42", string(got.SerializedValue))
	require.Equal(t, firstMeta, got.Metadata, "cache hit should return the same stamped metadata")
	require.Equal(t, 1, calls, "second call should be served from cache")
}

func TestRequestContextRejectsMissingCapability(t *testing.T) {
	signer := capability.NewSigner([]byte("s"))
	claims := issueClaims(t, signer, "db:inventory:read")

	backend := contexttool.BackendFunc(func(context.Context, string, map[string]string) ([]byte, []string, error) {
		t.Fatal("backend should not be called")
		return nil, nil, nil
	})
	svc := contexttool.New(backend, contexttool.Config{}, middleware.Noop())

	_, err := svc.RequestContext(context.Background(), claims, "stock_count", nil)
	require.ErrorIs(t, err, contexttool.ErrUnauthorized)
}

func TestRequestContextOpensBreakerAfterRepeatedFailures(t *testing.T) {
	signer := capability.NewSigner([]byte("s"))
	claims := issueClaims(t, signer, "db:context:read")

	backendErr := errors.New("boom")
	backend := contexttool.BackendFunc(func(context.Context, string, map[string]string) ([]byte, []string, error) {
		return nil, nil, backendErr
	})
	svc := contexttool.New(backend, contexttool.Config{BreakerThreshold: 2, BreakerRecoverTime: time.Minute}, middleware.Noop())

	for i := 0; i < 2; i++ {
		_, err := svc.RequestContext(context.Background(), claims, "k", map[string]string{"p": "1"})
		require.Error(t, err)
	}

	_, err := svc.RequestContext(context.Background(), claims, "k", map[string]string{"p": "1"})
	require.ErrorIs(t, err, contexttool.ErrUnavailable)
}

func TestSubscribeAndPublishTelemetry(t *testing.T) {
	signer := capability.NewSigner([]byte("s"))
	claims := issueClaims(t, signer, "telemetry:read")

	backend := contexttool.BackendFunc(func(context.Context, string, map[string]string) ([]byte, []string, error) {
		return nil, nil, nil
	})
	svc := contexttool.New(backend, contexttool.Config{}, middleware.Noop())

	ch, cancel, err := svc.SubscribeTelemetry(context.Background(), claims, "stream-1")
	require.NoError(t, err)
	defer cancel()

	svc.PublishTelemetry(context.Background(), contexttool.TelemetryFrame{StreamID: "stream-1", Name: "latency_ms", Fields: map[string]any{"value": 12}})

	select {
	case frame := <-ch:
		require.Equal(t, "latency_ms", frame.Name)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for telemetry frame")
	}
}

func TestInvokeToolComputePricing(t *testing.T) {
	signer := capability.NewSigner([]byte("s"))
	claims := issueClaims(t, signer, "tool:compute_pricing")

	backend := contexttool.BackendFunc(func(context.Context, string, map[string]string) ([]byte, []string, error) { return nil, nil, nil })
	svc := contexttool.New(backend, contexttool.Config{}, middleware.Noop())

	result, err := svc.InvokeTool(context.Background(), claims, nil, "compute_pricing", map[string]any{"stock_count": "42"})
	require.NoError(t, err)
	require.Empty(t, result.Warning)
	require.InDelta(t, 95.8, result.Output["recommended_price"], 0.001)
}

func TestInvokeToolUnknownNameIsSoftWarning(t *testing.T) {
	signer := capability.NewSigner([]byte("s"))
	claims := issueClaims(t, signer, "tool:mystery")

	backend := contexttool.BackendFunc(func(context.Context, string, map[string]string) ([]byte, []string, error) { return nil, nil, nil })
	svc := contexttool.New(backend, contexttool.Config{}, middleware.Noop())

	result, err := svc.InvokeTool(context.Background(), claims, nil, "mystery", nil)
	require.NoError(t, err)
	require.Nil(t, result.Output)
	require.Contains(t, result.Warning, "mystery")
}

func TestInvokeToolAcceptsDelegationProof(t *testing.T) {
	signer := capability.NewSigner([]byte("s"))
	primaryRaw, err := signer.Issue("alice", []string{"tool:compute_pricing"}, []string{"ContextToolServer"}, time.Minute)
	require.NoError(t, err)
	primary, err := signer.Verify(primaryRaw)
	require.NoError(t, err)

	proofRaw, err := signer.IssueDelegation("alice", "bob-agent", []string{"tool:compute_pricing"}, time.Minute)
	require.NoError(t, err)
	proof, err := signer.VerifyProof(proofRaw, primary)
	require.NoError(t, err)

	callerRaw, err := signer.Issue("bob-agent", []string{"chat:basic"}, []string{"ContextToolServer"}, time.Minute)
	require.NoError(t, err)
	caller, err := signer.Verify(callerRaw)
	require.NoError(t, err)

	backend := contexttool.BackendFunc(func(context.Context, string, map[string]string) ([]byte, []string, error) { return nil, nil, nil })
	svc := contexttool.New(backend, contexttool.Config{}, middleware.Noop())

	result, err := svc.InvokeTool(context.Background(), caller, proof, "compute_pricing", map[string]any{"stock_count": "0"})
	require.NoError(t, err)
	require.InDelta(t, 100.0, result.Output["recommended_price"], 0.001)
}
