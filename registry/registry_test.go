package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/fabric/middleware"
	"goa.design/fabric/registry"
	"goa.design/fabric/registry/store/memory"
)

func newRegistry() *registry.Registry {
	return registry.New(memory.New(), middleware.Noop())
}

func TestRegisterAndLookupExactCapability(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, "InventoryDB_Primary", "grpc://10.0.0.5:50051", []string{"db:inventory:read"}))

	got, err := r.Lookup(ctx, "db:inventory:read", []string{"InventoryDB_Primary"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "InventoryDB_Primary", got[0].ServerName)
}

func TestLookupMatchesWildcardCapability(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()
	require.NoError(t, r.Register(ctx, "InventoryDB_Primary", "grpc://10.0.0.5:50051", []string{"db:inventory:*"}))

	got, err := r.Lookup(ctx, "db:inventory:read", []string{"InventoryDB_Primary"})
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestLookupExcludesEndpointOutsideAudience(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()
	require.NoError(t, r.Register(ctx, "InventoryDB_Primary", "grpc://10.0.0.5:50051", []string{"db:inventory:read"}))

	got, err := r.Lookup(ctx, "db:inventory:read", []string{"OtherServer"})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestLookupAudienceWildcard(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()
	require.NoError(t, r.Register(ctx, "InventoryDB_Primary", "grpc://10.0.0.5:50051", []string{"db:inventory:read"}))

	got, err := r.Lookup(ctx, "db:inventory:read", []string{"InventoryDB_*"})
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestRegisterIsIdempotentByServerName(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()
	require.NoError(t, r.Register(ctx, "Svc", "grpc://a:1", []string{"cap:a"}))
	require.NoError(t, r.Register(ctx, "Svc", "grpc://b:2", []string{"cap:b"}))

	got, err := r.Lookup(ctx, "cap:b", []string{"Svc"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "grpc://b:2", got[0].TransportAddress)

	got, err = r.Lookup(ctx, "cap:a", []string{"Svc"})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestLookupFilterDoesNotMatchUnrelatedCapability(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()
	require.NoError(t, r.Register(ctx, "Svc", "grpc://a:1", []string{"db:inventory:read"}))

	got, err := r.Lookup(ctx, "db:pricing:read", []string{"Svc"})
	require.NoError(t, err)
	require.Empty(t, got)
}
