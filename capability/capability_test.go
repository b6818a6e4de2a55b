package capability_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"goa.design/fabric/capability"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	signer := capability.NewSigner([]byte("test-secret"))
	raw, err := signer.Issue("agent-1", []string{"db:inventory:read"}, []string{"InventoryDB_Primary"}, time.Minute)
	require.NoError(t, err)

	claims, err := signer.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "agent-1", claims.Subject())
	require.True(t, capability.HasCapability(claims, "db:inventory:read"))
	require.True(t, capability.HasAudience(claims, "InventoryDB_Primary"))
}

func TestVerifyExpired(t *testing.T) {
	signer := capability.NewSigner([]byte("test-secret"))
	raw, err := signer.Issue("agent-1", []string{"db:inventory:read"}, []string{"X"}, -time.Second)
	require.NoError(t, err)

	_, err = signer.Verify(raw)
	require.ErrorIs(t, err, capability.ErrExpired)
}

func TestVerifyBadSignature(t *testing.T) {
	signer := capability.NewSigner([]byte("test-secret"))
	other := capability.NewSigner([]byte("other-secret"))
	raw, err := other.Issue("agent-1", []string{"db:inventory:read"}, []string{"X"}, time.Minute)
	require.NoError(t, err)

	_, err = signer.Verify(raw)
	require.ErrorIs(t, err, capability.ErrInvalidSignature)
}

func TestHasCapabilityWildcard(t *testing.T) {
	signer := capability.NewSigner([]byte("s"))
	raw, err := signer.Issue("agent-1", []string{"event:publish:inventory:*"}, []string{"EventBusServer"}, time.Minute)
	require.NoError(t, err)
	claims, err := signer.Verify(raw)
	require.NoError(t, err)

	require.True(t, capability.HasCapability(claims, "event:publish:inventory:prod_12345:low_stock"))
	require.True(t, capability.HasCapability(claims, "event:publish:inventory:"))
	require.False(t, capability.HasCapability(claims, "event:publish:widgets:low_stock"))
}

func TestHasCapabilityWildcardIsBarePrefixNotSegmented(t *testing.T) {
	// A subscribe filter "inventory:*:low_stock" is NOT a per-segment glob:
	// it behaves as the bare prefix "inventory:".
	signer := capability.NewSigner([]byte("s"))
	raw, err := signer.Issue("agent-1", []string{"inventory:*:low_stock"}, []string{"X"}, time.Minute)
	require.NoError(t, err)
	claims, err := signer.Verify(raw)
	require.NoError(t, err)

	require.True(t, capability.HasCapability(claims, "inventory:prod:low_stock"))
	require.True(t, capability.HasCapability(claims, "inventory:foo:other"))
}

func TestHasAudienceWildcard(t *testing.T) {
	signer := capability.NewSigner([]byte("s"))
	raw, err := signer.Issue("agent-1", []string{"registry:lookup"}, []string{"InventoryDB_*"}, time.Minute)
	require.NoError(t, err)
	claims, err := signer.Verify(raw)
	require.NoError(t, err)

	require.True(t, capability.HasAudience(claims, "InventoryDB_Primary"))
	require.False(t, capability.HasAudience(claims, "OtherServer"))
}

func TestVerifyProofSubset(t *testing.T) {
	signer := capability.NewSigner([]byte("s"))
	primaryRaw, err := signer.Issue("alice", []string{"tool:enhance_image", "tool:compute_pricing"}, []string{"ContextToolServer"}, time.Minute)
	require.NoError(t, err)
	primary, err := signer.Verify(primaryRaw)
	require.NoError(t, err)

	proofRaw, err := signer.IssueDelegation("alice", "bob-agent", []string{"tool:compute_pricing"}, time.Minute)
	require.NoError(t, err)

	proof, err := signer.VerifyProof(proofRaw, primary)
	require.NoError(t, err)
	require.True(t, proof.GrantsCapability("tool:compute_pricing"))
}

func TestVerifyProofRejectsExcessScope(t *testing.T) {
	signer := capability.NewSigner([]byte("s"))
	primaryRaw, err := signer.Issue("alice", []string{"tool:compute_pricing"}, []string{"ContextToolServer"}, time.Minute)
	require.NoError(t, err)
	primary, err := signer.Verify(primaryRaw)
	require.NoError(t, err)

	proofRaw, err := signer.IssueDelegation("alice", "bob-agent", []string{"tool:sql_query"}, time.Minute)
	require.NoError(t, err)

	_, err = signer.VerifyProof(proofRaw, primary)
	require.ErrorIs(t, err, capability.ErrDelegationScope)
}

func TestVerifyProofRejectsWrongDelegator(t *testing.T) {
	signer := capability.NewSigner([]byte("s"))
	primaryRaw, err := signer.Issue("alice", []string{"tool:compute_pricing"}, []string{"ContextToolServer"}, time.Minute)
	require.NoError(t, err)
	primary, err := signer.Verify(primaryRaw)
	require.NoError(t, err)

	proofRaw, err := signer.IssueDelegation("mallory", "bob-agent", []string{"tool:compute_pricing"}, time.Minute)
	require.NoError(t, err)

	_, err = signer.VerifyProof(proofRaw, primary)
	require.ErrorIs(t, err, capability.ErrDelegationSubject)
}
