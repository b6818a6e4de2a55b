package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"goa.design/fabric/capability"
	"goa.design/fabric/eventbus"
	"goa.design/fabric/middleware"
)

func claimsWith(t *testing.T, caps ...string) *capability.Claims {
	t.Helper()
	signer := capability.NewSigner([]byte("s"))
	raw, err := signer.Issue("agent-1", caps, []string{"EventBusServer"}, time.Minute)
	require.NoError(t, err)
	claims, err := signer.Verify(raw)
	require.NoError(t, err)
	return claims
}

func TestPublishSubscribeExactTopic(t *testing.T) {
	bus := eventbus.New(middleware.Noop())
	subscriber := claimsWith(t, "event:subscribe:inventory:low_stock")
	publisher := claimsWith(t, "event:publish:inventory:low_stock")

	ch, cancel, err := bus.Subscribe(context.Background(), subscriber, "inventory:low_stock")
	require.NoError(t, err)
	defer cancel()

	_, err = bus.Publish(context.Background(), publisher, "inventory:low_stock", map[string]any{"product_id": "prod_12345"})
	require.NoError(t, err)

	select {
	case env := <-ch:
		require.Equal(t, "inventory:low_stock", env.Topic)
		require.Equal(t, uint64(1), env.Sequence)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for envelope")
	}
}

func TestPublishSequenceIsPerTopicAndMonotonic(t *testing.T) {
	bus := eventbus.New(middleware.Noop())
	publisher := claimsWith(t, "event:publish:*")

	env1, err := bus.Publish(context.Background(), publisher, "a", nil)
	require.NoError(t, err)
	env2, err := bus.Publish(context.Background(), publisher, "a", nil)
	require.NoError(t, err)
	env3, err := bus.Publish(context.Background(), publisher, "b", nil)
	require.NoError(t, err)

	require.Equal(t, uint64(1), env1.Sequence)
	require.Equal(t, uint64(2), env2.Sequence)
	require.Equal(t, uint64(1), env3.Sequence)
}

func TestPublishRejectsMissingCapability(t *testing.T) {
	bus := eventbus.New(middleware.Noop())
	publisher := claimsWith(t, "event:publish:other_topic")

	_, err := bus.Publish(context.Background(), publisher, "inventory:low_stock", nil)
	require.ErrorIs(t, err, eventbus.ErrUnauthorized)
}

func TestSubscribeWildcardFilterMatchesPublishedTopic(t *testing.T) {
	bus := eventbus.New(middleware.Noop())
	subscriber := claimsWith(t, "event:subscribe:inventory:*")
	publisher := claimsWith(t, "event:publish:inventory:prod_12345:low_stock")

	ch, cancel, err := bus.Subscribe(context.Background(), subscriber, "inventory:*")
	require.NoError(t, err)
	defer cancel()

	_, err = bus.Publish(context.Background(), publisher, "inventory:prod_12345:low_stock", nil)
	require.NoError(t, err)

	select {
	case env := <-ch:
		require.Equal(t, "inventory:prod_12345:low_stock", env.Topic)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for envelope")
	}
}

func TestPublishRejectsOverLimitCaller(t *testing.T) {
	bus := eventbus.New(middleware.Noop(), eventbus.WithPublishLimiter(middleware.NewPerCallerLimiter(1, 1)))
	publisher := claimsWith(t, "event:publish:topic")

	_, err := bus.Publish(context.Background(), publisher, "topic", nil)
	require.NoError(t, err)

	_, err = bus.Publish(context.Background(), publisher, "topic", nil)
	require.ErrorIs(t, err, eventbus.ErrRateLimited)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := eventbus.New(middleware.Noop())
	subscriber := claimsWith(t, "event:subscribe:topic")
	publisher := claimsWith(t, "event:publish:topic")

	ch, cancel, err := bus.Subscribe(context.Background(), subscriber, "topic")
	require.NoError(t, err)
	cancel()

	_, err = bus.Publish(context.Background(), publisher, "topic", nil)
	require.NoError(t, err)

	select {
	case _, ok := <-ch:
		require.False(t, ok, "no envelope should arrive on an unsubscribed sink")
	case <-time.After(50 * time.Millisecond):
		// no delivery within the window: unsubscribe worked.
	}
}
