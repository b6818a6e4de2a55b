package middleware_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"goa.design/fabric/middleware"
)

func TestCacheKeyOrdersParamsRegardlessOfInputOrder(t *testing.T) {
	a := middleware.CacheKey("stock_count", map[string]string{"product_id": "prod_12345", "region": "us"})
	b := middleware.CacheKey("stock_count", map[string]string{"region": "us", "product_id": "prod_12345"})
	require.Equal(t, a, b)
}

func TestCacheKeyDiffersByContextKey(t *testing.T) {
	a := middleware.CacheKey("stock_count", map[string]string{"product_id": "prod_12345"})
	b := middleware.CacheKey("price", map[string]string{"product_id": "prod_12345"})
	require.NotEqual(t, a, b)
}

func TestTTLCacheExpires(t *testing.T) {
	c := middleware.NewTTLCache(10 * time.Millisecond)
	c.Set("k", 42)

	v, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, 42, v)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.Get("k")
	require.False(t, ok)
}

func TestTTLCacheInvalidate(t *testing.T) {
	c := middleware.NewTTLCache(time.Minute)
	c.Set("k", "v")
	c.Invalidate("k")
	_, ok := c.Get("k")
	require.False(t, ok)
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	b := middleware.NewCircuitBreaker(3, 50*time.Millisecond)

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Allow())
		b.Report(false)
	}
	require.Equal(t, middleware.Open, b.State())
	require.ErrorIs(t, b.Allow(), middleware.ErrBreakerOpen)
}

func TestCircuitBreakerHalfOpenRecoversOnSuccess(t *testing.T) {
	b := middleware.NewCircuitBreaker(1, 10*time.Millisecond)

	require.NoError(t, b.Allow())
	b.Report(false)
	require.Equal(t, middleware.Open, b.State())

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, b.Allow())
	require.Equal(t, middleware.HalfOpen, b.State())
	b.Report(true)
	require.Equal(t, middleware.Closed, b.State())
}

func TestCircuitBreakerHalfOpenReopensOnFailure(t *testing.T) {
	b := middleware.NewCircuitBreaker(1, 10*time.Millisecond)

	require.NoError(t, b.Allow())
	b.Report(false)
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, b.Allow())
	b.Report(false)
	require.Equal(t, middleware.Open, b.State())
}

func TestPerCallerLimiterAdmitsUpToBurstThenRejects(t *testing.T) {
	l := middleware.NewPerCallerLimiter(1, 2)

	require.True(t, l.Allow("agent-a"))
	require.True(t, l.Allow("agent-a"))
	require.False(t, l.Allow("agent-a"))
}

func TestPerCallerLimiterTracksSubjectsIndependently(t *testing.T) {
	l := middleware.NewPerCallerLimiter(1, 1)

	require.True(t, l.Allow("agent-a"))
	require.False(t, l.Allow("agent-a"))
	require.True(t, l.Allow("agent-b"))
}

func TestCircuitBreakerClosedResetsFailureCountOnSuccess(t *testing.T) {
	b := middleware.NewCircuitBreaker(2, time.Minute)

	require.NoError(t, b.Allow())
	b.Report(false)
	require.NoError(t, b.Allow())
	b.Report(true)
	require.NoError(t, b.Allow())
	b.Report(false)
	require.Equal(t, middleware.Closed, b.State())
}
