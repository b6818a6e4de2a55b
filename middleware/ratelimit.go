package middleware

import (
	"sync"

	"golang.org/x/time/rate"
)

// PerCallerLimiter enforces a token-bucket rate limit per caller subject.
// Buckets are created lazily on first use and never evicted; it is sized
// for the population of distinct token subjects a deployment expects to
// see, not for arbitrary untrusted keys.
type PerCallerLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	burst    int
}

// NewPerCallerLimiter returns a limiter admitting up to burst events
// immediately per caller, refilling at r events per second thereafter.
func NewPerCallerLimiter(r float64, burst int) *PerCallerLimiter {
	return &PerCallerLimiter{
		limiters: make(map[string]*rate.Limiter),
		r:        rate.Limit(r),
		burst:    burst,
	}
}

// Allow reports whether subject may proceed now, consuming a token if so.
func (p *PerCallerLimiter) Allow(subject string) bool {
	p.mu.Lock()
	l, ok := p.limiters[subject]
	if !ok {
		l = rate.NewLimiter(p.r, p.burst)
		p.limiters[subject] = l
	}
	p.mu.Unlock()
	return l.Allow()
}
