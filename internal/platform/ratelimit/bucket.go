// Package ratelimit provides per-upstream-provider token-bucket rate
// limiting shared across all concurrent builds in the process.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter wraps a token bucket for one upstream provider. Calls that
// exceed the budget fail fast via Allow rather than blocking, matching
// the pipeline's BudgetExceeded semantics — callers never queue.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter creates a Limiter allowing perMinute tokens per minute, with a
// burst equal to perMinute (a full minute's budget may be spent instantly).
func NewLimiter(perMinute int) *Limiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
	}
}

// Allow reports whether a single call may proceed now, consuming one token
// if so.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Registry holds one Limiter per named upstream provider.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*Limiter
	perMin   map[string]int
}

// NewRegistry creates an empty Registry. Callers register a provider's
// budget once via Configure and then call Get to obtain its Limiter.
func NewRegistry() *Registry {
	return &Registry{
		limiters: make(map[string]*Limiter),
		perMin:   make(map[string]int),
	}
}

// Configure sets the per-minute budget for a named provider. Safe to call
// before the provider's first Get.
func (r *Registry) Configure(name string, perMinute int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.perMin[name] = perMinute
}

// Get returns the named provider's Limiter, creating it with its
// configured budget (or a default of 60/minute if never configured) on
// first use.
func (r *Registry) Get(name string) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limiters[name]; ok {
		return l
	}
	perMinute, ok := r.perMin[name]
	if !ok {
		perMinute = 60
	}
	l := NewLimiter(perMinute)
	r.limiters[name] = l
	return l
}
