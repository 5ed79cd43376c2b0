// Package breaker wraps sony/gobreaker to protect upstream provider calls
// (bulk enrichment, web research, reasoning agents) from cascading failure.
package breaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// ErrOpen is returned when the circuit is open and rejects the call
// without attempting it.
var ErrOpen = errors.New("breaker: circuit open")

// Config configures a single Breaker.
type Config struct {
	// MaxConsecutiveFailures trips the circuit once reached.
	MaxConsecutiveFailures uint32
	// OpenTimeout is how long the circuit stays open before probing again.
	OpenTimeout time.Duration
	// HalfOpenMaxSuccesses closes the circuit again once reached in half-open.
	HalfOpenMaxSuccesses uint32
}

// DefaultConfig matches the per-provider defaults used across the pipeline's
// upstream clients.
func DefaultConfig() Config {
	return Config{
		MaxConsecutiveFailures: 5,
		OpenTimeout:            30 * time.Second,
		HalfOpenMaxSuccesses:   2,
	}
}

// Breaker wraps one gobreaker.CircuitBreaker for one named upstream
// dependency (e.g. "enrichment-provider", "reasoning-agent-skills").
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker

	mu       sync.Mutex
	requests uint64
	failures uint64
}

// New creates a named Breaker with cfg's thresholds.
func New(name string, cfg Config) *Breaker {
	b := &Breaker{name: name}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenMaxSuccesses,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxConsecutiveFailures
		},
	})
	return b
}

// Execute runs fn through the circuit, translating an open circuit into
// ErrOpen and respecting ctx cancellation both before and during the call.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	_, err := b.cb.Execute(func() (interface{}, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		return nil, fn(ctx)
	})

	b.mu.Lock()
	b.requests++
	if err != nil {
		b.failures++
	}
	b.mu.Unlock()

	if errors.Is(err, gobreaker.ErrOpenState) {
		return ErrOpen
	}
	return err
}

// State reports "closed", "open", or "half-open".
func (b *Breaker) State() string {
	switch b.cb.State() {
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Registry holds one Breaker per named upstream, created lazily so callers
// don't need to pre-register every reasoning agent by name.
type Registry struct {
	cfg Config

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewRegistry creates a Registry whose breakers all share cfg.
func NewRegistry(cfg Config) *Registry {
	return &Registry{cfg: cfg, breakers: make(map[string]*Breaker)}
}

// Get returns the named Breaker, creating it on first use.
func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[name]
	if !ok {
		b = New(name, r.cfg)
		r.breakers[name] = b
	}
	return b
}
