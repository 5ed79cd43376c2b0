// Package service implements the Enrichment Client contract:
// cache-first lookup, a per-build cap and a shared per-minute rate limit,
// both enforced before any provider call, and a circuit breaker around
// the provider HTTP call itself.
package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	enrichCache "github.com/talentcurate/pipeline/modules/enrichment/cache"
	"github.com/talentcurate/pipeline/modules/enrichment/model"
	"github.com/talentcurate/pipeline/modules/enrichment/provider"
	"github.com/talentcurate/pipeline/internal/platform/breaker"
	"github.com/talentcurate/pipeline/internal/platform/ratelimit"
	talentModel "github.com/talentcurate/pipeline/modules/talent/model"
)

// Budget bounds the number of provider calls a single build may make.
// Safe for concurrent use by the bounded fan-out within one build.
type Budget struct {
	remaining int64
}

// NewBudget creates a Budget allowing up to max provider calls.
func NewBudget(max int) *Budget {
	if max < 0 {
		max = 0
	}
	return &Budget{remaining: int64(max)}
}

// TryConsume atomically takes one unit of budget, reporting whether any
// remained.
func (b *Budget) TryConsume() bool {
	for {
		cur := atomic.LoadInt64(&b.remaining)
		if cur <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt64(&b.remaining, cur, cur-1) {
			return true
		}
	}
}

// matcher is the subset of provider.Client's surface the service needs,
// narrowed to an interface so tests can fake the upstream call without a
// live HTTP server.
type matcher interface {
	Match(ctx context.Context, req provider.MatchRequest) (model.EnrichmentPayload, float64, error)
}

// Service orchestrates a single person's enrichment attempt.
type Service struct {
	cache   *enrichCache.Cache
	client  matcher
	limiter *ratelimit.Limiter
	breaker *breaker.Breaker
	timeout time.Duration
}

// New creates a Service. limiter and br are shared process-wide, one
// token bucket and breaker per upstream provider across all builds.
func New(cache *enrichCache.Cache, client matcher, limiter *ratelimit.Limiter, br *breaker.Breaker, perPersonTimeout time.Duration) *Service {
	if perPersonTimeout <= 0 {
		perPersonTimeout = 15 * time.Second
	}
	return &Service{cache: cache, client: client, limiter: limiter, breaker: br, timeout: perPersonTimeout}
}

// Enrich resolves person's enrichment record. A fresh cached record
// short-circuits without consuming budget; otherwise the call is subject
// to budget, rate limit and circuit breaker, in that order, so an
// exhausted budget fails fast before any network attempt.
func (s *Service) Enrich(ctx context.Context, person *talentModel.Person, budget *Budget) (*model.EnrichmentRecord, error) {
	if cached, fresh, err := s.cache.Lookup(ctx, person.ID); err != nil {
		return nil, err
	} else if fresh {
		return cached, nil
	}

	if !budget.TryConsume() {
		return nil, model.ErrBudgetExceeded
	}
	if !s.limiter.Allow() {
		return nil, model.ErrBudgetExceeded
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var payload model.EnrichmentPayload
	var quality float64
	var noMatch bool
	err := s.breaker.Execute(callCtx, func(ctx context.Context) error {
		var innerErr error
		payload, quality, innerErr = s.client.Match(ctx, provider.MatchRequest{
			LinkedInURL: person.LinkedInURL,
			FullName:    person.Name,
			CurrentCo:   person.Company,
		})
		// A no-match is a healthy provider with no data, not a failure;
		// it must not count toward tripping the circuit.
		if errors.Is(innerErr, model.ErrNoMatch) {
			noMatch = true
			return nil
		}
		return innerErr
	})
	if err != nil {
		if err == breaker.ErrOpen {
			return nil, model.ErrProviderError
		}
		return nil, err
	}
	if noMatch {
		return nil, model.ErrNoMatch
	}

	rec := &model.EnrichmentRecord{
		PersonID:  person.ID,
		Provider:  "pdl",
		FetchedAt: time.Now().UTC(),
		Payload:   payload,
		Quality:   quality,
	}
	if err := s.cache.Store(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
