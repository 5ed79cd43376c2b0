// Package service implements the Research Client contract:
// disabled by configuration or a missing API key (in which case it
// returns the empty list without consuming budget), otherwise rate
// limited and circuit-broken the same way as enrichment. Failures are
// typed (timeout, budget, provider) so the build records the right
// warning while continuing with an empty highlight list.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/talentcurate/pipeline/internal/platform/breaker"
	"github.com/talentcurate/pipeline/internal/platform/ratelimit"
	"github.com/talentcurate/pipeline/modules/research/model"
	"github.com/talentcurate/pipeline/modules/research/provider"
	talentModel "github.com/talentcurate/pipeline/modules/talent/model"
)

// researcher is the subset of provider.Client's surface the service
// needs, narrowed so tests can fake the upstream call.
type researcher interface {
	Research(ctx context.Context, req provider.ResearchRequest) ([]model.Highlight, error)
}

// Service orchestrates a single candidate's research call.
type Service struct {
	client  researcher
	limiter *ratelimit.Limiter
	breaker *breaker.Breaker
	timeout time.Duration
	enabled bool
}

// New creates a Service. The stage is disabled by configuration or when
// the API key is empty.
func New(client researcher, limiter *ratelimit.Limiter, br *breaker.Breaker, perPersonTimeout time.Duration, enabled bool, apiKey string) *Service {
	if perPersonTimeout <= 0 {
		perPersonTimeout = 20 * time.Second
	}
	return &Service{
		client:  client,
		limiter: limiter,
		breaker: br,
		timeout: perPersonTimeout,
		enabled: enabled && apiKey != "",
	}
}

// Enabled reports whether the service will make any upstream calls.
func (s *Service) Enabled() bool { return s.enabled }

// Research returns highlights for person in the context of role. A
// per-call timeout yields provider.ErrTimeout so the build can record a
// warning while still treating the highlight list as empty; any
// other provider failure is returned as-is.
func (s *Service) Research(ctx context.Context, person *talentModel.Person, role *talentModel.Role) ([]model.Highlight, error) {
	if !s.enabled {
		return nil, nil
	}
	if !s.limiter.Allow() {
		return nil, provider.ErrBudgetExceeded
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var highlights []model.Highlight
	err := s.breaker.Execute(callCtx, func(ctx context.Context) error {
		var innerErr error
		highlights, innerErr = s.client.Research(ctx, provider.ResearchRequest{
			FullName:    person.Name,
			CompanyName: person.Company,
			RoleTitle:   role.Title,
			GitHubURL:   person.GitHubURL,
		})
		return innerErr
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, provider.ErrTimeout
		}
		if err == breaker.ErrOpen {
			return nil, provider.ErrProviderError
		}
		return nil, err
	}
	return highlights, nil
}
