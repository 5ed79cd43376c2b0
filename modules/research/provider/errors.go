package provider

import "errors"

var (
	// ErrProviderError is returned on network failure or a non-2xx response
	// from the web-research provider.
	ErrProviderError = errors.New("research: provider error")
	// ErrTimeout is returned when a per-call deadline elapsed; the caller
	// records a warning and proceeds with an empty highlight list.
	ErrTimeout = errors.New("research: timeout")
	// ErrBudgetExceeded is returned when the per-minute research budget is
	// exhausted; recovered locally by the caller.
	ErrBudgetExceeded = errors.New("research: budget exceeded")
)
