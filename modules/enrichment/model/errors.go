package model

import "errors"

var (
	// ErrNoMatch is returned when the provider matched nothing for the
	// person, distinct from ProviderError.
	ErrNoMatch = errors.New("enrichment: no match")
	// ErrProviderError is returned on network failure or a 5xx response.
	ErrProviderError = errors.New("enrichment: provider error")
	// ErrBudgetExceeded is returned when the per-build or per-minute
	// budget is exhausted; recovered locally by the caller.
	ErrBudgetExceeded = errors.New("enrichment: budget exceeded")
)

// ErrorCode identifies an enrichment error for the response's warnings list.
type ErrorCode string

const (
	CodeNoMatch        ErrorCode = "NO_MATCH"
	CodeProviderError  ErrorCode = "PROVIDER_ERROR"
	CodeBudgetExceeded ErrorCode = "BUDGET_EXCEEDED"
	CodeInternalError  ErrorCode = "INTERNAL_ERROR"
)

// GetErrorCode maps an enrichment error to its ErrorCode.
func GetErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrNoMatch):
		return CodeNoMatch
	case errors.Is(err, ErrProviderError):
		return CodeProviderError
	case errors.Is(err, ErrBudgetExceeded):
		return CodeBudgetExceeded
	default:
		return CodeInternalError
	}
}
