package model

import "errors"

var (
	// ErrLeaseHeld is returned when another build already holds the lease
	// for a fingerprint.
	ErrLeaseHeld = errors.New("shortlist: build lease held")
	// ErrTransient is returned when the cache store could not be reached;
	// callers retry once and then escalate.
	ErrTransient = errors.New("shortlist: transient failure")
)

// ErrorCode identifies a shortlist-cache error for HTTP mapping.
type ErrorCode string

const (
	CodeLeaseHeld     ErrorCode = "LEASE_HELD"
	CodeTransient     ErrorCode = "TRANSIENT"
	CodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// GetErrorCode maps a shortlist-cache error to its ErrorCode.
func GetErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrLeaseHeld):
		return CodeLeaseHeld
	case errors.Is(err, ErrTransient):
		return CodeTransient
	default:
		return CodeInternalError
	}
}
