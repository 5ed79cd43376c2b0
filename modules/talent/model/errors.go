package model

import "errors"

var (
	// ErrPersonNotFound is returned when a person is not found.
	ErrPersonNotFound = errors.New("person not found")
	// ErrRoleNotFound is returned when a role is not found.
	ErrRoleNotFound = errors.New("role not found")
	// ErrCompanyNotFound is returned when a company is not found.
	ErrCompanyNotFound = errors.New("company not found")
	// ErrTransient is returned when the store could not be reached but the
	// caller should retry.
	ErrTransient = errors.New("talent store: transient failure")
)

// ErrorCode identifies an error for HTTP/error-taxonomy mapping.
type ErrorCode string

const (
	CodePersonNotFound  ErrorCode = "PERSON_NOT_FOUND"
	CodeRoleNotFound    ErrorCode = "ROLE_NOT_FOUND"
	CodeCompanyNotFound ErrorCode = "COMPANY_NOT_FOUND"
	CodeTransient       ErrorCode = "TRANSIENT"
	CodeInternalError   ErrorCode = "INTERNAL_ERROR"
)

// GetErrorCode maps a talent-store error to its ErrorCode.
func GetErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrPersonNotFound):
		return CodePersonNotFound
	case errors.Is(err, ErrRoleNotFound):
		return CodeRoleNotFound
	case errors.Is(err, ErrCompanyNotFound):
		return CodeCompanyNotFound
	case errors.Is(err, ErrTransient):
		return CodeTransient
	default:
		return CodeInternalError
	}
}
