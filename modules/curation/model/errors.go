package model

import (
	"errors"

	shortlistModel "github.com/talentcurate/pipeline/modules/shortlist/model"
	talentModel "github.com/talentcurate/pipeline/modules/talent/model"
)

var (
	// ErrDeadline is returned when the whole-build deadline elapsed;
	// fatal to the build, though stale-on-error may still serve a prior
	// entry.
	ErrDeadline = errors.New("curation: build deadline exceeded")
	// ErrBuildFailed is returned when a waiter observed another holder's
	// build fail, or when a fresh failed status is still in its back-off
	// window.
	ErrBuildFailed = errors.New("curation: build failed")
)

// ErrorCode identifies a curation error for HTTP mapping.
type ErrorCode string

const (
	CodeRoleNotFound    ErrorCode = "ROLE_NOT_FOUND"
	CodeCompanyNotFound ErrorCode = "COMPANY_NOT_FOUND"
	CodeDeadline        ErrorCode = "DEADLINE"
	CodeBuildFailed     ErrorCode = "BUILD_FAILED"
	CodeTransient       ErrorCode = "TRANSIENT"
	CodeInternalError   ErrorCode = "INTERNAL_ERROR"
)

// GetErrorCode maps a curation error to its ErrorCode, classifying
// upstream sentinel errors into the taxonomy without type switches at
// the transport layer.
func GetErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, talentModel.ErrRoleNotFound):
		return CodeRoleNotFound
	case errors.Is(err, talentModel.ErrCompanyNotFound):
		return CodeCompanyNotFound
	case errors.Is(err, ErrDeadline):
		return CodeDeadline
	case errors.Is(err, ErrBuildFailed):
		return CodeBuildFailed
	case errors.Is(err, talentModel.ErrTransient), errors.Is(err, shortlistModel.ErrTransient):
		return CodeTransient
	default:
		return CodeInternalError
	}
}

// GetErrorMessage returns the caller-facing message for err.
func GetErrorMessage(err error) string {
	switch GetErrorCode(err) {
	case CodeRoleNotFound:
		return "Role not found"
	case CodeCompanyNotFound:
		return "Company not found"
	case CodeDeadline:
		return "Shortlist build exceeded its deadline"
	case CodeBuildFailed:
		return "Shortlist build failed; retry after the back-off window"
	case CodeTransient:
		return "A backing store is temporarily unavailable"
	default:
		return "Internal error"
	}
}
