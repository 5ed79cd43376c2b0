package http

import "errors"

var (
	// ErrInvalidRequestBody is returned when a request body fails to bind or validate.
	ErrInvalidRequestBody = errors.New("invalid request body")
)
