package errors

import "errors"

// Error taxonomy for the registration workflow. Handlers map these to HTTP
// status codes; everything unwrapped falls through as an internal error.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict with existing registration")
	ErrUnauthorized = errors.New("user is not authorized")
	ErrForbidden    = errors.New("operation is forbidden for user")
)
