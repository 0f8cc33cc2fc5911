package ierr

import "errors"

// Generic failures, mapped to HTTP statuses by the error middleware.
var (
	ErrValidation     = errors.New("validation failed")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource conflict")
	ErrInternalServer = errors.New("internal server error")
)

// Credential failures.
var (
	ErrInvalidToken       = errors.New("invalid or expired bearer token")
	ErrTokenParsingFailed = errors.New("failed to parse bearer token")
	ErrTokenInvalidClaims = errors.New("bearer token carries invalid claims")
	ErrAPIKeyNotFound     = errors.New("api key not found or disabled")
)
