package auth

import (
	"errors"
)

// Failure classes surfaced to clients. Anything not matching one of these is
// an internal error and only its generic form leaves the server.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidOTP      = errors.New("invalid otp")
	ErrRateLimited     = errors.New("too many otp requests")
)

// ValidationError rejects malformed input before any lookup happens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// RateLimitError carries how long the caller should wait.
type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string { return e.Message }

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
