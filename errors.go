package minijwt

import (
	"errors"
	"fmt"

	"github.com/cybergodev/minijwt/internal/core"
)

// Predefined errors for token operations
var (
	// Token errors
	ErrInvalidDuration = core.ErrInvalidDuration
	ErrNotValid        = core.ErrNotValid
	ErrNotExpired      = core.ErrNotExpired
	ErrExpired         = core.ErrExpired
	ErrTokenTooLarge   = core.ErrTokenTooLarge
	ErrInvalidClaims   = core.ErrInvalidClaims
	ErrEmptyToken      = errors.New("empty token: token string cannot be empty")
	ErrTokenRevoked    = errors.New("token has been revoked and is no longer valid")

	// Configuration errors
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrInvalidSecretKey  = errors.New("invalid secret key: must not be empty")
	ErrBlacklistDisabled = errors.New("revocation is not configured for this processor")

	// System errors
	ErrProcessorClosed = errors.New("processor is closed: cannot perform operations")
)

// ValidationError represents a validation error for a specific field.
// It provides detailed information about what validation failed and why.
type ValidationError struct {
	Field   string // The field that failed validation
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation failed for field '%s': %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
