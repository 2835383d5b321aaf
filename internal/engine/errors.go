package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is a dispatcher-level rejection. A rejected call is never
// included: it consumes no seq and leaves no trace in the call log.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeBadOrigin indicates the call carried no signer.
	ErrCodeBadOrigin RuntimeErrorCode = "BAD_ORIGIN"

	// ErrCodePayloadTooLarge indicates the payload exceeds the runtime's
	// transaction-size policy.
	ErrCodePayloadTooLarge RuntimeErrorCode = "PAYLOAD_TOO_LARGE"

	// ErrCodeStopped indicates the engine no longer accepts submissions.
	ErrCodeStopped RuntimeErrorCode = "ENGINE_STOPPED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsRejection returns true if err is a RuntimeError of any code.
// Uses errors.As to handle wrapped errors.
func IsRejection(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re)
}

// RejectionCode returns the code of a RuntimeError, or "" if err is not one.
func RejectionCode(err error) RuntimeErrorCode {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// NewBadOriginError creates a RuntimeError for an unsigned origin.
func NewBadOriginError() *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeBadOrigin,
		Message: "call requires a signed origin",
	}
}

// NewPayloadTooLargeError creates a RuntimeError for an oversized payload.
func NewPayloadTooLargeError(size, limit int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodePayloadTooLarge,
		Message: fmt.Sprintf("payload is %d bytes, limit is %d", size, limit),
		Details: map[string]string{
			"size":  fmt.Sprintf("%d", size),
			"limit": fmt.Sprintf("%d", limit),
		},
	}
}

// NewStoppedError creates a RuntimeError for a submission after Stop.
func NewStoppedError() *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeStopped,
		Message: "engine is stopped",
	}
}
