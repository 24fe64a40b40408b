package remote

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying remote failures. Callers use errors.Is so
// wrapped errors classify correctly.
var (
	// ErrTransient marks retryable failures: the queue item stays queued,
	// the membership lookup is retried.
	ErrTransient = errors.New("transient remote error")
	// ErrAuthExpired marks a dead session: clear local state and return to
	// the unauthenticated flow.
	ErrAuthExpired = errors.New("authentication expired")
	// ErrValidation marks a payload the backend rejected; replaying it
	// unchanged will never succeed.
	ErrValidation = errors.New("payload rejected")
	// ErrNotFound marks a missing document.
	ErrNotFound = errors.New("document not found")
)

// TransientError wraps an underlying network-level failure.
func TransientError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrTransient, err)
}

// ValidationError wraps a constraint violation with its reason.
func ValidationError(reason string) error {
	return fmt.Errorf("%w: %s", ErrValidation, reason)
}

// IsRetryable reports whether the failure may succeed on a later attempt.
// Unknown errors count as retryable; only a definitive rejection is not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrAuthExpired) {
		return false
	}
	return true
}
