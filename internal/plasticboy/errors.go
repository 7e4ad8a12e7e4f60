package plasticboy

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("point not found")
	ErrInvalidSecret     = errors.New("invalid secret")
	ErrAlreadyCollected  = errors.New("point already collected")
	ErrNotYetAvailable   = errors.New("point not yet available")
	ErrUntrustedIdentity = errors.New("untrusted identity")
	ErrEncoding          = errors.New("code encoding failed")
)

// ValidationError reports which input field was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotYetAvailableError carries the reveal time so clients can show a countdown.
type NotYetAvailableError struct {
	ScheduledTime time.Time
}

func (e *NotYetAvailableError) Error() string {
	return fmt.Sprintf("point not yet available until %s", e.ScheduledTime.UTC().Format(time.RFC3339))
}

func (e *NotYetAvailableError) Is(target error) bool { return target == ErrNotYetAvailable }

// Kind is a stable, client-facing error classification.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindInvalidSecret     Kind = "invalid_secret"
	KindAlreadyCollected  Kind = "already_collected"
	KindNotYetAvailable   Kind = "not_yet_available"
	KindUntrustedIdentity Kind = "untrusted_identity"
	KindEncoding          Kind = "encoding"
	KindInternal          Kind = "internal"
)

// KindOf maps err to its Kind. Anything that is not a domain error is internal.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidSecret):
		return KindInvalidSecret
	case errors.Is(err, ErrAlreadyCollected):
		return KindAlreadyCollected
	case errors.Is(err, ErrNotYetAvailable):
		return KindNotYetAvailable
	case errors.Is(err, ErrUntrustedIdentity):
		return KindUntrustedIdentity
	case errors.Is(err, ErrEncoding):
		return KindEncoding
	default:
		return KindInternal
	}
}
