package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not_found")
	ErrInvalidInput        = errors.New("invalid_input")
	ErrConflict            = errors.New("conflict")
	ErrPostImmutable       = errors.New("post_immutable")
	ErrIdempotencyRequired = errors.New("idempotency_key_required")
	ErrIdempotencyConflict = errors.New("idempotency_conflict")

	// ErrInsightsLimited marks accounts that cannot serve insights at all
	// (personal profiles, missing business status). The reconciler records
	// the limitation instead of retrying.
	ErrInsightsLimited = errors.New("insights_access_limited")
)

// ErrorKind is the publish failure taxonomy. It, not the raw HTTP status,
// drives the retry decision.
type ErrorKind string

const (
	ErrorKindValidation        ErrorKind = "validation"
	ErrorKindAuth              ErrorKind = "auth"
	ErrorKindPlatformRejection ErrorKind = "platform_rejection"
	ErrorKindTransient         ErrorKind = "transient"
)

// PublishError is the classified outcome of a gateway call. Adapters must
// wrap every remote failure in one of these before it crosses back into the
// dispatcher.
type PublishError struct {
	Kind     ErrorKind
	Platform string
	Message  string
	cause    error
}

func (e *PublishError) Error() string {
	if e.Platform != "" {
		return fmt.Sprintf("%s: %s: %s", e.Platform, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PublishError) Unwrap() error { return e.cause }

func (e *PublishError) Retryable() bool { return e.Kind == ErrorKindTransient }

func NewPublishError(kind ErrorKind, platform, message string, cause error) *PublishError {
	return &PublishError{Kind: kind, Platform: platform, Message: message, cause: cause}
}

func ValidationErrorf(platform, format string, args ...any) *PublishError {
	return &PublishError{Kind: ErrorKindValidation, Platform: platform, Message: fmt.Sprintf(format, args...)}
}

func AuthErrorf(platform, format string, args ...any) *PublishError {
	return &PublishError{Kind: ErrorKindAuth, Platform: platform, Message: fmt.Sprintf(format, args...)}
}

func RejectionErrorf(platform, format string, args ...any) *PublishError {
	return &PublishError{Kind: ErrorKindPlatformRejection, Platform: platform, Message: fmt.Sprintf(format, args...)}
}

func TransientErrorf(platform, format string, args ...any) *PublishError {
	return &PublishError{Kind: ErrorKindTransient, Platform: platform, Message: fmt.Sprintf(format, args...)}
}

// ClassifyError extracts the PublishError from err, treating anything
// unclassified as transient so unknown failures stay retryable rather than
// silently terminal.
func ClassifyError(err error) *PublishError {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe
	}
	return &PublishError{Kind: ErrorKindTransient, Message: err.Error(), cause: err}
}
