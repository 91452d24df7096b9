// Package swaperr classifies raw provider and wallet failures into a closed
// set of kinds, each with a message, recoverability and recovery suggestions.
package swaperr

import (
	"errors"
	"fmt"
	"time"
)

// SwapError is the only error type that crosses the executor boundary.
// It is built fresh for every failure and never mutated afterwards.
type SwapError struct {
	Kind            Kind
	Message         string
	Recoverable     bool
	SuggestedAction string
	// RetryAfter is set for rate-limit errors when a duration could be parsed
	RetryAfter time.Duration
	Cause      error
}

func (e *SwapError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *SwapError) Unwrap() error {
	return e.Cause
}

// HasRetryAfter reports whether a retry-after duration was parsed
func (e *SwapError) HasRetryAfter() bool {
	return e.RetryAfter > 0
}

// New builds a SwapError of the given kind around cause
func New(kind Kind, cause error) *SwapError {
	if !kind.Valid() {
		kind = KindUnknown
	}
	se := &SwapError{
		Kind:        kind,
		Message:     Message(kind),
		Recoverable: IsRecoverable(kind),
		Cause:       cause,
	}
	if s := registry[kind].suggestions; len(s) > 0 {
		se.SuggestedAction = s[0]
	}
	if kind == KindRateLimitExceeded && cause != nil {
		if d, ok := ParseRetryAfter(cause.Error()); ok {
			se.RetryAfter = d
			se.SuggestedAction = fmt.Sprintf("Wait %s before trying again", d)
		}
	}
	return se
}

// Classify converts any error into a SwapError. An error that already is
// (or wraps) a SwapError is returned as is.
func Classify(err error) *SwapError {
	if err == nil {
		return nil
	}
	var se *SwapError
	if errors.As(err, &se) {
		return se
	}
	return New(classifyKind(err), err)
}

// ClassifyAs forces a kind regardless of the error text, e.g. a rejected chain
// switch is always USER_REJECTED
func ClassifyAs(kind Kind, err error) *SwapError {
	return New(kind, err)
}

// KindOf returns the kind of err without building a SwapError
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var se *SwapError
	if errors.As(err, &se) {
		return se.Kind
	}
	return classifyKind(err)
}
