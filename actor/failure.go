package actor

import (
	"errors"
	"fmt"
)

// FailureKind classifies a failure raised by an actor's message processing.
// Supervisors decide directives from the kind alone: the failing message and
// the child's internal state are deliberately not part of the failure record.
type FailureKind uint8

const (
	// FailureUnknown is the classification of errors that carry no kind.
	FailureUnknown FailureKind = iota
	// FailureTimeout indicates an operation that did not complete in time.
	FailureTimeout
	// FailureResourceExhausted indicates a resource that is temporarily unavailable.
	FailureResourceExhausted
	// FailureCrash indicates a programming error, such as a panic while processing a message.
	FailureCrash
	// FailureInvariant indicates a violated invariant in the actor's state.
	FailureInvariant
)

// Transient returns true for failure kinds that are expected to succeed if
// retried, and are typically mapped to Restart or Resume.
func (k FailureKind) Transient() bool {
	return k == FailureTimeout || k == FailureResourceExhausted
}

// String implements fmt.Stringer.
func (k FailureKind) String() string {
	switch k {
	case FailureTimeout:
		return "timeout"
	case FailureResourceExhausted:
		return "resource-exhausted"
	case FailureCrash:
		return "crash"
	case FailureInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// Failure is an error with a FailureKind attached.
// Behaviors return a *Failure (or an error wrapping one) to control how the
// supervisor classifies the failure.
type Failure struct {
	Kind FailureKind
	Err  error
}

// NewFailure returns a Failure wrapping err with the given kind.
func NewFailure(kind FailureKind, err error) *Failure {
	return &Failure{
		Kind: kind,
		Err:  err,
	}
}

// Failf returns a Failure with the given kind and a formatted message.
func Failf(kind FailureKind, format string, args ...any) *Failure {
	return &Failure{
		Kind: kind,
		Err:  fmt.Errorf(format, args...),
	}
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Kind.String()
	}
	return f.Kind.String() + ": " + f.Err.Error()
}

// Unwrap returns the wrapped error.
func (f *Failure) Unwrap() error {
	return f.Err
}

// KindOf returns the FailureKind carried by err, or FailureUnknown if err
// does not wrap a Failure.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return FailureUnknown
}
