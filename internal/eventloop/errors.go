package eventloop

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTimeout is returned by Run when deferred work is still pending past
	// the loop deadline.
	ErrTimeout = errors.New("deferred work did not settle before the deadline")

	// ErrCancelled is returned by Run when its context is cancelled.
	ErrCancelled = errors.New("run cancelled")

	// ErrDeferredDisallowed is raised when a restricted loop is asked to
	// schedule a microtask or timer.
	ErrDeferredDisallowed = errors.New("deferred work scheduled by a snippet that did not declare it")
)

// PanicError wraps a value recovered from a panicking task.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	if err, ok := e.Value.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes a panicked error value to errors.Is / errors.As.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// UnhandledRejectionError reports a promise that was rejected and had no
// rejection handler by the end of a microtask checkpoint.
type UnhandledRejectionError struct {
	Reason error
}

// Error implements the error interface.
func (e *UnhandledRejectionError) Error() string {
	return "unhandled rejection: " + e.Reason.Error()
}

// Unwrap returns the rejection reason.
func (e *UnhandledRejectionError) Unwrap() error {
	return e.Reason
}

// AggregateError is the rejection reason of Any when every input rejects.
type AggregateError struct {
	Errors []error
}

// Error implements the error interface.
func (e *AggregateError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return "all promises were rejected: [" + strings.Join(msgs, "; ") + "]"
}

// IsTimeout returns true if err is (or wraps) ErrTimeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsCancelled returns true if err is (or wraps) ErrCancelled.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsUnhandledRejection returns true if err is an UnhandledRejectionError.
// Uses errors.As to handle wrapped errors.
func IsUnhandledRejection(err error) bool {
	var ue *UnhandledRejectionError
	return errors.As(err, &ue)
}

func cancelled(cause error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}
