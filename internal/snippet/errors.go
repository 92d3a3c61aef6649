package snippet

import (
	"errors"

	"github.com/roach88/snipcheck/internal/eventloop"
)

// ErrUndeclaredDeferred is raised when a snippet without the Deferred
// capability schedules a timer, microtask or promise reaction.
var ErrUndeclaredDeferred = eventloop.ErrDeferredDisallowed

// ThrownError is an error a snippet body throws on purpose.
type ThrownError struct {
	Kind    ErrorKind
	Name    string
	Message string
}

// Error returns the message, the way a console prints error.message.
func (e *ThrownError) Error() string {
	return e.Message
}

// TypeError returns a thrown error of kind TypeError.
func TypeError(msg string) error {
	return &ThrownError{Kind: KindTypeError, Name: "TypeError", Message: msg}
}

// RangeError returns a thrown error of kind RangeError.
func RangeError(msg string) error {
	return &ThrownError{Kind: KindRangeError, Name: "RangeError", Message: msg}
}

// NewError returns a thrown error of kind Custom with the given class name,
// e.g. NewError("NotaInvalidaError", "Nota inválida: 42").
func NewError(name, msg string) error {
	if name == "" {
		name = "Error"
	}
	return &ThrownError{Kind: KindCustom, Name: name, Message: msg}
}

// Classify maps an uncaught error to its kind, class name and message.
// Unhandled rejections are classified by their reason. Errors that are not
// thrown errors (including recovered panics) are KindUnknown.
func Classify(err error) (kind ErrorKind, name, message string) {
	var ur *eventloop.UnhandledRejectionError
	if errors.As(err, &ur) && ur.Reason != nil {
		err = ur.Reason
	}

	var te *ThrownError
	if errors.As(err, &te) {
		return te.Kind, te.Name, te.Message
	}

	var ae *eventloop.AggregateError
	if errors.As(err, &ae) {
		return KindCustom, "AggregateError", ae.Error()
	}

	return KindUnknown, "", err.Error()
}
