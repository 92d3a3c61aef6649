package snippet

import (
	"fmt"
	"regexp"
	"slices"
	"time"
)

// Channel tags a captured or expected output record.
type Channel string

const (
	// Stdout receives Env.Log writes.
	Stdout Channel = "stdout"
	// Stderr receives Env.Error writes.
	Stderr Channel = "stderr"
	// ErrorChannel holds the record of an uncaught error or unhandled rejection.
	ErrorChannel Channel = "error"
)

// Valid reports whether c is one of the known channels.
func (c Channel) Valid() bool {
	switch c {
	case Stdout, Stderr, ErrorChannel:
		return true
	}
	return false
}

// ErrorKind classifies a terminal failure.
type ErrorKind string

const (
	KindTypeError  ErrorKind = "TypeError"
	KindRangeError ErrorKind = "RangeError"
	KindCustom     ErrorKind = "Custom"
	KindUnknown    ErrorKind = "Unknown"
	KindTimeout    ErrorKind = "Timeout"
	KindCancelled  ErrorKind = "Cancelled"
)

// Valid reports whether k is a kind an expectation may name.
// Timeout and Cancelled are never captured as records.
func (k ErrorKind) Valid() bool {
	switch k {
	case KindTypeError, KindRangeError, KindCustom, KindUnknown:
		return true
	}
	return false
}

// Record is one captured output, in emission order.
type Record struct {
	Channel Channel `json:"channel"`
	Text    string  `json:"text"`

	// Kind and Name are set on error records only.
	Kind ErrorKind `json:"kind,omitempty"`
	Name string    `json:"name,omitempty"`
}

// String renders the record as a single diff line.
func (r Record) String() string {
	if r.Channel == ErrorChannel && r.Kind != "" {
		return fmt.Sprintf("%s[%s]: %s", r.Channel, r.Kind, r.Text)
	}
	return fmt.Sprintf("%s: %s", r.Channel, r.Text)
}

// ExpectedOutput is one entry of a snippet's expected output sequence.
//
// Exactly one of Text and Pattern is meaningful: a non-empty Pattern is a
// regular expression that must match the whole record text, otherwise Text
// must equal it.
type ExpectedOutput struct {
	Channel Channel `json:"channel"`
	Text    string  `json:"text,omitempty"`
	Pattern string  `json:"pattern,omitempty"`

	// Kind optionally constrains error records.
	Kind ErrorKind `json:"kind,omitempty"`
}

// IsPattern reports whether the expectation matches by regular expression.
func (e ExpectedOutput) IsPattern() bool {
	return e.Pattern != ""
}

// Regexp compiles Pattern anchored at both ends.
func (e ExpectedOutput) Regexp() (*regexp.Regexp, error) {
	return regexp.Compile(`^(?:` + e.Pattern + `)$`)
}

// String renders the expectation as a single diff line.
func (e ExpectedOutput) String() string {
	text := e.Text
	if e.IsPattern() {
		text = "/" + e.Pattern + "/"
	}
	if e.Channel == ErrorChannel && e.Kind != "" {
		return fmt.Sprintf("%s[%s]: %s", e.Channel, e.Kind, text)
	}
	return fmt.Sprintf("%s: %s", e.Channel, text)
}

// Body is the executable part of a snippet. Returning a non-nil error is
// the same as throwing it: the snippet stops and the error is captured.
type Body func(env *Env) error

// Setup builds the Body for one execution. It runs before loop time starts,
// so its cost never counts against the snippet's timeout. Returned errors
// fail the execution like a thrown error.
type Setup func(env *Env) (Body, error)

// Snippet is one labelled lesson example with its declared behaviour.
type Snippet struct {
	// ID uniquely identifies the snippet within its registry.
	ID string

	// Title is an optional human-readable label.
	Title string

	// Body is run once per execution with a fresh Env.
	Body Body

	// Setup, when set, replaces Body: it is called once per execution and
	// the Body it returns is run instead.
	Setup Setup

	// Deferred declares that the body may schedule deferred work (timers,
	// microtasks, promise reactions). Undeclared deferred work fails the
	// snippet with ErrUndeclaredDeferred.
	Deferred bool

	// Expected is the ordered output the body must produce.
	Expected []ExpectedOutput

	// Strict makes captured records beyond Expected a failure.
	Strict bool

	// Timeout bounds the snippet's deferred work. Zero uses the runner default.
	Timeout time.Duration
}

func (s Snippet) clone() Snippet {
	s.Expected = slices.Clone(s.Expected)
	return s
}
