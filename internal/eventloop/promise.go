package eventloop

import (
	"errors"
	"time"
)

// State is the settlement state of a Promise.
type State int

const (
	// Pending promises have not settled yet.
	Pending State = iota
	// Fulfilled promises settled with a value.
	Fulfilled
	// Rejected promises settled with a reason.
	Rejected
)

// String returns the lower-case state name used in settlement reports.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// errSelfResolution is the rejection reason of a promise resolved with itself.
var errSelfResolution = errors.New("promise resolved with itself")

// Promise is a deferred value settled on the loop's microtask tier.
//
// Reactions registered with Then always run as microtasks, never
// synchronously, even when the promise is already settled.
type Promise struct {
	loop      *Loop
	state     State
	value     any
	reason    error
	locked    bool // resolved with another promise and waiting on it
	handled   bool // a rejection handler (or any reaction) is attached
	reactions []reaction
}

type reaction struct {
	onFulfilled func(any) (any, error)
	onRejected  func(error) (any, error)
	child       *Promise
}

// NewPromise creates a promise and runs executor synchronously with its
// resolving functions. A panic in executor rejects the promise.
func (l *Loop) NewPromise(executor func(resolve func(any), reject func(error))) *Promise {
	p := &Promise{loop: l}

	func() {
		defer func() {
			if r := recover(); r != nil {
				if err, ok := r.(error); ok && errors.Is(err, ErrDeferredDisallowed) {
					panic(r)
				}
				p.reject(&PanicError{Value: r})
			}
		}()
		executor(p.resolve, p.reject)
	}()

	return p
}

// Resolve returns v if it is already a promise, otherwise a promise
// fulfilled with v.
func (l *Loop) Resolve(v any) *Promise {
	if p, ok := v.(*Promise); ok {
		return p
	}
	p := &Promise{loop: l}
	p.resolve(v)
	return p
}

// Reject returns a promise rejected with err.
func (l *Loop) Reject(err error) *Promise {
	p := &Promise{loop: l}
	p.reject(err)
	return p
}

// Sleep returns a promise fulfilled with v after d of loop time.
func (l *Loop) Sleep(d time.Duration, v any) *Promise {
	return l.NewPromise(func(resolve func(any), _ func(error)) {
		l.SetTimeout(d, func() error {
			resolve(v)
			return nil
		})
	})
}

// State returns the current settlement state.
func (p *Promise) State() State {
	return p.state
}

// Value returns the fulfillment value (nil unless fulfilled).
func (p *Promise) Value() any {
	return p.value
}

// Reason returns the rejection reason (nil unless rejected).
func (p *Promise) Reason() error {
	return p.reason
}

// Then registers reactions and returns a promise for their outcome.
//
// A nil onFulfilled passes the value through; a nil onRejected passes the
// reason through. A reaction returning a non-nil error rejects the returned
// promise; returning a *Promise makes the returned promise follow it.
func (p *Promise) Then(onFulfilled func(any) (any, error), onRejected func(error) (any, error)) *Promise {
	child := &Promise{loop: p.loop}
	r := reaction{onFulfilled: onFulfilled, onRejected: onRejected, child: child}
	p.handled = true

	if p.state == Pending {
		p.reactions = append(p.reactions, r)
	} else {
		p.schedule(r)
	}
	return child
}

// Catch registers a rejection handler.
func (p *Promise) Catch(onRejected func(error) (any, error)) *Promise {
	return p.Then(nil, onRejected)
}

// Finally runs fn on either outcome and passes the original outcome through,
// unless fn itself fails.
func (p *Promise) Finally(fn func() error) *Promise {
	return p.Then(
		func(v any) (any, error) {
			if err := fn(); err != nil {
				return nil, err
			}
			return v, nil
		},
		func(reason error) (any, error) {
			if err := fn(); err != nil {
				return nil, err
			}
			return nil, reason
		},
	)
}

func (p *Promise) resolve(v any) {
	if p.state != Pending || p.locked {
		return
	}

	other, ok := v.(*Promise)
	if !ok {
		p.settle(Fulfilled, v, nil)
		return
	}
	if other == p {
		p.settle(Rejected, nil, errSelfResolution)
		return
	}

	// Adopt the other promise's outcome one microtask later.
	p.locked = true
	p.loop.QueueMicrotask(func() error {
		other.Then(
			func(x any) (any, error) {
				p.settle(Fulfilled, x, nil)
				return nil, nil
			},
			func(reason error) (any, error) {
				p.settle(Rejected, nil, reason)
				return nil, nil
			},
		)
		return nil
	})
}

func (p *Promise) reject(reason error) {
	if p.state != Pending || p.locked {
		return
	}
	if reason == nil {
		reason = errors.New("promise rejected with nil reason")
	}
	p.settle(Rejected, nil, reason)
}

func (p *Promise) settle(state State, value any, reason error) {
	if p.state != Pending {
		return
	}
	p.state = state
	p.value = value
	p.reason = reason
	p.locked = false

	reactions := p.reactions
	p.reactions = nil
	for _, r := range reactions {
		p.schedule(r)
	}

	if state == Rejected && !p.handled {
		p.loop.trackRejection(p)
	}
}

func (p *Promise) schedule(r reaction) {
	p.loop.QueueMicrotask(func() error {
		p.runReaction(r)
		return nil
	})
}

func (p *Promise) runReaction(r reaction) {
	var (
		v   any
		err error
	)

	switch p.state {
	case Fulfilled:
		if r.onFulfilled == nil {
			r.child.resolve(p.value)
			return
		}
		v, err = guard(func() (any, error) { return r.onFulfilled(p.value) })
	case Rejected:
		if r.onRejected == nil {
			r.child.reject(p.reason)
			return
		}
		v, err = guard(func() (any, error) { return r.onRejected(p.reason) })
	}

	if err != nil {
		r.child.reject(err)
		return
	}
	r.child.resolve(v)
}

// guard runs a reaction, turning a panic into a rejection reason.
func guard(fn func() (any, error)) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fn()
}
