package snippet

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/snipcheck/internal/eventloop"
)

// Sink receives the records of one execution.
type Sink interface {
	Write(r Record)
}

// Env is a snippet body's only view of the world: console writes go to the
// execution's Sink, scheduling goes to the execution's loop.
//
// An Env is single-use and must not be shared between executions.
type Env struct {
	ctx  context.Context
	loop *eventloop.Loop
	sink Sink

	finish []func()
}

// NewEnv binds an Env to one execution.
func NewEnv(ctx context.Context, loop *eventloop.Loop, sink Sink) *Env {
	return &Env{ctx: ctx, loop: loop, sink: sink}
}

// Context is cancelled when the execution is abandoned (timeout or run
// cancellation). Bodies that block outside the loop should watch it.
func (e *Env) Context() context.Context {
	return e.ctx
}

// Now returns loop time elapsed since the body started.
func (e *Env) Now() time.Duration {
	return e.loop.Now()
}

// OnFinish registers fn to run once the execution's loop has stopped.
func (e *Env) OnFinish(fn func()) {
	e.finish = append(e.finish, fn)
}

// Finish runs the OnFinish callbacks in registration order. It is called by
// whoever drives the loop, from the loop's goroutine.
func (e *Env) Finish() {
	fns := e.finish
	e.finish = nil
	for _, fn := range fns {
		fn()
	}
}

// Log writes its arguments to stdout, console-style.
func (e *Env) Log(args ...any) {
	e.sink.Write(Record{Channel: Stdout, Text: Format(args...)})
}

// Logf writes a formatted line to stdout.
func (e *Env) Logf(format string, args ...any) {
	e.sink.Write(Record{Channel: Stdout, Text: fmt.Sprintf(format, args...)})
}

// Error writes its arguments to stderr, console-style.
func (e *Env) Error(args ...any) {
	e.sink.Write(Record{Channel: Stderr, Text: Format(args...)})
}

// QueueMicrotask schedules fn on the immediate tier.
func (e *Env) QueueMicrotask(fn func() error) {
	e.loop.QueueMicrotask(fn)
}

// SetTimeout schedules fn once, after delay of loop time.
func (e *Env) SetTimeout(delay time.Duration, fn func() error) eventloop.TimerID {
	return e.loop.SetTimeout(delay, fn)
}

// SetInterval schedules fn every interval until cleared.
func (e *Env) SetInterval(interval time.Duration, fn func() error) eventloop.TimerID {
	return e.loop.SetInterval(interval, fn)
}

// ClearTimer cancels a pending timeout or interval.
func (e *Env) ClearTimer(id eventloop.TimerID) {
	e.loop.ClearTimer(id)
}

// NewPromise creates a promise settled by executor.
func (e *Env) NewPromise(executor func(resolve func(any), reject func(error))) *eventloop.Promise {
	return e.loop.NewPromise(executor)
}

// Resolve returns a promise fulfilled with v (or v itself if it is a promise).
func (e *Env) Resolve(v any) *eventloop.Promise {
	return e.loop.Resolve(v)
}

// Reject returns a promise rejected with err.
func (e *Env) Reject(err error) *eventloop.Promise {
	return e.loop.Reject(err)
}

// Sleep returns a promise fulfilled with v after d.
func (e *Env) Sleep(d time.Duration, v any) *eventloop.Promise {
	return e.loop.Sleep(d, v)
}

func (e *Env) All(inputs ...any) *eventloop.Promise        { return e.loop.All(inputs...) }
func (e *Env) AllSettled(inputs ...any) *eventloop.Promise { return e.loop.AllSettled(inputs...) }
func (e *Env) Race(inputs ...any) *eventloop.Promise       { return e.loop.Race(inputs...) }
func (e *Env) Any(inputs ...any) *eventloop.Promise        { return e.loop.Any(inputs...) }
