package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/snipcheck/internal/eventloop"
	"github.com/roach88/snipcheck/internal/snippet"
)

const (
	// DefaultTimeout bounds a snippet's deferred work when neither the
	// snippet nor the caller chooses one.
	DefaultTimeout = 2 * time.Second

	// DefaultGrace is how long past its timeout a body that never yields
	// may keep its goroutine before the watchdog gives up on it.
	DefaultGrace = 250 * time.Millisecond
)

// Options configures a Runner.
type Options struct {
	// Timeout is the default per-snippet bound. Zero means DefaultTimeout.
	Timeout time.Duration

	// Grace is added to the timeout for the wall-clock watchdog.
	// Zero means DefaultGrace.
	Grace time.Duration

	// Override, when positive, replaces every snippet's timeout.
	Override time.Duration

	// Clock selects loop time: wall (real sleeps) or virtual (instant).
	Clock eventloop.ClockKind

	// Logger receives per-execution debug logs. Nil discards them.
	Logger *slog.Logger
}

// Failure is the terminal failure of an execution.
type Failure struct {
	Kind    snippet.ErrorKind `json:"kind"`
	Name    string            `json:"name,omitempty"`
	Message string            `json:"message"`
}

// Result is everything observed while running one snippet.
type Result struct {
	SnippetID string           `json:"snippet_id"`
	Records   []snippet.Record `json:"records"`
	Failure   *Failure         `json:"failure,omitempty"`

	// Elapsed is loop time for executions that finished, wall time for
	// abandoned ones.
	Elapsed time.Duration `json:"elapsed"`
}

// Runner executes snippets one at a time. It holds configuration only, so
// one Runner may be reused across runs.
type Runner struct {
	opts   Options
	logger *slog.Logger
}

// New validates opts and returns a Runner.
func New(opts Options) (*Runner, error) {
	if opts.Timeout < 0 || opts.Grace < 0 || opts.Override < 0 {
		return nil, fmt.Errorf("timeouts must not be negative")
	}
	if _, err := eventloop.NewClock(opts.Clock); err != nil {
		return nil, err
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Grace == 0 {
		opts.Grace = DefaultGrace
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{opts: opts, logger: logger}, nil
}

// TimeoutFor returns the bound applied to s: the override if set, else the
// snippet's own timeout, else the runner default.
func (r *Runner) TimeoutFor(s snippet.Snippet) time.Duration {
	switch {
	case r.opts.Override > 0:
		return r.opts.Override
	case s.Timeout > 0:
		return s.Timeout
	default:
		return r.opts.Timeout
	}
}

// Run executes s and returns its result. It never returns nil and never
// panics because of the body.
func (r *Runner) Run(ctx context.Context, s snippet.Snippet) *Result {
	timeout := r.TimeoutFor(s)
	res := &Result{SnippetID: s.ID}

	if err := ctx.Err(); err != nil {
		res.Failure = cancelledFailure(err)
		return res
	}

	// Validated in New.
	clock, _ := eventloop.NewClock(r.opts.Clock)
	loop := eventloop.New(eventloop.Options{
		Clock:      clock,
		Deadline:   timeout,
		Restricted: !s.Deferred,
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sink := &captureSink{}
	env := snippet.NewEnv(runCtx, loop, sink)

	done := make(chan error, 1)
	start := time.Now()
	go func() {
		done <- execute(runCtx, loop, env, s)
	}()

	watchdog := time.NewTimer(timeout + r.opts.Grace)
	defer watchdog.Stop()

	var err error
	select {
	case err = <-done:
		res.Elapsed = loop.Now()
	case <-ctx.Done():
		err = fmt.Errorf("%w: %w", eventloop.ErrCancelled, ctx.Err())
		res.Elapsed = time.Since(start)
	case <-watchdog.C:
		err = fmt.Errorf("%w: body did not yield within %s", eventloop.ErrTimeout, timeout+r.opts.Grace)
		res.Elapsed = time.Since(start)
	}
	res.Records = sink.seal()
	cancel()

	res.Failure = r.failureFor(err, timeout)
	if res.Failure != nil && res.Failure.Kind != snippet.KindTimeout && res.Failure.Kind != snippet.KindCancelled {
		res.Records = append(res.Records, snippet.Record{
			Channel: snippet.ErrorChannel,
			Text:    res.Failure.Message,
			Kind:    res.Failure.Kind,
			Name:    res.Failure.Name,
		})
	}

	r.logger.Debug("snippet executed",
		"id", s.ID,
		"records", len(res.Records),
		"elapsed", res.Elapsed,
		"failed", res.Failure != nil,
	)
	return res
}

// execute builds the body (when s has a Setup) and drives it on loop. Setup
// runs first so loop time, and with it the deadline, starts at the body's
// entry.
func execute(ctx context.Context, loop *eventloop.Loop, env *snippet.Env, s snippet.Snippet) (err error) {
	defer env.Finish()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("setup panicked: %v", r)
		}
	}()

	body := s.Body
	if s.Setup != nil {
		body, err = s.Setup(env)
		if err != nil {
			return err
		}
	}
	return loop.Run(ctx, func() error { return body(env) })
}

func (r *Runner) failureFor(err error, timeout time.Duration) *Failure {
	switch {
	case err == nil:
		return nil
	case eventloop.IsCancelled(err):
		return cancelledFailure(err)
	case eventloop.IsTimeout(err):
		r.logger.Debug("snippet timed out", "timeout", timeout, "error", err)
		return &Failure{
			Kind:    snippet.KindTimeout,
			Name:    "TimeoutError",
			Message: fmt.Sprintf("deferred work did not settle within %s", timeout),
		}
	default:
		kind, name, msg := snippet.Classify(err)
		return &Failure{Kind: kind, Name: name, Message: msg}
	}
}

func cancelledFailure(error) *Failure {
	return &Failure{
		Kind:    snippet.KindCancelled,
		Name:    "Cancelled",
		Message: "run cancelled before the snippet settled",
	}
}
