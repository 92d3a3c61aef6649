package eventloop

import (
	"context"
	"fmt"
	"time"
)

// Options configures a Loop.
type Options struct {
	// Clock supplies loop time. Defaults to a fresh WallClock.
	Clock Clock

	// Deadline bounds loop time. Timers due after it are never fired.
	// Zero means no deadline.
	Deadline time.Duration

	// Restricted forbids scheduling microtasks and timers. Used for snippets
	// that declare they do no deferred work.
	Restricted bool
}

// Loop is a single-threaded, two-tier task scheduler.
type Loop struct {
	clock      Clock
	deadline   time.Duration
	restricted bool

	origin time.Duration
	micro  taskQueue
	timers *timerQueue
	active map[TimerID]*timer
	nextID TimerID
	seq    uint64

	// rejected promises waiting for the next checkpoint to see whether a
	// handler got attached.
	rejections []*Promise
}

// New creates an idle loop.
func New(opts Options) *Loop {
	clock := opts.Clock
	if clock == nil {
		clock = NewWallClock()
	}
	return &Loop{
		clock:      clock,
		deadline:   opts.Deadline,
		restricted: opts.Restricted,
		timers:     newTimerQueue(),
		active:     make(map[TimerID]*timer),
	}
}

// Now returns loop time: clock time elapsed since Run started.
func (l *Loop) Now() time.Duration {
	return l.clock.Now() - l.origin
}

// Deadline returns the configured deadline (zero if none).
func (l *Loop) Deadline() time.Duration {
	return l.deadline
}

// QueueMicrotask schedules t on the immediate tier.
func (l *Loop) QueueMicrotask(t Task) {
	l.checkAllowed()
	l.micro.push(t)
}

// SetTimeout schedules t to run once, delay after now.
// Negative delays are treated as zero.
func (l *Loop) SetTimeout(delay time.Duration, t Task) TimerID {
	return l.addTimer(delay, 0, t)
}

// SetInterval schedules t to run every interval until cleared.
// Intervals shorter than one millisecond are raised to one millisecond.
func (l *Loop) SetInterval(interval time.Duration, t Task) TimerID {
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	return l.addTimer(interval, interval, t)
}

// ClearTimer cancels a pending timeout or interval.
// Clearing an unknown or already-fired timer is a no-op.
func (l *Loop) ClearTimer(id TimerID) {
	if t, ok := l.active[id]; ok {
		t.cleared = true
		delete(l.active, id)
	}
}

// Pending returns the number of queued microtasks and live timers.
func (l *Loop) Pending() int {
	return l.micro.Len() + len(l.active)
}

func (l *Loop) addTimer(delay, interval time.Duration, fn Task) TimerID {
	l.checkAllowed()
	if delay < 0 {
		delay = 0
	}

	l.nextID++
	l.seq++
	t := &timer{
		id:       l.nextID,
		due:      l.Now() + delay,
		seq:      l.seq,
		interval: interval,
		fn:       fn,
	}
	l.active[t.id] = t
	l.timers.push(t)
	return t.id
}

func (l *Loop) checkAllowed() {
	if l.restricted {
		panic(ErrDeferredDisallowed)
	}
}

// Run executes main, then drives both tiers until no work is left.
//
// Scheduling order:
//  1. main runs synchronously.
//  2. All microtasks are drained (including ones queued while draining).
//  3. Rejections still unhandled after the drain terminate the run.
//  4. The earliest timer fires, then back to 2.
//
// Returns nil once both tiers are empty, the first uncaught task error,
// an UnhandledRejectionError, ErrTimeout when the next timer is due past
// the deadline, or ErrCancelled when ctx is done.
func (l *Loop) Run(ctx context.Context, main Task) error {
	l.origin = l.clock.Now()

	if err := l.call(ctx, main); err != nil {
		return err
	}

	for {
		if err := l.drainMicrotasks(ctx); err != nil {
			return err
		}

		if err := l.checkRejections(); err != nil {
			return err
		}

		next, ok := l.timers.peek()
		if !ok {
			return nil
		}

		if l.deadline > 0 && next.due > l.deadline {
			return fmt.Errorf("%w: timer %d due at %s, deadline %s (%d pending)",
				ErrTimeout, next.id, next.due, l.deadline, l.Pending())
		}

		if wait := next.due - l.Now(); wait > 0 {
			if err := l.clock.Sleep(ctx, wait); err != nil {
				return cancelled(err)
			}
		}

		l.timers.pop()
		if next.interval > 0 {
			// Re-arm before running so the callback can clear itself.
			l.seq++
			next.due += next.interval
			next.seq = l.seq
			l.timers.push(next)
		} else {
			delete(l.active, next.id)
		}

		if err := l.call(ctx, next.fn); err != nil {
			return err
		}
	}
}

func (l *Loop) drainMicrotasks(ctx context.Context) error {
	for {
		t, ok := l.micro.pop()
		if !ok {
			return nil
		}
		if err := l.call(ctx, t); err != nil {
			return err
		}
	}
}

func (l *Loop) checkRejections() error {
	pending := l.rejections
	l.rejections = nil
	for _, p := range pending {
		if !p.handled {
			return &UnhandledRejectionError{Reason: p.reason}
		}
	}
	return nil
}

func (l *Loop) trackRejection(p *Promise) {
	l.rejections = append(l.rejections, p)
}

// call runs one task, converting panics into errors.
func (l *Loop) call(ctx context.Context, t Task) (err error) {
	if cerr := ctx.Err(); cerr != nil {
		return cancelled(cerr)
	}

	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()

	return t()
}
