package eventloop

import (
	"time"

	"github.com/emirpasic/gods/queues/priorityqueue"
)

// Task is a unit of work scheduled on the loop.
// A non-nil error is uncaught and terminates the run.
type Task func() error

// taskQueue is the FIFO backing the microtask tier.
//
// The queue is unbounded so a reaction chain can enqueue arbitrarily many
// follow-up reactions while it is being drained.
type taskQueue struct {
	tasks []Task
}

// push adds a task to the back of the queue.
func (q *taskQueue) push(t Task) {
	q.tasks = append(q.tasks, t)
}

// pop removes and returns the front task.
// Returns (nil, false) if the queue is empty.
func (q *taskQueue) pop() (Task, bool) {
	if len(q.tasks) == 0 {
		return nil, false
	}

	t := q.tasks[0]

	// Nil out the slot so the closure (and whatever it captured) can be
	// collected before the backing array is reallocated.
	q.tasks[0] = nil

	if len(q.tasks) == 1 {
		q.tasks = q.tasks[:0]
	} else {
		q.tasks = q.tasks[1:]
	}

	return t, true
}

// Len returns the number of queued tasks.
func (q *taskQueue) Len() int {
	return len(q.tasks)
}

// TimerID identifies a scheduled timer for ClearTimer.
type TimerID int64

// timer is one entry of the deferred tier.
type timer struct {
	id       TimerID
	due      time.Duration // loop time at which the timer becomes runnable
	seq      uint64        // tie-breaker: FIFO among timers with equal due
	interval time.Duration // > 0 for repeating timers
	fn       Task
	cleared  bool
}

// timerQueue orders timers by (due, seq).
// Cleared timers stay in the heap and are skipped when they surface.
type timerQueue struct {
	heap *priorityqueue.Queue
}

func newTimerQueue() *timerQueue {
	return &timerQueue{heap: priorityqueue.NewWith(compareTimers)}
}

func compareTimers(a, b interface{}) int {
	ta, tb := a.(*timer), b.(*timer)
	switch {
	case ta.due < tb.due:
		return -1
	case ta.due > tb.due:
		return 1
	case ta.seq < tb.seq:
		return -1
	case ta.seq > tb.seq:
		return 1
	default:
		return 0
	}
}

func (q *timerQueue) push(t *timer) {
	q.heap.Enqueue(t)
}

// peek returns the earliest live timer without removing it.
func (q *timerQueue) peek() (*timer, bool) {
	for {
		v, ok := q.heap.Peek()
		if !ok {
			return nil, false
		}
		t := v.(*timer)
		if !t.cleared {
			return t, true
		}
		q.heap.Dequeue()
	}
}

// pop removes and returns the earliest live timer.
func (q *timerQueue) pop() (*timer, bool) {
	t, ok := q.peek()
	if !ok {
		return nil, false
	}
	q.heap.Dequeue()
	return t, true
}

// Len returns the number of heap entries, including cleared timers not yet
// skipped.
func (q *timerQueue) Len() int {
	return q.heap.Size()
}
