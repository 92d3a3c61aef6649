// Package eventloop implements the single-threaded cooperative scheduler
// that every snippet runs on.
//
// ARCHITECTURE:
//
// Two priority tiers:
//   - Microtasks: immediate continuations (promise reactions, QueueMicrotask).
//     FIFO, drained completely after the main task and after every timer.
//   - Timers: deferred continuations ordered by (due, sequence). At most one
//     timer fires between microtask checkpoints.
//
// This reproduces the ordering a lesson expects from
//
//	log("A"); setTimeout(log "B", 0); Promise.resolve().then(log "C"); log("D")
//
// which prints A, D, C, B.
//
// Time:
// The loop never reads wall time directly. It asks a Clock, which is either a
// WallClock (real, context-abortable sleeps) or a VirtualClock (advances
// instantly, fully deterministic).
//
// Deadline:
// A timer whose due time is past the loop deadline is never fired; Run
// returns ErrTimeout instead. Work due exactly at the deadline still runs.
//
// Thread-safety:
// A Loop belongs to the goroutine that calls Run. Tasks, timers and promises
// must only be touched from inside that goroutine.
package eventloop
