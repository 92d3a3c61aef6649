// Package runner executes one snippet in isolation and captures what it does.
//
// Every execution gets a fresh event loop, sink and Env. The loop runs on its
// own goroutine while the runner waits for one of three things:
//
//   - the loop finishing (all deferred work settled, or an uncaught error)
//   - the run context being cancelled, which yields a Cancelled failure
//   - the wall-clock watchdog, which catches bodies that never yield
//
// Abandoned executions keep running until they notice their cancelled
// context, but their sink is sealed so nothing they write reaches a result.
package runner
