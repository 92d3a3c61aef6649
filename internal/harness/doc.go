// Package harness runs a snippet registry end to end: execute each snippet,
// verify its result, and fold the verdicts into a summary.
//
// # Scheduling
//
// Snippets run sequentially in registry order; snippet N+1 starts only after
// snippet N's result is final. Each execution gets a fresh loop, sink and
// Env, so no state crosses snippets.
//
// # Cancellation
//
// Cancelling the run context aborts the current snippet's wait immediately
// and marks it cancelled. Snippets that never started are reported as
// cancelled too, so the summary always enumerates every snippet. Verdicts
// of completed snippets are kept.
//
// # Repeat
//
// With Repeat > 1 every snippet is executed that many times back to back.
// A snippet whose verdict differs between executions fails as
// nondeterministic: the same snippet in the same registry load must always
// produce the same verdict.
package harness
