// Package snippet defines the lesson snippet model: the snippet itself, its
// expected output, the records captured while it runs, the errors a body can
// throw, and the immutable Registry snippets are loaded into.
//
// A snippet body only ever talks to the outside world through an Env. The
// Env forwards console writes to a per-execution Sink and scheduling calls to
// a per-execution eventloop.Loop, so two executions never share state.
package snippet
