// Package script turns Go source embedded in registry files into snippet
// bodies, interpreted by yaegi.
//
// A source defines
//
//	func Run(env *lesson.Env) error
//
// and may import the "snipcheck/lesson" package plus a small allowlist of
// pure standard library packages. The package clause and the lesson import
// are added when missing. Every execution builds a fresh interpreter, so
// package-level variables never survive between executions.
//
// fmt.Print* output is captured as stdout records, one record per line, in
// addition to env.Log.
package script
