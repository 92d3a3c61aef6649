// Package lessons is the built-in catalogue: Go renditions of the tutorial
// examples, each with the output the tutorial promises.
//
// Every snippet in the catalogue is expected to pass; the catalogue doubles
// as an end-to-end check of the runner and verifier.
package lessons

import (
	"github.com/roach88/snipcheck/internal/snippet"
)

// Name is the registry name of the catalogue.
const Name = "lessons"

// Catalogue returns a fresh registry holding every built-in lesson, basics
// first, then the asynchronous ones.
func Catalogue() *snippet.Registry {
	var all []snippet.Snippet
	all = append(all, basics()...)
	all = append(all, async()...)
	return snippet.MustRegistry(Name, all...)
}

func out(text string) snippet.ExpectedOutput {
	return snippet.ExpectedOutput{Channel: snippet.Stdout, Text: text}
}

func errOut(text string) snippet.ExpectedOutput {
	return snippet.ExpectedOutput{Channel: snippet.Stderr, Text: text}
}

func thrown(kind snippet.ErrorKind, text string) snippet.ExpectedOutput {
	return snippet.ExpectedOutput{Channel: snippet.ErrorChannel, Kind: kind, Text: text}
}

func expect(e ...snippet.ExpectedOutput) []snippet.ExpectedOutput {
	return e
}
