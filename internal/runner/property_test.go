package runner

import (
	"context"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/roach88/snipcheck/internal/snippet"
)

// Synchronous writes are captured exactly in emission order, and running the
// same snippet twice captures the same thing.
func TestCaptureOrder_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	r, err := New(Options{Clock: "virtual"})
	if err != nil {
		t.Fatal(err)
	}

	writesSnippet := func(lines []string, toStderr []bool) snippet.Snippet {
		return snippet.Snippet{
			ID: "writes",
			Body: func(env *snippet.Env) error {
				for i, l := range lines {
					if i < len(toStderr) && toStderr[i] {
						env.Error(l)
					} else {
						env.Log(l)
					}
				}
				return nil
			},
		}
	}

	properties.Property("capture order equals emission order", prop.ForAll(
		func(lines []string, toStderr []bool) bool {
			res := r.Run(context.Background(), writesSnippet(lines, toStderr))
			if res.Failure != nil || len(res.Records) != len(lines) {
				return false
			}
			for i, rec := range res.Records {
				want := snippet.Stdout
				if i < len(toStderr) && toStderr[i] {
					want = snippet.Stderr
				}
				if rec.Channel != want || rec.Text != lines[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.Bool()),
	))

	properties.Property("repeated runs capture identical records", prop.ForAll(
		func(lines []string, toStderr []bool) bool {
			s := writesSnippet(lines, toStderr)
			a := r.Run(context.Background(), s)
			b := r.Run(context.Background(), s)
			return reflect.DeepEqual(a.Records, b.Records) && reflect.DeepEqual(a.Failure, b.Failure)
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}
