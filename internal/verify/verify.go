// Package verify compares an execution result against a snippet's expected
// output, positionally.
package verify

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/snipcheck/internal/runner"
	"github.com/roach88/snipcheck/internal/snippet"
)

// Status is the outcome of verifying one snippet.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
)

// Class says why a snippet failed.
type Class string

const (
	// ClassMismatch: captured output diverged from the expected output.
	ClassMismatch Class = "verification_mismatch"
	// ClassExecution: the snippet threw or rejected where output was expected,
	// or threw an error no expectation accounts for.
	ClassExecution Class = "execution_error"
	// ClassTimeout: deferred work did not settle in time.
	ClassTimeout Class = "timeout"
	// ClassCancelled: the run was cancelled before the snippet finished.
	ClassCancelled Class = "cancelled"
)

// Verdict is the verification report entry of one snippet.
type Verdict struct {
	SnippetID string `json:"id"`
	Status    Status `json:"status"`
	Class     Class  `json:"class,omitempty"`

	// Index is the first mismatching record position, -1 when the failure
	// is not positional (or the snippet passed).
	Index int `json:"index"`

	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
	Message  string `json:"message,omitempty"`

	// Diff is a unified diff of the expected and captured sequences.
	Diff string `json:"diff,omitempty"`
}

// Passed reports whether the verdict is a pass.
func (v Verdict) Passed() bool {
	return v.Status == StatusPass
}

const missing = "<nothing>"

// Verify applies the positional policy:
//
//   - Timeout and Cancelled results always fail with their own class.
//   - The Nth record must match the Nth expectation (channel, kind if set,
//     exact text or anchored pattern, both sides NFC-normalized).
//   - An error record past the last expectation always fails.
//   - Other extra records fail only when s.Strict is set.
func Verify(res *runner.Result, s snippet.Snippet) Verdict {
	v := Verdict{SnippetID: s.ID, Status: StatusPass, Index: -1}
	records := res.Records

	if f := res.Failure; f != nil {
		switch f.Kind {
		case snippet.KindTimeout:
			return fail(v, ClassTimeout, -1, "", "", f.Message, s.Expected, records)
		case snippet.KindCancelled:
			return fail(v, ClassCancelled, -1, "", "", f.Message, s.Expected, records)
		}
	}

	// Position of the error record, if the execution failed.
	errIdx := -1
	if res.Failure != nil && len(records) > 0 {
		errIdx = len(records) - 1
	}

	for i, want := range s.Expected {
		if i >= len(records) {
			return fail(v, ClassMismatch, i, want.String(), missing,
				fmt.Sprintf("record %d: expected %s, got nothing", i, want), s.Expected, records)
		}

		got := records[i]
		if Match(want, got) {
			continue
		}

		class := ClassMismatch
		if errIdx >= 0 && errIdx <= i {
			class = ClassExecution
		}
		return fail(v, class, i, want.String(), got.String(),
			fmt.Sprintf("record %d: expected %s, got %s", i, want, got), s.Expected, records)
	}

	if errIdx >= len(s.Expected) {
		got := records[errIdx]
		return fail(v, ClassExecution, errIdx, missing, got.String(),
			fmt.Sprintf("unexpected error at record %d: %s", errIdx, got), s.Expected, records)
	}

	if s.Strict && len(records) > len(s.Expected) {
		i := len(s.Expected)
		got := records[i]
		return fail(v, ClassMismatch, i, missing, got.String(),
			fmt.Sprintf("strict: unexpected extra record %d: %s", i, got), s.Expected, records)
	}

	return v
}

// Match reports whether a captured record satisfies an expectation.
func Match(want snippet.ExpectedOutput, got snippet.Record) bool {
	if want.Channel != got.Channel {
		return false
	}
	if want.Kind != "" && want.Kind != got.Kind {
		return false
	}

	text := norm.NFC.String(got.Text)
	if !want.IsPattern() {
		return norm.NFC.String(want.Text) == text
	}

	want.Pattern = norm.NFC.String(want.Pattern)
	re, err := want.Regexp()
	if err != nil {
		return false
	}
	return re.MatchString(text)
}

func fail(v Verdict, class Class, idx int, expected, actual, msg string,
	want []snippet.ExpectedOutput, got []snippet.Record) Verdict {
	v.Status = StatusFail
	v.Class = class
	v.Index = idx
	v.Expected = expected
	v.Actual = actual
	v.Message = msg
	v.Diff = Diff(want, got)
	return v
}

// Diff renders a unified diff between expected and captured records, one
// line per record. Returns "" when both render identically.
func Diff(want []snippet.ExpectedOutput, got []snippet.Record) string {
	a := make([]string, len(want))
	for i, w := range want {
		a[i] = w.String() + "\n"
	}
	b := make([]string, len(got))
	for i, g := range got {
		b[i] = g.String() + "\n"
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        a,
		B:        b,
		FromFile: "expected",
		ToFile:   "actual",
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return strings.TrimRight(diff, "\n")
}
