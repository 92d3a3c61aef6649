package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/roach88/snipcheck/internal/report"
	"github.com/roach88/snipcheck/internal/snippet"
	"github.com/roach88/snipcheck/internal/store"
	"github.com/roach88/snipcheck/internal/verify"
)

func mark(v verify.Verdict) string {
	if v.Passed() {
		return "✓"
	}
	return "✗"
}

// renderVerdicts writes one line per verdict, with the message and an
// indented diff under each failure.
func renderVerdicts(w io.Writer, verdicts []verify.Verdict) {
	for _, v := range verdicts {
		if v.Passed() {
			fmt.Fprintf(w, "%s %s\n", mark(v), v.SnippetID)
			continue
		}
		fmt.Fprintf(w, "%s %s [%s]\n", mark(v), v.SnippetID, v.Class)
		if v.Message != "" {
			fmt.Fprintf(w, "    %s\n", v.Message)
		}
		if v.Diff != "" {
			for _, line := range strings.Split(v.Diff, "\n") {
				fmt.Fprintf(w, "      %s\n", line)
			}
		}
	}
}

// renderSummary writes the text report of a run.
func renderSummary(w io.Writer, sum report.Summary, runID string) {
	renderVerdicts(w, sum.Verdicts)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Summary (%s): %d passed, %d failed, %d total\n", sum.Registry, sum.Passed, sum.Failed, sum.Total)

	if len(sum.Classes) > 0 {
		classes := make([]string, 0, len(sum.Classes))
		for c := range sum.Classes {
			classes = append(classes, c)
		}
		sort.Strings(classes)
		parts := make([]string, len(classes))
		for i, c := range classes {
			parts[i] = fmt.Sprintf("%s=%d", c, sum.Classes[c])
		}
		fmt.Fprintf(w, "Failures by class: %s\n", strings.Join(parts, ", "))
	}
	if len(sum.Failing) > 0 {
		fmt.Fprintf(w, "Failing: %s\n", strings.Join(sum.Failing, ", "))
	}
	if runID != "" {
		fmt.Fprintf(w, "Recorded as run %s\n", runID)
	}
	if sum.OK() {
		fmt.Fprintln(w, "✓ All snippets passed")
	}
}

// renderProblems writes a rejected registry's problems.
func renderProblems(w io.Writer, re *snippet.RegistryError) {
	fmt.Fprintf(w, "✗ Registry %q is invalid\n", re.Registry)
	fmt.Fprintln(w)
	for _, p := range re.Problems {
		fmt.Fprintf(w, "  %s\n", p)
	}
}

// renderRuns writes a table of stored runs, newest first.
func renderRuns(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	fmt.Fprintf(w, "%-36s  %-16s  %-20s  %6s  %6s  %4s\n", "RUN", "REGISTRY", "STARTED", "PASSED", "FAILED", "EXIT")
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-16s  %-20s  %6d  %6d  %4d\n",
			r.ID, r.Registry, r.StartedAt.UTC().Format(time.DateTime), r.Passed, r.Failed, r.ExitCode)
	}
}

// renderRun writes one stored run with its verdicts.
func renderRun(w io.Writer, run store.Run, verdicts []verify.Verdict) {
	fmt.Fprintf(w, "Run %s (%s)\n", run.ID, run.Registry)
	fmt.Fprintf(w, "Started:  %s\n", run.StartedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "Duration: %s\n", run.FinishedAt.Sub(run.StartedAt))
	if s := run.Settings; s != (store.Settings{}) {
		fmt.Fprintf(w, "Settings: clock=%s strict=%t repeat=%d", s.Clock, s.Strict, s.Repeat)
		if s.Timeout != "" {
			fmt.Fprintf(w, " timeout=%s", s.Timeout)
		}
		if s.Filter != "" {
			fmt.Fprintf(w, " filter=%s", s.Filter)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
	renderVerdicts(w, verdicts)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Summary: %d passed, %d failed, %d total (exit %d)\n", run.Passed, run.Failed, run.Total, run.ExitCode)
}
