package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/snipcheck/internal/report"
	"github.com/roach88/snipcheck/internal/runner"
	"github.com/roach88/snipcheck/internal/snippet"
	"github.com/roach88/snipcheck/internal/verify"
)

// Options configures a run.
type Options struct {
	// Runner executes snippets. Nil uses a runner with default options.
	Runner *runner.Runner

	// Strict forces strict verification on every snippet.
	Strict bool

	// Repeat is the number of executions per snippet. Values below 2 run
	// each snippet once.
	Repeat int

	// Logger receives run progress. Nil discards it.
	Logger *slog.Logger

	// Progress, if set, is called with each verdict as soon as it is final.
	Progress func(verify.Verdict)
}

// ErrNilRegistry is returned when Run is given no registry.
var ErrNilRegistry = errors.New("harness: registry is nil")

// harness holds the per-run collaborators.
type harness struct {
	runner *runner.Runner
	logger *slog.Logger
	opts   Options
}

// Run executes every snippet of reg and returns the summary.
//
// The error return is reserved for harness faults (nil registry, invalid
// runner configuration). Snippet failures, timeouts and cancellation are
// reported in the summary, never as an error.
func Run(ctx context.Context, reg *snippet.Registry, opts Options) (report.Summary, error) {
	if reg == nil {
		return report.Summary{}, ErrNilRegistry
	}

	r := opts.Runner
	if r == nil {
		var err error
		if r, err = runner.New(runner.Options{}); err != nil {
			return report.Summary{}, fmt.Errorf("failed to create runner: %w", err)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs by default
	}

	h := &harness{runner: r, logger: logger, opts: opts}
	return h.run(ctx, reg), nil
}

func (h *harness) run(ctx context.Context, reg *snippet.Registry) report.Summary {
	agg := report.NewAggregator(reg.Name())
	snippets := reg.Snippets()

	h.logger.Info("run started", "registry", reg.Name(), "snippets", len(snippets), "repeat", h.repeat())

	for i, s := range snippets {
		if ctx.Err() != nil {
			h.logger.Warn("run cancelled", "registry", reg.Name(), "not_started", len(snippets)-i)
			for _, rest := range snippets[i:] {
				h.record(agg, notStarted(rest))
			}
			break
		}
		h.record(agg, h.check(ctx, s))
	}

	summary := agg.Summary()
	h.logger.Info("run finished",
		"registry", reg.Name(),
		"total", summary.Total,
		"passed", summary.Passed,
		"failed", summary.Failed,
	)
	return summary
}

func (h *harness) record(agg *report.Aggregator, v verify.Verdict) {
	agg.Add(v)
	if h.opts.Progress != nil {
		h.opts.Progress(v)
	}
}

// check executes and verifies one snippet, Repeat times.
func (h *harness) check(ctx context.Context, s snippet.Snippet) verify.Verdict {
	if h.opts.Strict {
		s.Strict = true
	}

	first := h.once(ctx, s)
	for pass := 2; pass <= h.repeat(); pass++ {
		if ctx.Err() != nil {
			break
		}
		next := h.once(ctx, s)
		if next.Class == verify.ClassCancelled {
			return next
		}
		if next != first {
			h.logger.Warn("nondeterministic snippet", "id", s.ID, "pass", pass)
			return nondeterministic(first, next, pass)
		}
	}
	return first
}

func (h *harness) once(ctx context.Context, s snippet.Snippet) verify.Verdict {
	res := h.runner.Run(ctx, s)
	v := verify.Verify(res, s)

	h.logger.Debug("snippet verified",
		"id", s.ID,
		"status", v.Status,
		"class", v.Class,
		"records", len(res.Records),
		"elapsed", res.Elapsed,
	)
	return v
}

func (h *harness) repeat() int {
	if h.opts.Repeat < 1 {
		return 1
	}
	return h.opts.Repeat
}

// notStarted is the verdict of a snippet the run never reached.
func notStarted(s snippet.Snippet) verify.Verdict {
	return verify.Verify(&runner.Result{
		SnippetID: s.ID,
		Failure: &runner.Failure{
			Kind:    snippet.KindCancelled,
			Name:    "Cancelled",
			Message: "run cancelled before the snippet started",
		},
	}, s)
}

func nondeterministic(first, next verify.Verdict, pass int) verify.Verdict {
	return verify.Verdict{
		SnippetID: first.SnippetID,
		Status:    verify.StatusFail,
		Class:     verify.ClassMismatch,
		Index:     next.Index,
		Expected:  describe(first),
		Actual:    describe(next),
		Message:   fmt.Sprintf("nondeterministic: verdict of execution %d differs from execution 1", pass),
		Diff:      next.Diff,
	}
}

func describe(v verify.Verdict) string {
	if v.Passed() {
		return string(v.Status)
	}
	return fmt.Sprintf("%s (%s): %s", v.Status, v.Class, v.Message)
}
