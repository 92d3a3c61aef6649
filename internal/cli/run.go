package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/snipcheck/internal/eventloop"
	"github.com/roach88/snipcheck/internal/harness"
	"github.com/roach88/snipcheck/internal/lessons"
	"github.com/roach88/snipcheck/internal/registry"
	"github.com/roach88/snipcheck/internal/report"
	"github.com/roach88/snipcheck/internal/runner"
	"github.com/roach88/snipcheck/internal/snippet"
	"github.com/roach88/snipcheck/internal/store"
	"github.com/roach88/snipcheck/internal/verify"
)

// RunOptions holds flags for the run and lessons commands.
type RunOptions struct {
	*RootOptions
	Timeout  time.Duration // overrides every snippet's timeout
	Filter   string        // snippet ID glob
	Strict   bool
	Clock    string
	Repeat   int
	Database string

	// IDs allows overriding the run ID generator (for testing).
	// If nil, defaults to store.UUIDv7Generator.
	IDs store.IDGenerator

	// Now allows overriding the wall clock used for run timestamps (for testing).
	Now func() time.Time
}

// RunOutput is the JSON payload of a run.
type RunOutput struct {
	RunID string `json:"run_id,omitempty"`
	report.Summary
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <registry>",
		Short: "Run and verify the snippets of a registry file",
		Long: `Run every snippet of a registry file (.yaml, .yml or .cue) and verify
its captured output against the expected output.

The registry is validated and compiled before anything executes; a malformed
registry (duplicate IDs, bad expectations, sources that do not compile)
exits with status 2.

Examples:
  snipcheck run lessons/basics.yaml
  snipcheck run lessons/async.cue --clock virtual --filter "promise-*"
  snipcheck run lessons/basics.yaml --strict --repeat 3 --db history.db
  snipcheck run lessons/basics.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			reg, err := registry.LoadFile(args[0])
			if err != nil {
				return loadFailure(f, args[0], err)
			}
			return executeRun(cmd, opts, reg)
		},
	}

	addRunFlags(cmd, opts)
	return cmd
}

// NewLessonsCommand creates the lessons command, which runs the built-in
// catalogue.
func NewLessonsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}
	var list bool

	cmd := &cobra.Command{
		Use:   "lessons",
		Short: "Run the built-in lesson catalogue",
		Long: `Run the built-in catalogue of lesson snippets: operators, error handling,
classes, closures, timers and promises.

Examples:
  snipcheck lessons
  snipcheck lessons --clock virtual
  snipcheck lessons --list`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := lessons.Catalogue()
			if list {
				return listSnippets(opts.formatter(cmd), reg)
			}
			return executeRun(cmd, opts, reg)
		},
	}

	addRunFlags(cmd, opts)
	cmd.Flags().BoolVar(&list, "list", false, "list snippet IDs and titles without running")
	return cmd
}

func addRunFlags(cmd *cobra.Command, opts *RunOptions) {
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "timeout for every snippet, overriding registry values")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "run only snippets whose ID matches this glob")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail on records past the expected output for every snippet")
	cmd.Flags().StringVar(&opts.Clock, "clock", "", "loop clock (wall|virtual), default from config or wall")
	cmd.Flags().IntVar(&opts.Repeat, "repeat", 0, "execute each snippet N times and require identical verdicts")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite history database")
}

// runSettings merges explicit flags over the resolved config.
func (opts *RunOptions) runSettings(cmd *cobra.Command) (store.Settings, error) {
	s := store.Settings{
		Clock:  string(opts.Settings.Clock),
		Strict: opts.Strict || opts.Settings.Strict,
		Repeat: opts.Settings.Repeat,
		Filter: opts.Filter,
	}

	if cmd.Flags().Changed("clock") {
		s.Clock = opts.Clock
	}
	if s.Clock == "" {
		s.Clock = string(eventloop.ClockWall)
	}
	if _, err := eventloop.NewClock(eventloop.ClockKind(s.Clock)); err != nil {
		return s, err
	}

	if cmd.Flags().Changed("repeat") {
		if opts.Repeat < 1 {
			return s, fmt.Errorf("--repeat must be at least 1, got %d", opts.Repeat)
		}
		s.Repeat = opts.Repeat
	}

	if opts.Timeout < 0 {
		return s, fmt.Errorf("--timeout must not be negative, got %s", opts.Timeout)
	}
	if opts.Timeout > 0 {
		s.Timeout = opts.Timeout.String()
	}
	return s, nil
}

func executeRun(cmd *cobra.Command, opts *RunOptions, reg *snippet.Registry) error {
	f := opts.formatter(cmd)
	logger := opts.logger()

	settings, err := opts.runSettings(cmd)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeFlags, "invalid flags", err, nil)
	}

	reg, err = reg.Filter(opts.Filter)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeFlags, "invalid filter", err, nil)
	}
	if reg.Len() == 0 {
		return f.fail(ExitCommandError, ErrCodeNoSnippets, fmt.Sprintf("no snippets match filter %q", opts.Filter), nil, nil)
	}

	r, err := runner.New(runner.Options{
		Timeout:  opts.Settings.Timeout,
		Grace:    opts.Settings.Grace,
		Override: opts.Timeout,
		Clock:    eventloop.ClockKind(settings.Clock),
		Logger:   logger,
	})
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeFlags, "invalid runner options", err, nil)
	}

	dbPath := opts.Settings.DB
	if cmd.Flags().Changed("db") {
		dbPath = opts.Database
	}

	// Open the store before running so a bad path fails fast.
	var st *store.Store
	if dbPath != "" {
		st, err = store.Open(dbPath)
		if err != nil {
			return f.fail(ExitCommandError, ErrCodeStore, "failed to open history database", err, nil)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	started := now()
	summary, err := harness.Run(ctx, reg, harness.Options{
		Runner: r,
		Strict: settings.Strict,
		Repeat: settings.Repeat,
		Logger: logger,
		Progress: func(v verify.Verdict) {
			f.VerboseLog("%s %s", mark(v), v.SnippetID)
		},
	})
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeGeneric, "run failed", err, nil)
	}
	finished := now()

	out := RunOutput{Summary: summary}
	if st != nil {
		ids := opts.IDs
		if ids == nil {
			ids = store.UUIDv7Generator{}
		}
		// A cancelled run is still recorded: its summary is complete.
		run, err := st.WriteRun(context.WithoutCancel(ctx), store.NewRun(ids.Generate(), started, finished, settings, summary), summary)
		if err != nil {
			logger.Error("failed to record run", "db", dbPath, "error", err)
		} else {
			out.RunID = run.ID
			logger.Info("run recorded", "run_id", run.ID, "db", dbPath)
		}
	}

	return outputRun(f, out)
}

// signalContext cancels on SIGINT or SIGTERM. Snippets not yet started are
// reported as cancelled.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	// Use command's context if available (for testing), otherwise create one
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func outputRun(f *OutputFormatter, out RunOutput) error {
	var failed error
	if !out.OK() {
		failed = NewExitError(ExitFailure, fmt.Sprintf("%d snippet(s) failed", out.Failed))
	}

	if f.JSON() {
		var err error
		if failed != nil {
			err = f.Failure(ErrCodeRunFailed, failed.Error(), out)
		} else {
			err = f.Success(out)
		}
		if err != nil {
			return err
		}
		return failed
	}

	renderSummary(f.Writer, out.Summary, out.RunID)
	return failed
}

// loadFailure reports a registry that could not be loaded.
func loadFailure(f *OutputFormatter, path string, err error) error {
	var re *snippet.RegistryError
	if errors.As(err, &re) {
		if !f.JSON() {
			renderProblems(f.Writer, re)
		}
		return f.failQuiet(ErrCodeRegistry, "invalid registry", re)
	}
	if errors.Is(err, os.ErrNotExist) {
		return f.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("registry file not found: %s", path), nil, nil)
	}
	return f.fail(ExitCommandError, ErrCodeNotFound, "failed to load registry", err, nil)
}

// failQuiet reports a RegistryError: as JSON with every problem as details,
// or nothing extra in text mode where the problems were already rendered.
func (f *OutputFormatter) failQuiet(code, message string, re *snippet.RegistryError) error {
	if f.JSON() {
		_ = f.Error(code, re.Error(), re.Problems)
	}
	return WrapExitError(ExitCommandError, message, re)
}
