package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/roach88/snipcheck/internal/store"
	"github.com/roach88/snipcheck/internal/verify"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	RunID    string
	Registry string
	Limit    int
}

// RunDetail is the JSON payload of history --run.
type RunDetail struct {
	store.Run
	Verdicts []verify.Verdict `json:"verdicts"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs",
		Long: `List runs recorded with --db, newest first, or show one run's verdicts.

Examples:
  snipcheck history --db history.db
  snipcheck history --db history.db --registry basics --limit 5
  snipcheck history --db history.db --run 0192f3c4-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite history database (default from config)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show the verdicts of this run")
	cmd.Flags().StringVar(&opts.Registry, "registry", "", "only list runs of this registry")
	cmd.Flags().IntVar(&opts.Limit, "limit", store.DefaultListLimit, "maximum number of runs to list")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = opts.Settings.DB
	}
	if dbPath == "" {
		return f.fail(ExitCommandError, ErrCodeFlags, "no history database: pass --db or set db in config", nil, nil)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeStore, "failed to open history database", err, nil)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			opts.logger().Error("error closing database", "error", closeErr)
		}
	}()

	ctx := cmd.Context()

	if opts.RunID != "" {
		run, err := st.ReadRun(ctx, opts.RunID)
		if errors.Is(err, store.ErrRunNotFound) {
			return f.fail(ExitCommandError, ErrCodeRunNotFound, "run not found: "+opts.RunID, nil, nil)
		}
		if err != nil {
			return f.fail(ExitCommandError, ErrCodeStore, "failed to read run", err, nil)
		}
		verdicts, err := st.ReadVerdicts(ctx, run.ID)
		if err != nil {
			return f.fail(ExitCommandError, ErrCodeStore, "failed to read verdicts", err, nil)
		}

		if f.JSON() {
			return f.Success(RunDetail{Run: run, Verdicts: verdicts})
		}
		renderRun(f.Writer, run, verdicts)
		return nil
	}

	runs, err := st.ListRuns(ctx, opts.Registry, opts.Limit)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeStore, "failed to list runs", err, nil)
	}

	if f.JSON() {
		return f.Success(runs)
	}
	renderRuns(f.Writer, runs)
	return nil
}
