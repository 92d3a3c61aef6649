package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/snipcheck/internal/verify"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// DefaultListLimit caps ListRuns when no limit is given.
const DefaultListLimit = 20

const runColumns = `seq, id, registry, started_at, finished_at, total, passed, failed, exit_code, settings`

// ListRuns returns the most recent runs, newest first. A limit <= 0 means
// DefaultListLimit. An empty registry lists runs of every registry.
//
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ListRuns(ctx context.Context, registry string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE ? = '' OR registry = ?
		ORDER BY seq DESC
		LIMIT ?
	`, registry, registry, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// ReadRun returns one run by ID, or ErrRunNotFound.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// ReadVerdicts returns the verdicts of a run in registry order.
//
// Returns an empty slice (not nil) if the run has no results.
func (s *Store) ReadVerdicts(ctx context.Context, runID string) ([]verify.Verdict, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT snippet_id, status, class, idx, expected, actual, message, diff
		FROM results
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	verdicts := []verify.Verdict{}
	for rows.Next() {
		var (
			v             verify.Verdict
			status, class string
		)
		if err := rows.Scan(&v.SnippetID, &status, &class, &v.Index, &v.Expected, &v.Actual, &v.Message, &v.Diff); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		v.Status = verify.Status(status)
		v.Class = verify.Class(class)
		verdicts = append(verdicts, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}

	return verdicts, nil
}

// scanner is the common interface of *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run               Run
		started, finished string
		settingsJSON      string
	)
	err := sc.Scan(
		&run.Seq,
		&run.ID,
		&run.Registry,
		&started,
		&finished,
		&run.Total,
		&run.Passed,
		&run.Failed,
		&run.ExitCode,
		&settingsJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	if run.StartedAt, err = parseTime(started); err != nil {
		return Run{}, err
	}
	if run.FinishedAt, err = parseTime(finished); err != nil {
		return Run{}, err
	}
	if run.Settings, err = unmarshalSettings(settingsJSON); err != nil {
		return Run{}, err
	}
	return run, nil
}
