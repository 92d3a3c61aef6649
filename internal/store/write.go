package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/snipcheck/internal/report"
)

// ErrRunExists is returned when a run ID is written twice.
var ErrRunExists = errors.New("run already recorded")

// Settings records the options a run was made with.
type Settings struct {
	Clock   string `json:"clock,omitempty"`
	Timeout string `json:"timeout,omitempty"`
	Filter  string `json:"filter,omitempty"`
	Strict  bool   `json:"strict,omitempty"`
	Repeat  int    `json:"repeat,omitempty"`
}

// Run is one stored execution of a registry.
type Run struct {
	Seq        int64     `json:"seq"`
	ID         string    `json:"id"`
	Registry   string    `json:"registry"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Total      int       `json:"total"`
	Passed     int       `json:"passed"`
	Failed     int       `json:"failed"`
	ExitCode   int       `json:"exit_code"`
	Settings   Settings  `json:"settings"`
}

// NewRun builds a Run from a finished summary. Seq is assigned on write.
func NewRun(id string, started, finished time.Time, settings Settings, sum report.Summary) Run {
	return Run{
		ID:         id,
		Registry:   sum.Registry,
		StartedAt:  started,
		FinishedAt: finished,
		Total:      sum.Total,
		Passed:     sum.Passed,
		Failed:     sum.Failed,
		ExitCode:   sum.ExitCode(),
		Settings:   settings,
	}
}

// WriteRun stores the run row and one results row per verdict, atomically.
// Returns the run with Seq set.
//
// Writing an ID that already exists fails with ErrRunExists and leaves the
// stored run untouched.
func (s *Store) WriteRun(ctx context.Context, run Run, sum report.Summary) (Run, error) {
	if run.ID == "" {
		return run, fmt.Errorf("write run: id is required")
	}

	settingsJSON, err := marshalSettings(run.Settings)
	if err != nil {
		return run, fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return run, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, registry, started_at, finished_at, total, passed, failed, exit_code, settings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Registry,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
		run.Total,
		run.Passed,
		run.Failed,
		run.ExitCode,
		settingsJSON,
	)
	if err != nil {
		return run, fmt.Errorf("write run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return run, fmt.Errorf("write run: rows affected: %w", err)
	}
	if rows == 0 {
		return run, fmt.Errorf("write run %s: %w", run.ID, ErrRunExists)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return run, fmt.Errorf("write run: last insert id: %w", err)
	}
	run.Seq = seq

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results
		(run_id, position, snippet_id, status, class, idx, expected, actual, message, diff)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return run, fmt.Errorf("write run: prepare results: %w", err)
	}
	defer stmt.Close()

	for i, v := range sum.Verdicts {
		if _, err := stmt.ExecContext(ctx,
			run.ID,
			i,
			v.SnippetID,
			string(v.Status),
			string(v.Class),
			v.Index,
			v.Expected,
			v.Actual,
			v.Message,
			v.Diff,
		); err != nil {
			return run, fmt.Errorf("write run: result %d (%s): %w", i, v.SnippetID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return run, fmt.Errorf("write run: commit: %w", err)
	}

	return run, nil
}
