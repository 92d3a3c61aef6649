package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/snipcheck/internal/config"
	"github.com/roach88/snipcheck/internal/store"
	"github.com/roach88/snipcheck/internal/testutil"
)

// execute runs the CLI the way main does and returns stdout, stderr and the
// exit code.
func execute(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	return executeContext(t, context.Background(), args...)
}

func executeContext(t *testing.T, ctx context.Context, args ...string) (string, string, int) {
	t.Helper()

	// Ignore the developer's environment.
	for _, key := range []string{config.EnvTimeout, config.EnvClock, config.EnvDB, config.EnvLogLevel} {
		t.Setenv(key, "")
	}

	var stdout, stderr bytes.Buffer
	code := Main(ctx, args, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func decode(t *testing.T, out string) (CLIResponse, map[string]any) {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	data, _ := resp.Data.(map[string]any)
	return resp, data
}

func registryPath(name string) string {
	return filepath.Join("testdata", name)
}

func TestRun_AllPass(t *testing.T) {
	out, _, code := execute(t, "run", registryPath("basics.yaml"), "--clock", "virtual")

	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "✓ race")
	assert.Contains(t, out, "Summary (basics): 4 passed, 0 failed, 4 total")
	assert.Contains(t, out, "✓ All snippets passed")
}

func TestRun_WallClock(t *testing.T) {
	if testing.Short() {
		t.Skip("uses real timers")
	}
	_, _, code := execute(t, "run", registryPath("basics.yaml"), "--clock", "wall", "--filter", "race")
	assert.Equal(t, ExitSuccess, code)
}

func TestRun_MismatchText(t *testing.T) {
	out, stderr, code := execute(t, "run", registryPath("mixed.yaml"), "--clock", "virtual")

	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "1 snippet(s) failed")
	testutil.AssertGolden(t, "run_mixed", []byte(out))
}

func TestRun_MismatchJSON(t *testing.T) {
	out, _, code := execute(t, "run", registryPath("mixed.yaml"), "--clock", "virtual", "--format", "json")
	assert.Equal(t, ExitFailure, code)

	resp, data := decode(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeRunFailed, resp.Error.Code)
	assert.Equal(t, "mixed", data["registry"])
	assert.Equal(t, float64(1), data["failed"])
	assert.Equal(t, []any{"wrong-sum"}, data["failing"])
	assert.NotContains(t, data, "run_id", "no run id without --db")
}

func TestRun_Timeout(t *testing.T) {
	out, _, code := execute(t, "run", registryPath("slow.yaml"), "--clock", "virtual", "--format", "json")
	assert.Equal(t, ExitFailure, code)

	_, data := decode(t, out)
	assert.Equal(t, map[string]any{"timeout": float64(1)}, data["classes"])
}

func TestRun_TimeoutOverride(t *testing.T) {
	out, _, code := execute(t, "run", registryPath("slow.yaml"), "--clock", "virtual", "--timeout", "20ms")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, out, "deferred work did not settle within 20ms")
}

func TestRun_StrictAndRepeat(t *testing.T) {
	out, _, code := execute(t, "run", registryPath("basics.yaml"), "--clock", "virtual", "--strict", "--repeat", "3")
	assert.Equal(t, ExitSuccess, code, out)
}

func TestRun_Filter(t *testing.T) {
	out, _, code := execute(t, "run", registryPath("mixed.yaml"), "--clock", "virtual", "--filter", "arith-*", "--format", "json")
	assert.Equal(t, ExitSuccess, code)

	resp, data := decode(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, float64(1), data["total"])
}

func TestRun_HarnessErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"duplicate ids", []string{"run", registryPath("duplicate.yaml")}, `duplicate id "arith-sum" (first defined at #0)`},
		{"missing file", []string{"run", registryPath("nope.yaml")}, "registry file not found"},
		{"unsupported file", []string{"run", "registry.txt"}, "unsupported registry file"},
		{"filter matches nothing", []string{"run", registryPath("mixed.yaml"), "--filter", "zzz*"}, `no snippets match filter "zzz*"`},
		{"bad filter", []string{"run", registryPath("mixed.yaml"), "--filter", "[a"}, "invalid filter"},
		{"bad clock", []string{"run", registryPath("mixed.yaml"), "--clock", "sundial"}, "unknown clock"},
		{"bad repeat", []string{"run", registryPath("mixed.yaml"), "--repeat", "0"}, "--repeat must be at least 1"},
		{"bad format", []string{"run", registryPath("mixed.yaml"), "--format", "xml"}, "invalid format"},
		{"unknown flag", []string{"run", registryPath("mixed.yaml"), "--fast"}, "unknown flag"},
		{"missing arg", []string{"run"}, "accepts 1 arg"},
		{"unknown command", []string{"walk"}, "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, stderr, code := execute(t, tt.args...)
			assert.Equal(t, ExitCommandError, code)
			assert.Contains(t, out+stderr, tt.want)
		})
	}
}

func TestRun_RegistryErrorJSON(t *testing.T) {
	out, _, code := execute(t, "run", registryPath("duplicate.yaml"), "--format", "json")
	assert.Equal(t, ExitCommandError, code)

	resp, _ := decode(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeRegistry, resp.Error.Code)

	problems, ok := resp.Error.Details.([]any)
	require.True(t, ok)
	require.Len(t, problems, 1)
	assert.Equal(t, "arith-sum", problems[0].(map[string]any)["id"])
}

func TestRun_ConfigFile(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "snipcheck.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("clock = \"virtual\"\nformat = \"json\"\n"), 0o644))

	out, _, code := execute(t, "--config", cfg, "run", registryPath("basics.yaml"))
	assert.Equal(t, ExitSuccess, code)

	resp, _ := decode(t, out)
	assert.Equal(t, "ok", resp.Status)

	// An explicit flag wins over the file.
	out, _, code = execute(t, "--config", cfg, "--format", "text", "run", registryPath("basics.yaml"))
	assert.Equal(t, ExitSuccess, code)
	assert.True(t, strings.HasPrefix(out, "✓ arith-sum"), out)
}

func TestRun_BadConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "snipcheck.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("clock = \"sundial\"\n"), 0o644))

	_, stderr, code := execute(t, "--config", cfg, "run", registryPath("basics.yaml"))
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "invalid config")
}

func TestRun_VerboseProgress(t *testing.T) {
	out, stderr, code := execute(t, "-v", "run", registryPath("mixed.yaml"), "--clock", "virtual", "--format", "json")
	assert.Equal(t, ExitFailure, code)

	assert.Contains(t, stderr, "✓ arith-sum")
	assert.Contains(t, stderr, "✗ wrong-sum")
	assert.Contains(t, stderr, "run started")

	// stdout stays valid JSON
	decode(t, out)
}

func TestRun_RecordsHistory(t *testing.T) {
	db := filepath.Join(t.TempDir(), "history.db")

	out, _, code := execute(t, "run", registryPath("mixed.yaml"), "--clock", "virtual", "--db", db, "--format", "json")
	assert.Equal(t, ExitFailure, code)

	_, data := decode(t, out)
	runID, _ := data["run_id"].(string)
	require.NotEmpty(t, runID)

	out, _, code = execute(t, "history", "--db", db)
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, runID)
	assert.Contains(t, out, "mixed")

	out, _, code = execute(t, "history", "--db", db, "--run", runID, "--format", "json")
	assert.Equal(t, ExitSuccess, code)
	_, detail := decode(t, out)
	assert.Equal(t, runID, detail["id"])
	verdicts, _ := detail["verdicts"].([]any)
	assert.Len(t, verdicts, 2)
	assert.Equal(t, map[string]any{"clock": "virtual", "repeat": float64(1)}, detail["settings"])
}

func TestRun_DeterministicRunIDs(t *testing.T) {
	db := filepath.Join(t.TempDir(), "history.db")
	clock := testutil.NewDeterministicClock(time.Time{}, 1500*time.Millisecond)

	root := &RootOptions{Format: "text"}
	opts := &RunOptions{
		RootOptions: root,
		IDs:         testutil.NewSequentialIDGenerator("run"),
		Now:         clock.Now,
	}

	for i := 0; i < 2; i++ {
		cmd := newRunCommand(opts)
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		cmd.SetErr(&buf)
		cmd.SetArgs([]string{registryPath("basics.yaml"), "--clock", "virtual", "--db", db})
		require.NoError(t, cmd.Execute())
		assert.Contains(t, buf.String(), "Recorded as run run-000")
	}

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ListRuns(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-0002", runs[0].ID)
	assert.Equal(t, "run-0001", runs[1].ID)
	assert.Equal(t, 1500*time.Millisecond, runs[1].FinishedAt.Sub(runs[1].StartedAt))

	var buf bytes.Buffer
	history := NewHistoryCommand(root)
	history.SetOut(&buf)
	history.SetArgs([]string{"--db", db, "--run", "run-0001"})
	require.NoError(t, history.Execute())
	assert.Contains(t, buf.String(), "Run run-0001 (basics)")
	assert.Contains(t, buf.String(), "Duration: 1.5s")
	assert.Contains(t, buf.String(), "Summary: 4 passed, 0 failed, 4 total (exit 0)")
}

func TestRun_CancelledRunIsReportedAndRecorded(t *testing.T) {
	db := filepath.Join(t.TempDir(), "history.db")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, _, code := executeContext(t, ctx, "run", registryPath("basics.yaml"), "--clock", "virtual", "--db", db)

	assert.Equal(t, ExitFailure, code)
	for _, id := range []string{"arith-sum", "bad-div", "race", "upper"} {
		assert.Contains(t, out, "✗ "+id+" [cancelled]")
	}
	assert.Contains(t, out, "Summary (basics): 0 passed, 4 failed, 4 total")
	assert.Contains(t, out, "Recorded as run ")

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ListRuns(context.Background(), "basics", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 4, runs[0].Failed)
	assert.Equal(t, ExitFailure, runs[0].ExitCode)
}

func TestRun_SummaryShownWhenRecordingFails(t *testing.T) {
	db := filepath.Join(t.TempDir(), "history.db")
	root := &RootOptions{Format: "text"}

	var outputs []string
	for i := 0; i < 2; i++ {
		// A fresh generator per run repeats the first ID.
		opts := &RunOptions{RootOptions: root, IDs: testutil.NewSequentialIDGenerator("run")}
		cmd := newRunCommand(opts)
		var stdout, stderr bytes.Buffer
		cmd.SetOut(&stdout)
		cmd.SetErr(&stderr)
		cmd.SetArgs([]string{registryPath("basics.yaml"), "--clock", "virtual", "--db", db})
		require.NoError(t, cmd.Execute())
		outputs = append(outputs, stdout.String())
	}

	assert.Contains(t, outputs[0], "Recorded as run run-0001")
	assert.Contains(t, outputs[1], "Summary (basics): 4 passed, 0 failed, 4 total")
	assert.NotContains(t, outputs[1], "Recorded as run")
}

func TestRun_BadDatabasePath(t *testing.T) {
	db := filepath.Join(t.TempDir(), "missing", "dir", "history.db")
	out, _, code := execute(t, "run", registryPath("mixed.yaml"), "--db", db)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, out, ErrCodeStore)
}
