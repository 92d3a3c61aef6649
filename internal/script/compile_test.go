package script

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/snipcheck/internal/eventloop"
	"github.com/roach88/snipcheck/internal/runner"
	"github.com/roach88/snipcheck/internal/snippet"
)

func run(t *testing.T, src string, deferred bool) *runner.Result {
	t.Helper()

	setup, err := Compile("test", src)
	require.NoError(t, err)

	r, err := runner.New(runner.Options{Clock: eventloop.ClockVirtual})
	require.NoError(t, err)

	return r.Run(context.Background(), snippet.Snippet{ID: "test", Setup: setup, Deferred: deferred})
}

func texts(records []snippet.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Text
	}
	return out
}

func TestCompile_ArithSum(t *testing.T) {
	res := run(t, `
func Run(env *lesson.Env) error {
	env.Log(5 + 2)
	return nil
}
`, false)

	assert.Nil(t, res.Failure)
	assert.Equal(t, []snippet.Record{{Channel: snippet.Stdout, Text: "7"}}, res.Records)
}

func TestCompile_FullSourceWithImports(t *testing.T) {
	res := run(t, `package main

import (
	"strings"

	"snipcheck/lesson"
)

func Run(env *lesson.Env) error {
	env.Log(strings.ToUpper("olá"))
	return nil
}
`, false)

	assert.Nil(t, res.Failure)
	assert.Equal(t, []string{"OLÁ"}, texts(res.Records))
}

func TestCompile_ThrownError(t *testing.T) {
	res := run(t, `
func dividir(a, b float64) (float64, error) {
	if b == 0 {
		return 0, lesson.RangeError("Divisão por zero não é permitida.")
	}
	return a / b, nil
}

func Run(env *lesson.Env) error {
	_, err := dividir(10, 0)
	return err
}
`, false)

	require.NotNil(t, res.Failure)
	assert.Equal(t, snippet.KindRangeError, res.Failure.Kind)
	assert.Equal(t, "Divisão por zero não é permitida.", res.Failure.Message)
}

func TestCompile_DeferredOrdering(t *testing.T) {
	res := run(t, `
import "time"

func Run(env *lesson.Env) error {
	env.Log("A")
	env.SetTimeout(0*time.Millisecond, func() error {
		env.Log("B")
		return nil
	})
	env.QueueMicrotask(func() error {
		env.Log("C")
		return nil
	})
	env.Log("D")
	return nil
}
`, true)

	assert.Nil(t, res.Failure)
	assert.Equal(t, []string{"A", "D", "C", "B"}, texts(res.Records))
}

func TestCompile_PromiseChain(t *testing.T) {
	res := run(t, `
import (
	"strings"
	"time"
)

func Run(env *lesson.Env) error {
	env.Sleep(300*time.Millisecond, "Olá").
		Then(func(v any) (any, error) {
			return strings.ToUpper(v.(string) + " mundo"), nil
		}, func(err error) (any, error) {
			return nil, err
		}).
		Catch(func(err error) (any, error) {
			env.Error("Erro:", err)
			return nil, nil
		}).
		Finally(func() error {
			env.Log(env.Now())
			return nil
		})
	return nil
}
`, true)

	assert.Nil(t, res.Failure)
	assert.Equal(t, []string{"300ms"}, texts(res.Records))
}

func TestCompile_FmtPrintIsCaptured(t *testing.T) {
	res := run(t, `
import "fmt"

func Run(env *lesson.Env) error {
	fmt.Println("linha 1")
	fmt.Print("linha 2\nlinha 3\n")
	env.Log("via env")
	return nil
}
`, false)

	assert.Nil(t, res.Failure)
	assert.Equal(t, []string{"linha 1", "linha 2", "linha 3", "via env"}, texts(res.Records))
}

func TestCompile_FmtPrintJoinsPartialLines(t *testing.T) {
	res := run(t, `
import "fmt"

func Run(env *lesson.Env) error {
	fmt.Print("a")
	fmt.Println("b")
	fmt.Print("sem quebra")
	return nil
}
`, false)

	assert.Nil(t, res.Failure)
	assert.Equal(t, []string{"ab", "sem quebra"}, texts(res.Records))
}

func TestCompile_WallClockTimeoutBoundary(t *testing.T) {
	const src = `
import "time"

func Run(env *lesson.Env) error {
	env.Sleep(%s, nil).Then(func(any) (any, error) {
		env.Log("settled")
		return nil, nil
	}, func(err error) (any, error) {
		return nil, err
	})
	return nil
}
`
	tests := []struct {
		name     string
		delay    string
		wantKind snippet.ErrorKind
	}{
		{name: "one millisecond early", delay: "99*time.Millisecond"},
		{name: "one millisecond late", delay: "101*time.Millisecond", wantKind: snippet.KindTimeout},
	}

	r, err := runner.New(runner.Options{Clock: eventloop.ClockWall})
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setup, err := Compile("boundary", fmt.Sprintf(src, tt.delay))
			require.NoError(t, err)

			res := r.Run(context.Background(), snippet.Snippet{
				ID:       "boundary",
				Setup:    setup,
				Deferred: true,
				Timeout:  100 * time.Millisecond,
			})

			if tt.wantKind == "" {
				assert.Nil(t, res.Failure)
				assert.Equal(t, []string{"settled"}, texts(res.Records))
				return
			}
			require.NotNil(t, res.Failure)
			assert.Equal(t, tt.wantKind, res.Failure.Kind)
			assert.Empty(t, res.Records)
		})
	}
}

func TestCompile_FreshInterpreterPerExecution(t *testing.T) {
	setup, err := Compile("counter", `
var calls int

func Run(env *lesson.Env) error {
	calls++
	env.Log(calls)
	return nil
}
`)
	require.NoError(t, err)

	r, err := runner.New(runner.Options{Clock: eventloop.ClockVirtual})
	require.NoError(t, err)

	s := snippet.Snippet{ID: "counter", Setup: setup}
	first := r.Run(context.Background(), s)
	second := r.Run(context.Background(), s)

	assert.Equal(t, []string{"1"}, texts(first.Records))
	assert.Equal(t, []string{"1"}, texts(second.Records))
}

func TestCompile_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name:    "forbidden import",
			src:     "import \"os\"\n\nfunc Run(env *lesson.Env) error { os.Exit(1); return nil }",
			wantErr: "forbidden imports [os]",
		},
		{
			name:    "syntax error in imports",
			src:     "import \"strings\n\nfunc Run(env *lesson.Env) error { return nil }",
			wantErr: "failed to parse source",
		},
		{
			name:    "syntax error in body",
			src:     "func Run(env *lesson.Env) error {",
			wantErr: "source evaluation failed",
		},
		{
			name:    "wrong package",
			src:     "package lessons\n\nfunc Run() {}",
			wantErr: `source must be package main, got "lessons"`,
		},
		{
			name:    "missing Run",
			src:     "func Other(env *lesson.Env) error { return nil }",
			wantErr: "Run function not found",
		},
		{
			name:    "wrong signature",
			src:     "func Run(s string) error { return nil }",
			wantErr: "Run has incorrect signature",
		},
		{
			name:    "type error",
			src:     "func Run(env *lesson.Env) error { return 42 }",
			wantErr: "source evaluation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setup, err := Compile(tt.name, tt.src)
			require.Error(t, err)
			assert.Nil(t, setup)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPrepare_AddsPackageAndImport(t *testing.T) {
	code, err := prepare("x", "func Run(env *lesson.Env) error { return nil }")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(code, "package main\n\nimport \"snipcheck/lesson\"\n"))
}

func TestPrepare_KeepsExistingLessonImport(t *testing.T) {
	src := "package main\n\nimport \"snipcheck/lesson\"\n\nfunc Run(env *lesson.Env) error { return nil }\n"
	code, err := prepare("x", src)
	require.NoError(t, err)

	assert.Equal(t, src, code)
}

func TestAllowedImports(t *testing.T) {
	pkgs := AllowedImports()
	assert.Contains(t, pkgs, "strings")
	assert.Contains(t, pkgs, LessonPath)
	assert.NotContains(t, pkgs, "os")
	assert.IsIncreasing(t, pkgs)
}

func TestConsoleWriter(t *testing.T) {
	var got []string
	w := &consoleWriter{write: func(args ...any) { got = append(got, snippet.Format(args...)) }}

	n, err := w.Write([]byte("a\nb\n"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = bytes.NewBufferString("c").WriteTo(w)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	_, err = w.Write([]byte("d\ne"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "cd"}, got)

	w.Flush()
	w.Flush()
	assert.Equal(t, []string{"a", "b", "cd", "e"}, got)
}
