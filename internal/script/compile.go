package script

import (
	"bytes"
	"fmt"
	"go/parser"
	"go/token"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/roach88/snipcheck/internal/snippet"
)

// allowedImports lists the packages interpreted sources may import.
// Anything touching the filesystem, network, processes or unsafe memory is
// left out.
var allowedImports = map[string]bool{
	"bytes":        true,
	"errors":       true,
	"fmt":          true,
	"math":         true,
	"regexp":       true,
	"sort":         true,
	"strconv":      true,
	"strings":      true,
	"time":         true,
	"unicode":      true,
	"unicode/utf8": true,
	LessonPath:     true,
}

// sandboxSymbols is stdlib.Symbols restricted to allowedImports.
var sandboxSymbols = func() interp.Exports {
	out := make(interp.Exports)
	for key, syms := range stdlib.Symbols {
		// keys are "import/path/pkgname"
		i := strings.LastIndex(key, "/")
		if i < 0 {
			continue
		}
		if allowedImports[key[:i]] {
			out[key] = syms
		}
	}
	return out
}()

// AllowedImports returns the import allowlist, sorted.
func AllowedImports() []string {
	pkgs := make([]string, 0, len(allowedImports))
	for p := range allowedImports {
		pkgs = append(pkgs, p)
	}
	sort.Strings(pkgs)
	return pkgs
}

// Compile checks src and returns a setup that interprets it.
//
// The source is compiled once here, in a throwaway interpreter, so syntax
// errors, forbidden imports and a missing or mistyped Run surface before
// anything executes. The returned setup builds a fresh interpreter for every
// execution, ahead of the loop, so interpreter start-up is not charged to
// the snippet's timeout.
func Compile(name, src string) (snippet.Setup, error) {
	code, err := prepare(name, src)
	if err != nil {
		return nil, err
	}
	if _, err := load(code, io.Discard, io.Discard); err != nil {
		return nil, err
	}

	return func(env *snippet.Env) (snippet.Body, error) {
		stdout := &consoleWriter{write: env.Log}
		stderr := &consoleWriter{write: env.Error}
		env.OnFinish(stdout.Flush)
		env.OnFinish(stderr.Flush)

		run, err := load(code, stdout, stderr)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", name, err)
		}
		return snippet.Body(run), nil
	}, nil
}

// prepare adds the package clause and lesson import when missing, then
// checks imports against the allowlist.
func prepare(name, src string) (string, error) {
	code := src
	if !strings.HasPrefix(strings.TrimSpace(src), "package ") {
		code = "package main\n\n" + src
	}

	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, name, code, parser.ImportsOnly)
	if err != nil {
		return "", fmt.Errorf("failed to parse source: %w", err)
	}
	if f.Name.Name != "main" {
		return "", fmt.Errorf("source must be package main, got %q", f.Name.Name)
	}

	var forbidden []string
	hasLesson := false
	for _, imp := range f.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			return "", fmt.Errorf("malformed import %s: %w", imp.Path.Value, err)
		}
		if path == LessonPath {
			hasLesson = true
		}
		if !allowedImports[path] {
			forbidden = append(forbidden, path)
		}
	}
	if len(forbidden) > 0 {
		return "", fmt.Errorf("forbidden imports %v (allowed: %s)", forbidden, strings.Join(AllowedImports(), ", "))
	}

	if !hasLesson {
		// Import declarations may be repeated, so a separate one right after
		// the package clause is always legal.
		end := fset.Position(f.Name.End()).Offset
		code = code[:end] + "\n\nimport \"" + LessonPath + "\"\n" + code[end:]
	}
	return code, nil
}

// load interprets code in a fresh interpreter and returns its Run function.
func load(code string, stdout, stderr io.Writer) (func(*snippet.Env) error, error) {
	i := interp.New(interp.Options{Stdout: stdout, Stderr: stderr})

	if err := i.Use(sandboxSymbols); err != nil {
		return nil, fmt.Errorf("failed to load stdlib: %w", err)
	}
	if err := i.Use(Symbols); err != nil {
		return nil, fmt.Errorf("failed to load lesson symbols: %w", err)
	}

	if _, err := i.Eval(code); err != nil {
		return nil, fmt.Errorf("source evaluation failed: %w", err)
	}

	v, err := i.Eval("main.Run")
	if err != nil {
		return nil, fmt.Errorf("Run function not found: %w", err)
	}

	run, ok := v.Interface().(func(*snippet.Env) error)
	if !ok {
		return nil, fmt.Errorf("Run has incorrect signature %s (expected: func(env *lesson.Env) error)", v.Type())
	}
	return run, nil
}

// consoleWriter turns fmt.Print* output into records, one per completed
// line. A trailing partial line is held until the next newline or Flush.
type consoleWriter struct {
	write func(args ...any)
	buf   bytes.Buffer
}

func (w *consoleWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// No newline left: keep the partial line for later.
			w.buf.Reset()
			w.buf.WriteString(line)
			return len(p), nil
		}
		w.write(strings.TrimSuffix(line, "\n"))
	}
}

// Flush emits any buffered partial line.
func (w *consoleWriter) Flush() {
	if w.buf.Len() == 0 {
		return
	}
	line := w.buf.String()
	w.buf.Reset()
	w.write(line)
}
