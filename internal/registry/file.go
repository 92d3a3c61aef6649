package registry

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/snipcheck/internal/script"
	"github.com/roach88/snipcheck/internal/snippet"
)

//go:embed schema.cue
var schemaCUE string

// Format is a registry file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", fmt.Errorf("unsupported registry file %q (expected .yaml, .yml or .cue)", filepath.Base(path))
	}
}

// File is the on-disk shape of a registry.
type File struct {
	// Name identifies the registry in reports. Defaults to the file name.
	Name string `yaml:"name" json:"name"`

	// Description is free text.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Timeout is the default per-snippet timeout (Go duration syntax).
	Timeout string `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// Snippets are kept in file order.
	Snippets []Entry `yaml:"snippets" json:"snippets"`
}

// Entry is one snippet in a registry file.
type Entry struct {
	ID       string        `yaml:"id" json:"id"`
	Title    string        `yaml:"title,omitempty" json:"title,omitempty"`
	Deferred bool          `yaml:"deferred,omitempty" json:"deferred,omitempty"`
	Strict   bool          `yaml:"strict,omitempty" json:"strict,omitempty"`
	Timeout  string        `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Expect   []Expectation `yaml:"expect,omitempty" json:"expect,omitempty"`

	// Source is Go source defining func Run(env *lesson.Env) error.
	Source string `yaml:"source" json:"source"`
}

// Expectation is one expected record. Exactly one of Stdout, Stderr and
// Error must be set.
type Expectation struct {
	Stdout *string `yaml:"stdout,omitempty" json:"stdout,omitempty"`
	Stderr *string `yaml:"stderr,omitempty" json:"stderr,omitempty"`
	Error  *string `yaml:"error,omitempty" json:"error,omitempty"`

	// Match is "exact" (default) or "pattern".
	Match string `yaml:"match,omitempty" json:"match,omitempty"`

	// Kind constrains error expectations.
	Kind string `yaml:"kind,omitempty" json:"kind,omitempty"`
}

// LoadFile reads, decodes, validates and compiles a registry file.
//
// I/O failures are returned as plain errors; anything wrong with the
// content is a *snippet.RegistryError.
func LoadFile(path string) (*snippet.Registry, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(name, format, data)
}

// Parse decodes data in the given format and builds the registry.
// defaultName is used when the file does not name itself.
func Parse(defaultName string, format Format, data []byte) (*snippet.Registry, error) {
	var (
		f   *File
		err error
	)
	switch format {
	case FormatYAML:
		f, err = decodeYAML(data)
	case FormatCUE:
		f, err = decodeCUE(defaultName, data)
	default:
		return nil, fmt.Errorf("unsupported registry format %q", format)
	}
	if err != nil {
		return nil, &snippet.RegistryError{
			Registry: defaultName,
			Problems: []snippet.Problem{{Position: -1, Message: err.Error()}},
		}
	}

	if f.Name == "" {
		f.Name = defaultName
	}
	return Build(f)
}

func decodeYAML(data []byte) (*File, error) {
	// Parse YAML with strict field validation (catches typos like "expected:" vs "expect:")
	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &f, nil
}

func decodeCUE(filename string, data []byte) (*File, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("invalid registry schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename+".cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse CUE: %w", err)
	}

	v = schema.LookupPath(cue.ParsePath("#Registry")).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("registry does not match schema: %w", err)
	}

	var f File
	if err := v.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode CUE: %w", err)
	}
	return &f, nil
}

// Build converts a decoded file into a registry, compiling every source.
// All problems are collected into one *snippet.RegistryError.
func Build(f *File) (*snippet.Registry, error) {
	var problems []snippet.Problem

	if len(f.Snippets) == 0 {
		problems = append(problems, snippet.Problem{Position: -1, Message: "registry has no snippets"})
	}

	var defaultTimeout time.Duration
	if f.Timeout != "" {
		d, err := parseTimeout(f.Timeout)
		if err != nil {
			problems = append(problems, snippet.Problem{Position: -1, Message: err.Error()})
		}
		defaultTimeout = d
	}

	snippets := make([]snippet.Snippet, len(f.Snippets))
	for i, e := range f.Snippets {
		s, errs := convert(e, defaultTimeout)
		for _, err := range errs {
			problems = append(problems, snippet.Problem{Position: i, ID: e.ID, Message: err.Error()})
		}
		snippets[i] = s
	}

	reg, err := snippet.NewRegistry(f.Name, snippets...)
	if err != nil {
		var re *snippet.RegistryError
		if !errors.As(err, &re) {
			return nil, err
		}
		problems = append(problems, re.Problems...)
	}

	if len(problems) > 0 {
		sort.SliceStable(problems, func(i, j int) bool { return problems[i].Position < problems[j].Position })
		return nil, &snippet.RegistryError{Registry: f.Name, Problems: problems}
	}
	return reg, nil
}

// placeholder stands in for a body that failed to compile, so the registry
// check still runs and reports duplicate IDs alongside compile errors.
func placeholder(*snippet.Env) error { return nil }

func convert(e Entry, defaultTimeout time.Duration) (snippet.Snippet, []error) {
	var errs []error
	s := snippet.Snippet{
		ID:       e.ID,
		Title:    e.Title,
		Deferred: e.Deferred,
		Strict:   e.Strict,
		Timeout:  defaultTimeout,
		Body:     placeholder,
	}

	if e.Timeout != "" {
		d, err := parseTimeout(e.Timeout)
		if err != nil {
			errs = append(errs, err)
		}
		s.Timeout = d
	}

	for j, x := range e.Expect {
		want, err := x.toExpected()
		if err != nil {
			errs = append(errs, fmt.Errorf("expect[%d]: %w", j, err))
			continue
		}
		s.Expected = append(s.Expected, want)
	}

	if strings.TrimSpace(e.Source) == "" {
		errs = append(errs, errors.New("source is required"))
		return s, errs
	}
	setup, err := script.Compile(e.ID, e.Source)
	if err != nil {
		errs = append(errs, err)
		return s, errs
	}
	s.Body, s.Setup = nil, setup
	return s, errs
}

func parseTimeout(v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %s", v)
	}
	return d, nil
}

func (x Expectation) toExpected() (snippet.ExpectedOutput, error) {
	var (
		out snippet.ExpectedOutput
		set int
	)
	if x.Stdout != nil {
		out.Channel, out.Text = snippet.Stdout, *x.Stdout
		set++
	}
	if x.Stderr != nil {
		out.Channel, out.Text = snippet.Stderr, *x.Stderr
		set++
	}
	if x.Error != nil {
		out.Channel, out.Text = snippet.ErrorChannel, *x.Error
		set++
	}
	if set != 1 {
		return out, fmt.Errorf("exactly one of stdout, stderr or error is required, got %d", set)
	}

	switch x.Match {
	case "", "exact":
	case "pattern":
		out.Pattern, out.Text = out.Text, ""
		if out.Pattern == "" {
			return out, fmt.Errorf("pattern must not be empty")
		}
	default:
		return out, fmt.Errorf("unknown match %q (expected exact or pattern)", x.Match)
	}

	out.Kind = snippet.ErrorKind(x.Kind)
	return out, nil
}
