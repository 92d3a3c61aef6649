// Package config loads snipcheck settings from an optional TOML file and
// SNIPCHECK_* environment variables. Command-line flags are applied on top by
// the CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/roach88/snipcheck/internal/eventloop"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "snipcheck.toml"

// Environment overrides. They win over the file.
const (
	EnvTimeout  = "SNIPCHECK_TIMEOUT"
	EnvClock    = "SNIPCHECK_CLOCK"
	EnvDB       = "SNIPCHECK_DB"
	EnvLogLevel = "SNIPCHECK_LOG_LEVEL"
)

// File is the raw TOML shape. Durations are Go duration strings.
type File struct {
	Timeout  string `toml:"timeout"`
	Grace    string `toml:"grace"`
	Clock    string `toml:"clock"`
	Strict   *bool  `toml:"strict"`
	Repeat   int    `toml:"repeat"`
	DB       string `toml:"db"`
	Format   string `toml:"format"`
	LogLevel string `toml:"log_level"`
}

// Settings are resolved, typed values.
type Settings struct {
	// Timeout is the default per-snippet timeout. Zero leaves the runner
	// default in place.
	Timeout time.Duration
	Grace   time.Duration
	Clock   eventloop.ClockKind
	Strict  bool
	Repeat  int

	// DB is the run history database path. Empty disables recording.
	DB       string
	Format   string
	LogLevel slog.Level
}

// Default returns the settings used when nothing is configured.
func Default() Settings {
	return Settings{
		Clock:    eventloop.ClockWall,
		Repeat:   1,
		Format:   "text",
		LogLevel: slog.LevelWarn,
	}
}

// Load reads path. An empty path tries DefaultFile and returns an empty File
// if it does not exist; an explicit path must exist.
func Load(path string) (File, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes TOML. Unknown keys are rejected. name is used in errors.
func Parse(data []byte, name string) (File, error) {
	var f File
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return File{}, fmt.Errorf("config parse failed (%s): %s", name, strict.String())
		}
		return File{}, fmt.Errorf("config parse failed (%s): %w", name, err)
	}
	return f, nil
}

// ApplyEnv overrides fields from the environment. lookup is usually
// os.LookupEnv; empty values are ignored.
func (f *File) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(EnvTimeout, &f.Timeout)
	set(EnvClock, &f.Clock)
	set(EnvDB, &f.DB)
	set(EnvLogLevel, &f.LogLevel)
}

// Resolve validates f and returns typed settings over Default.
func (f File) Resolve() (Settings, error) {
	s := Default()

	if f.Timeout != "" {
		d, err := parsePositive("timeout", f.Timeout)
		if err != nil {
			return Settings{}, err
		}
		s.Timeout = d
	}
	if f.Grace != "" {
		d, err := parsePositive("grace", f.Grace)
		if err != nil {
			return Settings{}, err
		}
		s.Grace = d
	}

	if f.Clock != "" {
		kind := eventloop.ClockKind(strings.ToLower(f.Clock))
		if _, err := eventloop.NewClock(kind); err != nil {
			return Settings{}, fmt.Errorf("config clock: %w", err)
		}
		s.Clock = kind
	}

	if f.Strict != nil {
		s.Strict = *f.Strict
	}

	if f.Repeat < 0 {
		return Settings{}, fmt.Errorf("config repeat must not be negative, got %d", f.Repeat)
	}
	if f.Repeat > 0 {
		s.Repeat = f.Repeat
	}

	s.DB = f.DB

	switch strings.ToLower(f.Format) {
	case "":
	case "text", "json":
		s.Format = strings.ToLower(f.Format)
	default:
		return Settings{}, fmt.Errorf("config format %q: must be text or json", f.Format)
	}

	if f.LogLevel != "" {
		lvl, ok := ParseLevel(f.LogLevel)
		if !ok {
			return Settings{}, fmt.Errorf("config log_level %q: must be debug, info, warn or error", f.LogLevel)
		}
		s.LogLevel = lvl
	}

	return s, nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(raw string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug", "trace":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

func parsePositive(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("parse %s: must be positive, got %s", key, raw)
	}
	return d, nil
}
