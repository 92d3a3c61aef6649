package testutil

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// AssertGoldenJSON marshals v as indented JSON and compares it against
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run the package tests with -update:
//
//	go test ./internal/harness -update
func AssertGoldenJSON(t *testing.T, name string, v any) {
	t.Helper()

	data, err := MarshalGolden(v)
	if err != nil {
		t.Fatalf("failed to marshal golden value: %v", err)
	}
	AssertGolden(t, name, data)
}

// AssertGolden compares raw bytes against testdata/golden/{name}.golden.
func AssertGolden(t *testing.T, name string, data []byte) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}

// MarshalGolden renders v the way golden files store it: two-space indent,
// no HTML escaping, trailing newline.
func MarshalGolden(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
