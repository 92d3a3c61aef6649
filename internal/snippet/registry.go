package snippet

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Problem is one reason a registry was rejected.
type Problem struct {
	// Position is the zero-based index of the offending snippet, or -1 for
	// registry-wide problems.
	Position int    `json:"position"`
	ID       string `json:"id,omitempty"`
	Message  string `json:"message"`
}

// String renders the problem with its location.
func (p Problem) String() string {
	switch {
	case p.Position < 0:
		return p.Message
	case p.ID == "":
		return fmt.Sprintf("snippet #%d: %s", p.Position, p.Message)
	default:
		return fmt.Sprintf("snippet #%d (%s): %s", p.Position, p.ID, p.Message)
	}
}

// RegistryError reports a malformed registry. It is returned before any
// snippet executes and lists every problem found, not just the first.
type RegistryError struct {
	Registry string
	Problems []Problem
}

// Error implements the error interface.
func (e *RegistryError) Error() string {
	var b strings.Builder
	if e.Registry != "" {
		fmt.Fprintf(&b, "registry %q", e.Registry)
	} else {
		b.WriteString("registry")
	}
	switch len(e.Problems) {
	case 0:
		b.WriteString(" is invalid")
	case 1:
		b.WriteString(": ")
		b.WriteString(e.Problems[0].String())
	default:
		fmt.Fprintf(&b, ": %d problems", len(e.Problems))
		for _, p := range e.Problems {
			b.WriteString("\n  - ")
			b.WriteString(p.String())
		}
	}
	return b.String()
}

// IsRegistryError returns true if err is a RegistryError.
// Uses errors.As to handle wrapped errors.
func IsRegistryError(err error) bool {
	var re *RegistryError
	return errors.As(err, &re)
}

// Registry is an immutable, ordered set of snippets with unique IDs.
type Registry struct {
	name     string
	snippets []Snippet
	index    map[string]int
}

// NewRegistry validates snippets and builds a registry.
//
// Checked: non-empty and unique IDs, non-nil bodies, known channels and
// kinds, compilable patterns, non-negative timeouts. All problems are
// collected into one *RegistryError.
func NewRegistry(name string, snippets ...Snippet) (*Registry, error) {
	var problems []Problem
	seen := make(map[string]int, len(snippets))

	for i, s := range snippets {
		add := func(format string, args ...any) {
			problems = append(problems, Problem{Position: i, ID: s.ID, Message: fmt.Sprintf(format, args...)})
		}

		if s.ID == "" {
			add("id is required")
		} else if first, dup := seen[s.ID]; dup {
			add("duplicate id %q (first defined at #%d)", s.ID, first)
		} else {
			seen[s.ID] = i
		}

		if s.Body == nil && s.Setup == nil {
			add("body is required")
		}
		if s.Timeout < 0 {
			add("timeout must not be negative, got %s", s.Timeout)
		}

		for j, e := range s.Expected {
			if !e.Channel.Valid() {
				add("expect[%d]: unknown channel %q", j, e.Channel)
			}
			if e.Kind != "" {
				if e.Channel != ErrorChannel {
					add("expect[%d]: kind is only valid on %q records", j, ErrorChannel)
				} else if !e.Kind.Valid() {
					add("expect[%d]: unknown kind %q", j, e.Kind)
				}
			}
			if e.IsPattern() {
				if _, err := e.Regexp(); err != nil {
					add("expect[%d]: invalid pattern: %v", j, err)
				}
			}
		}
	}

	if len(problems) > 0 {
		return nil, &RegistryError{Registry: name, Problems: problems}
	}

	r := &Registry{
		name:     name,
		snippets: make([]Snippet, len(snippets)),
		index:    seen,
	}
	for i, s := range snippets {
		r.snippets[i] = s.clone()
	}
	return r, nil
}

// MustRegistry is NewRegistry that panics on error. For registries built
// from literals in code.
func MustRegistry(name string, snippets ...Snippet) *Registry {
	r, err := NewRegistry(name, snippets...)
	if err != nil {
		panic(err)
	}
	return r
}

// Name returns the registry name.
func (r *Registry) Name() string {
	return r.name
}

// Len returns the number of snippets.
func (r *Registry) Len() int {
	return len(r.snippets)
}

// Snippets returns copies of the snippets in registry order.
func (r *Registry) Snippets() []Snippet {
	out := make([]Snippet, len(r.snippets))
	for i, s := range r.snippets {
		out[i] = s.clone()
	}
	return out
}

// Lookup returns the snippet with the given ID.
func (r *Registry) Lookup(id string) (Snippet, bool) {
	i, ok := r.index[id]
	if !ok {
		return Snippet{}, false
	}
	return r.snippets[i].clone(), true
}

// Filter returns a registry holding the snippets whose ID matches the glob
// pattern (path.Match syntax), in the original order. An empty pattern
// returns r itself.
func (r *Registry) Filter(pattern string) (*Registry, error) {
	if pattern == "" {
		return r, nil
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", pattern, err)
	}

	var kept []Snippet
	for _, s := range r.snippets {
		if ok, _ := path.Match(pattern, s.ID); ok {
			kept = append(kept, s)
		}
	}
	return NewRegistry(r.name, kept...)
}
