// Package report folds verification verdicts into a run summary and a
// process exit status.
package report

import (
	"sync"

	"github.com/roach88/snipcheck/internal/verify"
)

// Exit statuses of a run.
const (
	ExitPass         = 0
	ExitFail         = 1
	ExitHarnessError = 2
)

// Summary is the final, structured outcome of a run. Renderers format it;
// it never formats itself.
type Summary struct {
	Registry string           `json:"registry"`
	Total    int              `json:"total"`
	Passed   int              `json:"passed"`
	Failed   int              `json:"failed"`
	Failing  []string         `json:"failing"`
	Classes  map[string]int   `json:"classes,omitempty"`
	Verdicts []verify.Verdict `json:"verdicts"`
}

// ExitCode returns 0 when every snippet passed, 1 otherwise.
func (s Summary) ExitCode() int {
	if s.Failed > 0 {
		return ExitFail
	}
	return ExitPass
}

// OK reports whether every snippet passed.
func (s Summary) OK() bool {
	return s.Failed == 0
}

// Aggregator collects verdicts in arrival order. Append-only.
type Aggregator struct {
	mu       sync.Mutex
	registry string
	verdicts []verify.Verdict
}

// NewAggregator returns an empty aggregator for the named registry.
func NewAggregator(registry string) *Aggregator {
	return &Aggregator{registry: registry}
}

// Add appends one verdict.
func (a *Aggregator) Add(v verify.Verdict) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.verdicts = append(a.verdicts, v)
}

// Len returns the number of verdicts added so far.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.verdicts)
}

// Summary folds the verdicts added so far. It can be called at any time;
// the returned value does not alias the aggregator's state.
func (a *Aggregator) Summary() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Summary{
		Registry: a.registry,
		Total:    len(a.verdicts),
		Failing:  []string{},
		Verdicts: make([]verify.Verdict, len(a.verdicts)),
	}
	copy(s.Verdicts, a.verdicts)

	for _, v := range a.verdicts {
		if v.Passed() {
			s.Passed++
			continue
		}
		s.Failed++
		s.Failing = append(s.Failing, v.SnippetID)
		if s.Classes == nil {
			s.Classes = make(map[string]int)
		}
		s.Classes[string(v.Class)]++
	}
	return s
}
