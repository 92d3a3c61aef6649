package report

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/snipcheck/internal/verify"
)

func pass(id string) verify.Verdict {
	return verify.Verdict{SnippetID: id, Status: verify.StatusPass, Index: -1}
}

func fail(id string, class verify.Class) verify.Verdict {
	return verify.Verdict{SnippetID: id, Status: verify.StatusFail, Class: class}
}

func TestAggregator_AllPass(t *testing.T) {
	a := NewAggregator("basics")
	a.Add(pass("arith-sum"))
	a.Add(pass("bad-div"))

	s := a.Summary()
	assert.Equal(t, "basics", s.Registry)
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 2, s.Passed)
	assert.Equal(t, 0, s.Failed)
	assert.Empty(t, s.Failing)
	assert.Nil(t, s.Classes)
	assert.True(t, s.OK())
	assert.Equal(t, ExitPass, s.ExitCode())
}

func TestAggregator_Failures(t *testing.T) {
	a := NewAggregator("basics")
	a.Add(pass("a"))
	a.Add(fail("b", verify.ClassMismatch))
	a.Add(fail("c", verify.ClassTimeout))
	a.Add(fail("d", verify.ClassMismatch))

	s := a.Summary()
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.Passed)
	assert.Equal(t, 3, s.Failed)
	assert.Equal(t, []string{"b", "c", "d"}, s.Failing)
	assert.Equal(t, map[string]int{"verification_mismatch": 2, "timeout": 1}, s.Classes)
	assert.False(t, s.OK())
	assert.Equal(t, ExitFail, s.ExitCode())

	ids := make([]string, len(s.Verdicts))
	for i, v := range s.Verdicts {
		ids[i] = v.SnippetID
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)
}

func TestAggregator_EmptyRun(t *testing.T) {
	s := NewAggregator("none").Summary()
	assert.Equal(t, 0, s.Total)
	assert.Equal(t, []string{}, s.Failing)
	assert.Equal(t, ExitPass, s.ExitCode())
}

func TestAggregator_SummaryIsSnapshot(t *testing.T) {
	a := NewAggregator("r")
	a.Add(pass("a"))
	s := a.Summary()
	a.Add(fail("b", verify.ClassMismatch))

	assert.Equal(t, 1, s.Total)
	assert.Len(t, s.Verdicts, 1)
	assert.Equal(t, 2, a.Len())
}

func TestAggregator_ConcurrentAdd(t *testing.T) {
	a := NewAggregator("r")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Add(pass("x"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, a.Summary().Total)
}
