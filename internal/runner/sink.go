package runner

import (
	"sync"

	"github.com/roach88/snipcheck/internal/snippet"
)

// captureSink collects the records of one execution. Once sealed it drops
// writes, so an abandoned body cannot alter a finalized result.
type captureSink struct {
	mu      sync.Mutex
	records []snippet.Record
	sealed  bool
}

func (s *captureSink) Write(r snippet.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return
	}
	s.records = append(s.records, r)
}

// seal stops further writes and returns what was captured.
func (s *captureSink) seal() []snippet.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealed = true
	out := make([]snippet.Record, len(s.records))
	copy(out, s.records)
	return out
}
