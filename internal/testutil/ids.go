package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDGenerator generates predictable run IDs: "<prefix>-0001",
// "<prefix>-0002", ...
//
// This enables deterministic store contents and golden snapshot comparison.
// The same test with a fresh generator produces byte-identical history output.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type SequentialIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDGenerator creates a generator whose first ID ends in 0001.
//
// If prefix is empty, IDs use "test-run".
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = "test-run"
	}
	return &SequentialIDGenerator{prefix: prefix}
}

// Generate returns the next ID.
//
// Implements store.IDGenerator.
func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
