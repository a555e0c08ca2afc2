package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator returns the same request id every time.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a fixed request id generator. If id is empty,
// Generate returns "test-request-default".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-request-default"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed id.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}

// SequentialIDGenerator returns "<prefix>-1", "<prefix>-2", ... so tests
// can tell browser operations apart in captured logs.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialIDGenerator struct {
	mu     sync.Mutex
	prefix string
	seq    int64
}

// NewSequentialIDGenerator creates a generator whose first id is
// "<prefix>-1".
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	return &SequentialIDGenerator{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%d", g.prefix, g.seq)
}

// Reset restarts the sequence so the next id is "<prefix>-1".
func (g *SequentialIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
