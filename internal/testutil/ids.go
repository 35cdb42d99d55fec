package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDs generates predictable document ids: prefix-0001, prefix-0002, ...
//
// It satisfies store.IDGenerator, so documents inserted without an id get
// stable ids and golden output stays byte-identical across runs.
//
// Thread-safety: Next is safe for concurrent use.
type SequenceIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceIDs creates a generator. An empty prefix becomes "doc".
func NewSequenceIDs(prefix string) *SequenceIDs {
	if prefix == "" {
		prefix = "doc"
	}
	return &SequenceIDs{prefix: prefix}
}

// Next returns the next id.
func (g *SequenceIDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
