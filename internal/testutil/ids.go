package testutil

import (
	"sync/atomic"

	"github.com/roach88/lineage/internal/ir"
)

// TestSite is the site component of every id SequentialIDs allocates.
const TestSite uint64 = 0x7e57

// SequentialIDs allocates {TestSite, 1}, {TestSite, 2}, ...
//
// Same scenario + same generator = same ids, which keeps golden traces stable.
//
// Thread-safety: SequentialIDs is safe for concurrent use (atomic operations).
type SequentialIDs struct {
	next atomic.Uint64
}

// NewSequentialIDs creates a generator whose first id is {TestSite, 1}.
func NewSequentialIDs() *SequentialIDs {
	return &SequentialIDs{}
}

// NextID implements engine.IDGenerator.
func (g *SequentialIDs) NextID() ir.ObjectID {
	return ir.ObjectID{Hi: TestSite, Lo: g.next.Add(1)}
}

// Reset restarts the sequence at {TestSite, 1}.
func (g *SequentialIDs) Reset() {
	g.next.Store(0)
}
