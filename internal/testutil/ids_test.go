package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lineage/internal/ir"
)

func TestSequentialIDs_Sequence(t *testing.T) {
	ids := NewSequentialIDs()

	assert.Equal(t, ir.ObjectID{Hi: TestSite, Lo: 1}, ids.NextID())
	assert.Equal(t, ir.ObjectID{Hi: TestSite, Lo: 2}, ids.NextID())

	ids.Reset()
	assert.Equal(t, ir.ObjectID{Hi: TestSite, Lo: 1}, ids.NextID())
}

func TestSequentialIDs_NeverNone(t *testing.T) {
	ids := NewSequentialIDs()
	for i := 0; i < 10; i++ {
		assert.False(t, ids.NextID().IsNone())
	}
}

func TestSequentialIDs_Concurrent(t *testing.T) {
	ids := NewSequentialIDs()
	const numGoroutines = 20
	const callsPerGoroutine = 50

	var mu sync.Mutex
	seen := make(map[ir.ObjectID]bool)

	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				id := ids.NextID()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, numGoroutines*callsPerGoroutine)
}
