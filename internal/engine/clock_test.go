package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemClock_StrictlyIncreasing(t *testing.T) {
	c := NewSystemClock()
	const iterations = 1000

	prev := c.Now()
	for i := 0; i < iterations; i++ {
		now := c.Now()
		assert.True(t, now.After(prev), "call %d returned %v after %v", i, now, prev)
		prev = now
	}
}

func TestSystemClock_UTC(t *testing.T) {
	c := NewSystemClock()
	assert.Equal(t, time.UTC, c.Now().Location())
}

func TestSystemClock_ThreadSafe(t *testing.T) {
	c := NewSystemClock()
	const goroutines = 100
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	stamps := make(chan int64, goroutines*callsPerGoroutine)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				stamps <- c.Now().UnixNano()
			}
		}()
	}

	wg.Wait()
	close(stamps)

	// Verify all instants are unique
	seen := make(map[int64]bool)
	for ns := range stamps {
		assert.False(t, seen[ns], "instant %d returned twice", ns)
		seen[ns] = true
	}

	expected := goroutines * callsPerGoroutine
	assert.Len(t, seen, expected, "should have %d unique instants", expected)
}
