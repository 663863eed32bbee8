package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/lineage/internal/ir"
	"github.com/roach88/lineage/internal/store"
	"github.com/roach88/lineage/internal/store/kv"
	"github.com/roach88/lineage/internal/store/sqlite"
	"github.com/roach88/lineage/internal/testutil"
)

// testBackends are the backends that run without external services.
var testBackends = []struct {
	name string
	open func(t *testing.T) store.Backend
}{
	{
		name: "sqlite",
		open: func(t *testing.T) store.Backend {
			s, err := sqlite.Open(filepath.Join(t.TempDir(), "lineage.db"), nil)
			require.NoError(t, err)
			return s
		},
	},
	{
		name: "badger",
		open: func(t *testing.T) store.Backend {
			s, err := kv.Open("", nil)
			require.NoError(t, err)
			return s
		},
	},
}

// forEachBackend runs fn as a subtest against a fresh engine per backend.
func forEachBackend(t *testing.T, fn func(t *testing.T, e *Engine)) {
	t.Helper()
	for _, b := range testBackends {
		t.Run(b.name, func(t *testing.T) {
			fn(t, createTestEngine(t, b.open(t)))
		})
	}
}

// createTestEngine wraps backend in an engine with deterministic ids and times.
// The backend is closed when the test finishes.
func createTestEngine(t *testing.T, backend store.Backend, opts ...Option) *Engine {
	t.Helper()
	t.Cleanup(func() { backend.Close() })

	defaults := []Option{
		WithClock(testutil.NewDeterministicClock()),
		WithIDGenerator(testutil.NewSequentialIDs()),
		WithOriginator("test"),
		WithProgram("engine.test", ir.EngineVersion),
		WithRetryPolicy(RetryPolicy{MaxAttempts: 64, BaseDelay: 100 * time.Microsecond, MaxDelay: 5 * time.Millisecond}),
	}
	e, err := New(context.Background(), backend, append(defaults, opts...)...)
	require.NoError(t, err)
	return e
}

// mustCreate creates an object or fails the test.
func mustCreate(t *testing.T, e *Engine, originator, name, typ string) ir.ObjectID {
	t.Helper()
	id, err := e.CreateObject(context.Background(), originator, name, typ, nil)
	require.NoError(t, err)
	return id
}

// mustVersion appends a version or fails the test.
func mustVersion(t *testing.T, e *Engine, id ir.ObjectID) ir.Version {
	t.Helper()
	v, err := e.NewVersion(context.Background(), id)
	require.NoError(t, err)
	return v
}

// others extracts the other endpoint of every entry.
func others(entries []ir.AncestryEntry) []ir.ObjectVersion {
	out := make([]ir.ObjectVersion, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Other)
	}
	return out
}
