package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lineage/internal/ir"
	"github.com/roach88/lineage/internal/testutil"
)

func TestNew_RecordsSession(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		s := e.Session()

		assert.Equal(t, ir.ObjectID{Hi: testutil.TestSite, Lo: 1}, s.ID)
		assert.Equal(t, "test", s.Originator)
		assert.Equal(t, "engine.test", s.Program)
		assert.True(t, s.StartTime.Equal(testutil.Epoch))

		got, err := e.GetSessionInfo(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, s.ID, got.ID)
		assert.Equal(t, s.Originator, got.Originator)
		assert.Equal(t, s.PID, got.PID)
		assert.Equal(t, s.Program, got.Program)
		assert.Equal(t, s.ProgramVersion, got.ProgramVersion)
		assert.True(t, s.StartTime.Equal(got.StartTime))
	})
}

func TestGetSessionInfo_Unknown(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		_, err := e.GetSessionInfo(context.Background(), ir.ObjectID{Hi: 9, Lo: 9})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, CodeSessionNotFound, CodeOf(err))

		_, err = e.GetSessionInfo(context.Background(), ir.None)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}

// Two processes creating objects, versions and edges, then reading them back.
func TestEndToEnd(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()

		a := mustCreate(t, e, "p", "fileA", "file")
		b := mustCreate(t, e, "p", "procB", "proc")

		outcome, err := e.DataFlow(ctx, b, a, ir.DataInput)
		require.NoError(t, err)
		assert.Equal(t, ir.OutcomeOK, outcome)

		outcome, err = e.DataFlow(ctx, b, a, ir.DataInput)
		require.NoError(t, err)
		assert.Equal(t, ir.OutcomeDuplicateIgnored, outcome)

		current, err := e.GetVersion(ctx, b)
		require.NoError(t, err)

		entries, err := e.GetAncestry(ctx, ir.At(b, current), ir.Ancestors, 0)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, ir.AncestryEntry{
			Query:     ir.At(b, 0),
			Other:     ir.At(a, 0),
			Type:      ir.DataInput,
			Direction: ir.Ancestors,
		}, entries[0])
	})
}

func TestOperationsHonorCanceledContext(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		a := mustCreate(t, e, "p", "a", "file")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := e.NewVersion(ctx, a)
		assert.Error(t, err)
		_, err = e.GetAncestry(ctx, ir.At(a, 0), ir.Ancestors, 0)
		assert.Error(t, err)
	})
}
