package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lineage/internal/ir"
)

func TestProperty_RoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		a := mustCreate(t, e, "p", "fileA", "file")

		require.NoError(t, e.AddProperty(ctx, ir.At(a, 0), "k", "v"))

		props, err := e.GetProperties(ctx, a, ir.AllVersions, "k")
		require.NoError(t, err)
		require.Len(t, props, 1)
		assert.Equal(t, "v", props[0].Value)
		assert.Equal(t, ir.At(a, 0), props[0].ObjectVersion)

		matches, err := e.LookupByProperty(ctx, "k", "v")
		require.NoError(t, err)
		assert.Contains(t, matches, ir.At(a, 0))
	})
}

func TestProperty_AppendOnlyInsertionOrder(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		a := mustCreate(t, e, "p", "a", "file")
		mustVersion(t, e, a)

		require.NoError(t, e.AddProperty(ctx, ir.At(a, 1), "tag", "second"))
		require.NoError(t, e.AddProperty(ctx, ir.At(a, 0), "tag", "first"))
		require.NoError(t, e.AddProperty(ctx, ir.At(a, 0), "owner", "alice"))
		require.NoError(t, e.AddProperty(ctx, ir.At(a, 0), "tag", "first"))

		all, err := e.GetProperties(ctx, a, ir.AllVersions, "")
		require.NoError(t, err)
		values := make([]string, 0, len(all))
		for _, p := range all {
			values = append(values, p.Key+"="+p.Value)
		}
		assert.Equal(t, []string{"tag=second", "tag=first", "owner=alice", "tag=first"}, values)

		v0, err := e.GetProperties(ctx, a, 0, "tag")
		require.NoError(t, err)
		assert.Len(t, v0, 2)

		none, err := e.GetProperties(ctx, a, 1, "owner")
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})
}

func TestLookupByProperty_DeduplicatesVersions(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		a := mustCreate(t, e, "p", "a", "file")
		b := mustCreate(t, e, "p", "b", "file")

		require.NoError(t, e.AddProperty(ctx, ir.At(b, 0), "color", "red"))
		require.NoError(t, e.AddProperty(ctx, ir.At(a, 0), "color", "red"))
		require.NoError(t, e.AddProperty(ctx, ir.At(b, 0), "color", "red"))
		require.NoError(t, e.AddProperty(ctx, ir.At(a, 0), "color", "blue"))

		matches, err := e.LookupByProperty(ctx, "color", "red")
		require.NoError(t, err)
		assert.Equal(t, []ir.ObjectVersion{ir.At(b, 0), ir.At(a, 0)}, matches)
	})
}

func TestLookupByProperty_Missing(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()

		_, err := e.LookupByProperty(ctx, "k", "v")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, CodePropertyLookupNotFound, CodeOf(err))

		matches, err := e.TryLookupByProperty(ctx, "k", "v")
		require.NoError(t, err)
		assert.NotNil(t, matches)
		assert.Empty(t, matches)
	})
}

func TestProperty_InvalidArguments(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		a := mustCreate(t, e, "p", "a", "file")

		err := e.AddProperty(ctx, ir.At(a, 0), "", "v")
		assert.ErrorIs(t, err, ErrInvalidArgument)

		err = e.AddProperty(ctx, ir.At(a, 1), "k", "v")
		assert.ErrorIs(t, err, ErrInvalidArgument)

		err = e.AddProperty(ctx, ir.At(ir.ObjectID{Hi: 2, Lo: 2}, 0), "k", "v")
		assert.ErrorIs(t, err, ErrInvalidArgument)
		assert.Equal(t, CodePropertyInvalid, CodeOf(err))

		_, err = e.GetProperties(ctx, a, 4, "")
		assert.ErrorIs(t, err, ErrInvalidArgument)

		_, err = e.GetProperties(ctx, ir.ObjectID{Hi: 2, Lo: 2}, ir.AllVersions, "")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestLookupByProperty_PairsWithNULBytesStayDistinct(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		a := mustCreate(t, e, "p", "a", "file")
		require.NoError(t, e.AddProperty(ctx, ir.At(a, 0), "k\x00v", "w"))

		matches, err := e.TryLookupByProperty(ctx, "k", "v\x00w")
		require.NoError(t, err)
		assert.Empty(t, matches)

		matches, err = e.TryLookupByProperty(ctx, "k\x00v", "w")
		require.NoError(t, err)
		assert.Equal(t, []ir.ObjectVersion{ir.At(a, 0)}, matches)
	})
}
