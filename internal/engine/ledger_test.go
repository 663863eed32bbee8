package engine

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/lineage/internal/ir"
)

func TestNewVersion_Sequential(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		id := mustCreate(t, e, "p", "f", "file")
		for want := ir.Version(1); want <= 5; want++ {
			assert.Equal(t, want, mustVersion(t, e, id))
		}

		v, err := e.GetVersion(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, ir.Version(5), v)
	})
}

func TestNewVersion_ConcurrentCallersGetDistinctVersions(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		id := mustCreate(t, e, "p", "f", "file")
		const callers = 24

		got := make([]int, callers)
		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < callers; i++ {
			i := i
			g.Go(func() error {
				v, err := e.NewVersion(gctx, id)
				got[i] = int(v)
				return err
			})
		}
		require.NoError(t, g.Wait())

		sort.Ints(got)
		want := make([]int, callers)
		for i := range want {
			want[i] = i + 1
		}
		assert.Equal(t, want, got)
	})
}

func TestNewVersion_UnknownObject(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		_, err := e.NewVersion(context.Background(), ir.ObjectID{Hi: 1, Lo: 404})
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = e.GetVersion(context.Background(), ir.ObjectID{Hi: 1, Lo: 404})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, CodeVersionGetNotFound, CodeOf(err))
	})
}

func TestGetVersionInfo(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		id := mustCreate(t, e, "p", "f", "file")
		mustVersion(t, e, id)

		v0, err := e.GetVersionInfo(ctx, ir.At(id, 0))
		require.NoError(t, err)
		v1, err := e.GetVersionInfo(ctx, ir.At(id, 1))
		require.NoError(t, err)

		assert.Equal(t, e.Session().ID, v0.Session)
		assert.Equal(t, e.Session().ID, v1.Session)
		assert.True(t, v1.CreationTime.After(v0.CreationTime))

		_, err = e.GetVersionInfo(ctx, ir.At(id, 2))
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = e.GetVersionInfo(ctx, ir.At(id, ir.AllVersions))
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestGetObjectInfo_TracksCurrentVersion(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		id := mustCreate(t, e, "p", "f", "file")
		mustVersion(t, e, id)
		mustVersion(t, e, id)

		info, err := e.GetObjectInfo(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, ir.Version(2), info.Version)
		assert.Nil(t, info.Container)

		_, err = e.GetObjectInfo(ctx, ir.ObjectID{Hi: 5, Lo: 5})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, CodeObjectInfoNotFound, CodeOf(err))
	})
}
